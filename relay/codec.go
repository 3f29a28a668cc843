// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package relay

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
)

// Encoded is the compact text representation of an envelope used whenever
// it crosses a transport or RPC boundary: gzip of the canonical JSON form,
// base64 (unpadded, URL-safe) of that.
type Encoded string

var gzipMagic = []byte{0x1f, 0x8b}

// ToJSONBytes marshals the envelope to plain JSON, with no compression.
func ToJSONBytes[T any](env *Envelope[T]) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, newError(ErrSerializeFailure, "to_json", err)
	}
	return data, nil
}

// FromJSON unmarshals a plain JSON envelope.
func FromJSON[T any](data []byte) (*Envelope[T], error) {
	env := &Envelope[T]{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, newError(ErrDeserializeFailure, "from_json", err)
	}
	return env, nil
}

// Gzip compresses data at the maximum compression level.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, newError(ErrCompressionFailure, "gzip", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, newError(ErrCompressionFailure, "gzip", err)
	}
	if err := w.Close(); err != nil {
		return nil, newError(ErrCompressionFailure, "gzip", err)
	}
	return buf.Bytes(), nil
}

// Gunzip decompresses gzip-wrapped data.
func Gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrCompressionFailure, "gunzip", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(ErrCompressionFailure, "gunzip", err)
	}
	return out, nil
}

// Gzipped produces the gzip-then-JSON encoded byte form of env, without
// the text-safe base64 wrapping Encode adds.
func Gzipped[T any](env *Envelope[T]) ([]byte, error) {
	raw, err := ToJSONBytes(env)
	if err != nil {
		return nil, err
	}
	return Gzip(raw)
}

// FromGzipped decodes a gzip-then-JSON byte form produced by Gzipped.
func FromGzipped[T any](data []byte) (*Envelope[T], error) {
	raw, err := Gunzip(data)
	if err != nil {
		return nil, err
	}
	return FromJSON[T](raw)
}

// Encode gzips the JSON form of env then base64-encodes it to an Encoded
// text blob suitable for an RPC payload or transport frame.
func Encode[T any](env *Envelope[T]) (Encoded, error) {
	gz, err := Gzipped(env)
	if err != nil {
		return "", err
	}
	return Encoded(base64.RawURLEncoding.EncodeToString(gz)), nil
}

// Decode reverses Encode. It auto-detects whether the decoded bytes are
// gzip-wrapped (by magic number) and falls back to plain JSON when they
// are not, matching the source's "gzip then base-N encode, decode tries
// gzip then plain" pipeline. decode(encode(x)) == x for any x.
func Decode[T any](enc Encoded) (*Envelope[T], error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(enc))
	if err != nil {
		return nil, newError(ErrDeserializeFailure, "decode", err)
	}

	if looksGzipped(raw) {
		if unzipped, err := Gunzip(raw); err == nil {
			return FromJSON[T](unzipped)
		}
	}
	return FromJSON[T](raw)
}

func looksGzipped(b []byte) bool {
	return len(b) >= 2 && b[0] == gzipMagic[0] && b[1] == gzipMagic[1]
}
