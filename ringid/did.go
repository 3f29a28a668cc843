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

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package ringid defines the 160-bit ring coordinate every peer, envelope,
// and stored vnode is addressed by, plus the cyclic "bias" arithmetic Chord
// routing decisions are made from.
package ringid

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// Width is the bit width of the ring, m in spec terms. Ring arithmetic is
// modulo 2^Width.
const Width = 160

// Did is a fixed-width peer identifier and DHT key, derived from the low
// 160 bits of the Keccak-256 hash of a public key, mirroring go-ethereum's
// own address derivation.
type Did [20]byte

// Zero is the additive identity of the ring's modular arithmetic; it is not
// a reserved address and is a legal, if exceedingly unlikely, peer Did.
var Zero Did

// FromPublicKeyBytes derives a Did from an uncompressed or raw public key
// encoding, using Keccak256(pubkey)[12:] — the same transform go-ethereum
// uses to turn a secp256k1 public key into a 20-byte account address,
// reused here as a generic fixed-width hash rather than for any blockchain
// interaction.
func FromPublicKeyBytes(pubKeyBytes []byte) Did {
	hash := crypto.Keccak256(pubKeyBytes)
	var d Did
	copy(d[:], hash[len(hash)-20:])
	return d
}

// FromEd25519PublicKey derives a Did from an Ed25519 public key.
func FromEd25519PublicKey(pub ed25519.PublicKey) Did {
	return FromPublicKeyBytes(pub)
}

// FromSecp256k1PublicKey derives a Did from a secp256k1 public key, using
// its uncompressed encoding so the derivation matches go-ethereum address
// derivation byte-for-byte when the same curve is in play.
func FromSecp256k1PublicKey(pub *secp256k1.PublicKey) Did {
	return FromPublicKeyBytes(pub.SerializeUncompressed()[1:])
}

// HashName derives a Did from an arbitrary name, used to key SubRings and
// other content-addressed vnodes by a human-chosen string instead of a key.
func HashName(name string) Did {
	return FromPublicKeyBytes([]byte(name))
}

// String renders the Did as a 0x-prefixed hex string.
func (d Did) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero Did.
func (d Did) IsZero() bool {
	return d == Zero
}

// MarshalText implements encoding.TextMarshaler so Did can be used as a
// map key or struct field in JSON (required for storage.Map<Did,VirtualNode>).
func (d Did) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Did) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid Did %q: %w", text, err)
	}
	if len(b) != 20 {
		return fmt.Errorf("invalid Did %q: want 20 bytes, got %d", text, len(b))
	}
	copy(d[:], b)
	return nil
}

func (d Did) bigInt() *big.Int {
	return new(big.Int).SetBytes(d[:])
}

var modulus = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), Width)
	return m
}()

// Add returns self + 2^i (mod 2^Width), used by fix_finger to compute the
// target identifier for finger table slot i.
func (d Did) Add(pow2 uint) Did {
	offset := new(big.Int).Lsh(big.NewInt(1), pow2)
	sum := new(big.Int).Add(d.bigInt(), offset)
	sum.Mod(sum, modulus)
	return fromBigInt(sum)
}

func fromBigInt(n *big.Int) Did {
	var d Did
	b := n.Bytes()
	copy(d[20-len(b):], b)
	return d
}

// Bias returns the cyclic distance of x from anchor a: (x - a) mod 2^Width.
// Lower bias means x is closer to a in the clockwise direction.
func Bias(a, x Did) *big.Int {
	diff := new(big.Int).Sub(x.bigInt(), a.bigInt())
	diff.Mod(diff, modulus)
	return diff
}

// Less reports whether bias_a(x) < bias_a(y) — x is strictly closer than y
// to anchor a, walking clockwise.
func Less(a, x, y Did) bool {
	return Bias(a, x).Cmp(Bias(a, y)) < 0
}

// LessEq reports whether bias_a(x) <= bias_a(y).
func LessEq(a, x, y Did) bool {
	return Bias(a, x).Cmp(Bias(a, y)) <= 0
}

// Between reports whether x falls in the cyclic open interval (lo, hi)
// measured from anchor lo — i.e. 0 < bias_lo(x) < bias_lo(hi).
func Between(lo, hi, x Did) bool {
	bx := Bias(lo, x)
	bh := Bias(lo, hi)
	return bx.Sign() > 0 && bx.Cmp(bh) < 0
}

// BetweenInclusive reports whether x falls in the cyclic interval (lo, hi]
// measured from anchor lo — i.e. 0 < bias_lo(x) <= bias_lo(hi).
func BetweenInclusive(lo, hi, x Did) bool {
	bx := Bias(lo, x)
	bh := Bias(lo, hi)
	return bx.Sign() > 0 && bx.Cmp(bh) <= 0
}

// Algorithm names the signing algorithm a Did's owner uses, dispatched by
// relay.Envelope.Verify.
type Algorithm string

const (
	AlgorithmEd25519   Algorithm = "Ed25519"
	AlgorithmSecp256k1 Algorithm = "Secp256k1"
)

// ParseAlgorithm validates a configured key-algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmEd25519:
		return AlgorithmEd25519, nil
	case AlgorithmSecp256k1:
		return AlgorithmSecp256k1, nil
	default:
		return "", fmt.Errorf("unsupported key algorithm: %s", name)
	}
}
