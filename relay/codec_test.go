package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipGunzip_RoundTrip(t *testing.T) {
	raw := []byte(`{"hello":"world"}`)
	gz, err := Gzip(raw)
	require.NoError(t, err)
	assert.True(t, looksGzipped(gz))

	out, err := Gunzip(gz)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestGzippedFromGzipped_RoundTrip(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "zip"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	gz, err := Gzipped(env)
	require.NoError(t, err)

	decoded, err := FromGzipped[testPayload](gz)
	require.NoError(t, err)
	assert.Equal(t, env.Data, decoded.Data)
}

func TestToJSONFromJSON_RoundTrip(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "json"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	raw, err := ToJSONBytes(env)
	require.NoError(t, err)

	decoded, err := FromJSON[testPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, env.Data, decoded.Data)
	assert.Equal(t, env.SenderAddr, decoded.SenderAddr)
}

func TestLooksGzipped(t *testing.T) {
	assert.True(t, looksGzipped([]byte{0x1f, 0x8b, 0x00}))
	assert.False(t, looksGzipped([]byte("{}")))
	assert.False(t, looksGzipped(nil))
}
