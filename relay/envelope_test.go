package relay

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ringmeshcrypto "github.com/ringmesh-project/ringmesh/crypto"
	"github.com/ringmesh-project/ringmesh/crypto/keys"
	"github.com/ringmesh-project/ringmesh/ringid"
)

type testPayload struct {
	Greeting string `json:"greeting"`
}

func newTestKeyPair(t *testing.T) (ringmeshcrypto.KeyPair, ringid.Did) {
	t.Helper()
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	addr, err := AddressOf(kp)
	require.NoError(t, err)
	return kp, addr
}

func TestNewAndVerify_RoundTrip(t *testing.T) {
	kp, selfAddr := newTestKeyPair(t)

	env, err := New(testPayload{Greeting: "hi"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	assert.Equal(t, selfAddr, env.SenderAddr)
	assert.Equal(t, selfAddr, env.Destination)
	assert.NoError(t, env.Verify(kp))
}

func TestNew_PathSetsDestinationAndNextHop(t *testing.T) {
	kp, selfAddr := newTestKeyPair(t)
	_, hop1 := newTestKeyPair(t)
	_, dest := newTestKeyPair(t)

	env, err := New(testPayload{Greeting: "x"}, kp, 0, []ringid.Did{hop1, dest}, MethodSend)
	require.NoError(t, err)

	assert.Equal(t, dest, env.Destination)
	require.NotNil(t, env.NextHop)
	assert.Equal(t, hop1, *env.NextHop)
	assert.Equal(t, selfAddr, env.Path[0])
}

func TestIsLive(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{}, kp, 60*time.Second, nil, MethodSend)
	require.NoError(t, err)

	now := time.UnixMilli(env.TsMs)
	assert.True(t, env.IsLive(now))
	assert.True(t, env.IsLive(now.Add(59*time.Second)))
	assert.False(t, env.IsLive(now.Add(60*time.Second)))
	assert.False(t, env.IsLive(now.Add(120*time.Second)))
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "hi"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	env.Sig[0] ^= 0xFF
	assert.Error(t, env.Verify(kp))
}

func TestVerify_DataMutationInvalidatesSignature(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "hi"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	env.Data.Greeting = "tampered"
	assert.Error(t, env.Verify(kp))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "round-trip"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	enc, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode[testPayload](enc)
	require.NoError(t, err)

	assert.Equal(t, env.Data, decoded.Data)
	assert.Equal(t, env.TsMs, decoded.TsMs)
	assert.Equal(t, env.TTLMs, decoded.TTLMs)
	assert.Equal(t, env.SenderAddr, decoded.SenderAddr)
	assert.NoError(t, decoded.Verify(kp))
}

func TestDecode_FallsBackToPlainJSON(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "plain"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	raw, err := ToJSONBytes(env)
	require.NoError(t, err)

	enc := Encoded(base64.RawURLEncoding.EncodeToString(raw))
	decoded, err := Decode[testPayload](enc)
	require.NoError(t, err)
	assert.Equal(t, env.Data, decoded.Data)
}

func TestEncode_SameTimestamp_Deterministic(t *testing.T) {
	kp, _ := newTestKeyPair(t)
	env, err := New(testPayload{Greeting: "determinism"}, kp, 0, nil, MethodSend)
	require.NoError(t, err)

	enc1, err := Encode(env)
	require.NoError(t, err)
	enc2, err := Encode(env)
	require.NoError(t, err)

	assert.Equal(t, enc1, enc2)
}
