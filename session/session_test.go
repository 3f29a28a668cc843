package session

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSecureSessionLifecycle(t *testing.T) {
	config := Config{
		MaxAge:      100 * time.Millisecond,
		IdleTimeout: 50 * time.Millisecond,
		MaxMessages: 2,
	}
	sharedSecret := make([]byte, 32)
	_, err := rand.Read(sharedSecret)
	require.NoError(t, err)

	sess, err := NewSecureSession("sess1", sharedSecret, config)
	require.NoError(t, err)
	t.Run("SignCovered and VerifyCovered roundtrip", func(t *testing.T) {
		require.Equal(t, "sess1", sess.GetID())
		require.False(t, sess.IsExpired())

		covered := []byte("hello")
		sig := sess.SignCovered(covered)
		require.NoError(t, sess.VerifyCovered(covered, sig))

		require.Equal(t, 2, sess.GetMessageCount())
	})

	t.Run("VerifyCovered with tampered data fails", func(t *testing.T) {
		sess2, _ := NewSecureSession("sess1b", sharedSecret, config)
		covered := []byte("another test")
		sig := sess2.SignCovered(covered)

		tampered := append([]byte{}, covered...)
		tampered[0] ^= 0xFF

		require.Error(t, sess2.VerifyCovered(tampered, sig))
	})

	t.Run("Message count expiration", func(t *testing.T) {
		sess, _ := NewSecureSession("sess2", sharedSecret, config)

		sess.SignCovered([]byte("m1"))
		sess.SignCovered([]byte("m2"))

		require.True(t, sess.IsExpired())
	})

	t.Run("Idle timeout expiration", func(t *testing.T) {
		sess, _ := NewSecureSession("sess3", sharedSecret, config)

		sess.SignCovered([]byte("hi"))
		time.Sleep(config.IdleTimeout + 10*time.Millisecond)

		require.True(t, sess.IsExpired())
	})

	t.Run("Absolute timeout expiration", func(t *testing.T) {
		sess, _ := NewSecureSession("sess4", sharedSecret, config)
		time.Sleep(config.MaxAge + 10*time.Millisecond)
		require.True(t, sess.IsExpired())
	})

	t.Run("Close zeroizes keys", func(t *testing.T) {
		sess, _ := NewSecureSession("sess5", sharedSecret, config)
		require.NoError(t, sess.Close())
		require.True(t, sess.IsExpired())
	})
}

func TestSecureSession_WithParamsSuite(t *testing.T) {
	t.Run("Deterministic seed/id/keys", func(t *testing.T) {
		sharedSecret := b(32)
		selfA, selfB := b(32), b(32)
		ctxID := "ctx-1234"
		label := "ringmesh/connect v1"

		pA := Params{ContextID: ctxID, SelfEph: selfA, PeerEph: selfB, Label: label, SharedSecret: sharedSecret}
		pB := Params{ContextID: ctxID, SelfEph: selfB, PeerEph: selfA, Label: label, SharedSecret: sharedSecret}

		seedA, err := DeriveSessionSeed(sharedSecret, pA)
		require.NoError(t, err)
		seedB, err := DeriveSessionSeed(sharedSecret, pB)
		require.NoError(t, err)
		require.Equal(t, seedA, seedB)

		idA, err := ComputeSessionIDFromSeed(seedA, label)
		require.NoError(t, err)
		idB, err := ComputeSessionIDFromSeed(seedB, label)
		require.NoError(t, err)
		require.Equal(t, idA, idB)

		cfg := Config{MaxAge: time.Second, IdleTimeout: time.Second, MaxMessages: 100}
		sessA, err := NewSecureSession(idA, seedA, cfg)
		require.NoError(t, err)
		sessB, err := NewSecureSession(idB, seedB, cfg)
		require.NoError(t, err)

		require.Equal(t, sessA.signingKey, sessB.signingKey)

		msg := []byte("hello from A")
		sig := sessA.SignCovered(msg)
		require.NoError(t, sessB.VerifyCovered(msg, sig))
	})

	t.Run("Signing key HMAC verify (ok/tamper/different context or label)", func(t *testing.T) {
		shared := b(32)
		e1, e2 := b(32), b(32)

		s1, err := NewSecureSessionWithParams(shared, Params{ContextID: "ctx", SelfEph: e1, PeerEph: e2, Label: "v1"}, Config{})
		require.NoError(t, err)
		s2, err := NewSecureSessionWithParams(shared, Params{ContextID: "ctx", SelfEph: e2, PeerEph: e1, Label: "v1"}, Config{})
		require.NoError(t, err)

		msg := []byte("sign me")
		sig1 := hmacSHA256(s1.signingKey, msg)
		sig2 := hmacSHA256(s2.signingKey, msg)
		require.Equal(t, sig1, sig2)

		tampered := append([]byte{}, msg...)
		tampered[0] ^= 0xFF
		require.NotEqual(t, sig1, hmacSHA256(s2.signingKey, tampered))

		s3, err := NewSecureSessionWithParams(shared, Params{ContextID: "ctx-OTHER", SelfEph: e2, PeerEph: e1, Label: "v1"}, Config{})
		require.NoError(t, err)
		require.NotEqual(t, s1.signingKey, s3.signingKey)

		s4, err := NewSecureSessionWithParams(shared, Params{ContextID: "ctx", SelfEph: e2, PeerEph: e1, Label: "v2"}, Config{})
		require.NoError(t, err)
		require.NotEqual(t, s1.signingKey, s4.signingKey)
	})

	t.Run("NewSecureSessionWithParams determinism & error cases", func(t *testing.T) {
		shared := b(32)
		eA, eB := b(32), b(32)

		sA, err := NewSecureSessionWithParams(shared, Params{ContextID: "C", SelfEph: eA, PeerEph: eB, Label: "L"}, Config{})
		require.NoError(t, err)
		sB, err := NewSecureSessionWithParams(shared, Params{ContextID: "C", SelfEph: eB, PeerEph: eA, Label: "L"}, Config{})
		require.NoError(t, err)
		require.Equal(t, sA.id, sB.id)
		require.Equal(t, sA.signingKey, sB.signingKey)

		_, err = DeriveSessionSeed(nil, Params{ContextID: "C", SelfEph: eA, PeerEph: eB})
		require.Error(t, err)
		_, err = DeriveSessionSeed(shared, Params{ContextID: "", SelfEph: eA, PeerEph: eB})
		require.Error(t, err)
		_, err = ComputeSessionIDFromSeed(nil, "L")
		require.Error(t, err)
	})

	t.Run("VerifyCovered fails when params differ", func(t *testing.T) {
		shared := b(32)
		e1, e2, e3 := b(32), b(32), b(32)

		sA, _ := NewSecureSessionWithParams(shared, Params{ContextID: "X", SelfEph: e1, PeerEph: e2, Label: "v1"}, Config{})
		sB, _ := NewSecureSessionWithParams(shared, Params{ContextID: "X", SelfEph: e2, PeerEph: e1, Label: "v1"}, Config{})
		sC, _ := NewSecureSessionWithParams(shared, Params{ContextID: "X", SelfEph: e1, PeerEph: e3, Label: "v1"}, Config{})

		sig := sA.SignCovered([]byte("secret"))

		require.NoError(t, sB.VerifyCovered([]byte("secret"), sig))
		require.Error(t, sC.VerifyCovered([]byte("secret"), sig))
	})

	t.Run("Close() zeroizes key material & forbids further use", func(t *testing.T) {
		seed := b(32)
		s, err := NewSecureSession("idZ", seed, Config{})
		require.NoError(t, err)

		sigLen, seedLen := len(s.signingKey), len(s.sessionSeed)

		require.NoError(t, s.Close())
		require.True(t, s.IsExpired())

		require.Equal(t, bytes.Repeat([]byte{0}, sigLen), s.signingKey)
		require.Equal(t, bytes.Repeat([]byte{0}, seedLen), s.sessionSeed)
	})

	t.Run("canonicalOrder sorts lexicographically", func(t *testing.T) {
		a := []byte{0x01, 0xFF}
		bb := []byte{0x02, 0x00}
		lo, hi := canonicalOrder(a, bb)
		require.True(t, bytes.Compare(lo, hi) < 0)
		require.Equal(t, a, lo)
		require.Equal(t, bb, hi)

		lo2, hi2 := canonicalOrder(bb, a)
		require.Equal(t, lo, lo2)
		require.Equal(t, hi, hi2)
	})
}

func b(n int) []byte {
	out := make([]byte, n)
	_, _ = rand.Read(out)
	return out
}

func hmacSHA256(k, msg []byte) []byte {
	m := hmac.New(sha256.New, k)
	m.Write(msg)
	return m.Sum(nil)
}
