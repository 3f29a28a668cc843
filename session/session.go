package session

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

// SecureSession tracks a session between two ring members and offers an
// HMAC (SignCovered/VerifyCovered) keyed from the session seed. Relay
// envelope bodies are signed separately by the sender's identity key (see
// the relay package); no handler or stabilize code path calls this HMAC.
type SecureSession struct {
	id           string
	createdAt    time.Time
	lastUsedAt   time.Time
	messageCount int
	config       Config
	closed       bool

	// sessionSeed is HKDF-Extract(PRK) derived from the ECDH shared secret
	// and handshake salt. It is NOT the raw ECDH output. Both peers must
	// compute the same PRK.
	sessionSeed []byte
	signingKey  []byte
}

// Params describes the handshake context required to deterministically
// derive a session seed and ID on both peers.
type Params struct {
	// ContextID must be identical on both peers (e.g., the ring's namespace).
	ContextID string
	// SelfEph is this node's ephemeral public key bytes (as sent on the wire).
	SelfEph []byte
	// PeerEph is the peer's ephemeral public key bytes (as received).
	PeerEph []byte
	// Label distinguishes protocol versions.
	Label        string
	SharedSecret []byte
}

// NewSecureSession creates a new session with a derived signing key.
func NewSecureSession(sid string, sessionSeed []byte, config Config) (*SecureSession, error) {
	if sid == "" || len(sessionSeed) == 0 {
		return nil, fmt.Errorf("invalid inputs")
	}
	now := time.Now()
	sess := &SecureSession{
		id:           sid,
		createdAt:    now,
		lastUsedAt:   now,
		messageCount: 0,
		config:       config,
		sessionSeed:  sessionSeed,
	}

	if err := sess.deriveKeys(); err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	return sess, nil
}

// NewSecureSessionWithParams derives a sessionSeed (PRK) and a deterministic
// sessionID, then constructs the SecureSession so both peers get identical
// id and keys.
func NewSecureSessionWithParams(sharedSecret []byte, p Params, cfg Config) (*SecureSession, error) {
	seed, err := DeriveSessionSeed(sharedSecret, p)
	if err != nil {
		return nil, err
	}
	sid, err := ComputeSessionIDFromSeed(seed, p.Label)
	if err != nil {
		return nil, err
	}
	return NewSecureSession(sid, seed, cfg)
}

// DeriveSessionSeed returns PRK = HKDF-Extract(sharedSecret, salt(label, ctxID, ephs)).
func DeriveSessionSeed(sharedSecret []byte, p Params) ([]byte, error) {
	if len(sharedSecret) == 0 {
		return nil, fmt.Errorf("empty shared secret")
	}
	if p.ContextID == "" || len(p.SelfEph) == 0 || len(p.PeerEph) == 0 {
		return nil, fmt.Errorf("invalid params")
	}
	label := p.Label
	if label == "" {
		label = "ringmesh/connect v1"
	}
	lo, hi := canonicalOrder(p.SelfEph, p.PeerEph)

	h := sha256.New()
	h.Write([]byte(label))
	h.Write([]byte(p.ContextID))
	h.Write(lo)
	h.Write(hi)
	salt := h.Sum(nil)

	seed := hkdfExtractSHA256(sharedSecret, salt) // PRK
	return seed, nil
}

// ComputeSessionIDFromSeed deterministically maps PRK -> compact session ID.
func ComputeSessionIDFromSeed(seed []byte, label string) (string, error) {
	if len(seed) == 0 {
		return "", fmt.Errorf("empty seed")
	}
	h := sha256.New()
	h.Write([]byte(label))
	h.Write(seed)
	full := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(full[:16]), nil
}

// deriveKeys derives the HMAC signing key from the session seed using HKDF.
func (s *SecureSession) deriveKeys() error {
	salt := []byte(s.id) // Use session ID as salt

	hkdfSign := hkdf.New(sha256.New, s.sessionSeed, salt, []byte("signing"))
	s.signingKey = make([]byte, 32) // HMAC-SHA256 key size
	if _, err := io.ReadFull(hkdfSign, s.signingKey); err != nil {
		return fmt.Errorf("failed to derive signing key: %w", err)
	}

	return nil
}

// hkdfExtractSHA256 returns PRK = HKDF-Extract(sha256, ikm, salt).
func hkdfExtractSHA256(ikm, salt []byte) []byte {
	prk := hkdf.Extract(sha256.New, ikm, salt)
	out := make([]byte, len(prk))
	copy(out, prk)
	return out
}

// canonicalOrder returns the two byte slices in lexicographic order.
// This ensures both peers produce identical salt bytes.
func canonicalOrder(a, b []byte) (lo, hi []byte) {
	if bytes.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// GetID returns the session identifier
func (s *SecureSession) GetID() string {
	return s.id
}

// GetCreatedAt returns when the session was created
func (s *SecureSession) GetCreatedAt() time.Time {
	return s.createdAt
}

// GetLastUsedAt returns the last activity timestamp
func (s *SecureSession) GetLastUsedAt() time.Time {
	return s.lastUsedAt
}

// IsExpired checks if the session has expired based on configured policies
func (s *SecureSession) IsExpired() bool {
	if s.closed {
		return true
	}

	now := time.Now()

	if s.config.MaxAge > 0 && now.After(s.createdAt.Add(s.config.MaxAge)) {
		return true
	}

	if s.config.IdleTimeout > 0 && now.After(s.lastUsedAt.Add(s.config.IdleTimeout)) {
		return true
	}

	if s.config.MaxMessages > 0 && s.messageCount >= s.config.MaxMessages {
		return true
	}

	return false
}

// UpdateLastUsed updates the last activity timestamp and increments message count
func (s *SecureSession) UpdateLastUsed() {
	s.lastUsedAt = time.Now()
	s.messageCount++
}

// Close marks the session as closed and clears key material.
func (s *SecureSession) Close() error {
	s.closed = true

	if s.signingKey != nil {
		for i := range s.signingKey {
			s.signingKey[i] = 0
		}
	}
	if s.sessionSeed != nil {
		for i := range s.sessionSeed {
			s.sessionSeed[i] = 0
		}
	}

	return nil
}

// GetMessageCount returns the number of messages processed
func (s *SecureSession) GetMessageCount() int {
	return s.messageCount
}

// GetConfig returns the session configuration
func (s *SecureSession) GetConfig() Config {
	return s.config
}

// SignCovered returns HMAC-SHA256(signingKey, covered).
func (s *SecureSession) SignCovered(covered []byte) []byte {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(covered)
	s.UpdateLastUsed()
	return mac.Sum(nil)
}

// VerifyCovered checks a MAC produced by SignCovered on the peer side.
func (s *SecureSession) VerifyCovered(covered, sig []byte) error {
	expected := hmac.New(sha256.New, s.signingKey)
	expected.Write(covered)
	if !hmac.Equal(expected.Sum(nil), sig) {
		return fmt.Errorf("mac mismatch")
	}
	s.UpdateLastUsed()
	return nil
}
