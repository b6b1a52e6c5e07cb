package core

import "time"

// SessionTTL is how long an issued session credential stays valid.
const SessionTTL = 24 * time.Hour

// Session represents an authenticated wallet session. The server keeps
// no session table: a session exists exactly as long as a valid signed
// token for it does.
type Session struct {
	PublicKey string    // Stellar account ID of the authenticated wallet
	IssuedAt  time.Time // when the session was created
	ExpiresAt time.Time // when the session credential expires
}

// NewSession creates a session for an address starting now.
func NewSession(publicKey string) *Session {
	now := time.Now()
	return &Session{
		PublicKey: publicKey,
		IssuedAt:  now,
		ExpiresAt: now.Add(SessionTTL),
	}
}

// Expired reports whether the session credential has aged out.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
