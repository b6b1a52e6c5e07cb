package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	// MessagePrefix is the fixed leading part of every challenge message.
	// Wallets display it so users can see what they are signing.
	MessagePrefix = "StayFlow authentication challenge:"

	// ChallengeTTL bounds how long a signed challenge remains acceptable.
	// Clock skew beyond this window on either side causes false rejection.
	ChallengeTTL = 5 * time.Minute

	// nonceBytes gives 256 bits of entropy per challenge.
	nonceBytes = 32
)

// Challenge is the triple a wallet must sign to prove key ownership.
// It is never persisted: validity is re-derived at verification time
// from the timestamp the client sends back.
type Challenge struct {
	Nonce     string // random value, hex-encoded
	Timestamp int64  // milliseconds since epoch
	Message   string // canonical string the wallet signs
}

// NewChallenge generates a fresh challenge for the current time.
func NewChallenge() (Challenge, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	nonce := hex.EncodeToString(buf)
	ts := time.Now().UnixMilli()

	return Challenge{
		Nonce:     nonce,
		Timestamp: ts,
		Message:   BuildMessage(nonce, ts),
	}, nil
}

// BuildMessage reconstructs the canonical challenge message. It must be
// byte-for-byte identical to the message originally generated for the
// same nonce and timestamp, since there is no server-side challenge store.
func BuildMessage(nonce string, timestamp int64) string {
	return MessagePrefix + " " + nonce + "." + strconv.FormatInt(timestamp, 10)
}

// TimestampValid reports whether a challenge timestamp is still fresh
// relative to now. The boundary at exactly ChallengeTTL is accepted.
// This is the sole replay defense: a captured signed challenge stays
// replayable until the timestamp ages out of the window.
func TimestampValid(timestamp int64, now time.Time) bool {
	diff := now.UnixMilli() - timestamp
	if diff < 0 {
		diff = -diff
	}
	return diff <= ChallengeTTL.Milliseconds()
}
