package tokenizer

import (
	"strings"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayflow/gatekeeper/core"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	tk, err := NewJWTTokenizer(testSecret)
	require.NoError(t, err)
	return tk
}

func TestNewJWTTokenizer_SecretValidation(t *testing.T) {
	tests := []struct {
		name    string
		secret  []byte
		wantErr bool
	}{
		{"nil secret", nil, true},
		{"empty secret", []byte{}, true},
		{"31 bytes", []byte(strings.Repeat("a", 31)), true},
		{"32 bytes", []byte(strings.Repeat("a", 32)), false},
		{"longer secret", []byte(strings.Repeat("a", 64)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJWTTokenizer(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionToken_RoundTrip(t *testing.T) {
	tk := newTokenizer(t)
	address := keypair.MustRandom().Address()

	session := core.NewSession(address)

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, address, parsed.PublicKey)
	assert.WithinDuration(t, session.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestTokenToSession_FailsClosed(t *testing.T) {
	tk := newTokenizer(t)
	address := keypair.MustRandom().Address()

	valid, err := tk.SessionToToken(core.NewSession(address))
	require.NoError(t, err)

	otherSecret, err := NewJWTTokenizer([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)
	foreign, err := otherSecret.SessionToToken(core.NewSession(address))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage", "not.a.jwt"},
		{"tampered payload", tamper(valid)},
		{"signed with different secret", foreign},
		{"truncated", valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := tk.TokenToSession(tt.token)
			assert.Error(t, err)
			assert.Nil(t, session)
		})
	}
}

func TestTokenToSession_Expired(t *testing.T) {
	tk := newTokenizer(t)
	address := keypair.MustRandom().Address()

	session := &core.Session{
		PublicKey: address,
		IssuedAt:  time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	parsed, err := tk.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
	assert.Nil(t, parsed)
}

func TestTokenToSession_RejectsNonStellarSubject(t *testing.T) {
	tk := newTokenizer(t)

	token, err := tk.SessionToToken(core.NewSession("alice@example.com"))
	require.NoError(t, err)

	parsed, err := tk.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
	assert.Nil(t, parsed)
}

// tamper flips a character inside the payload segment.
func tamper(token string) string {
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)
	return strings.Join(parts, ".")
}
