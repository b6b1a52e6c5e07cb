package tokenizer

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stellar/go/strkey"

	"github.com/stayflow/gatekeeper/core"
	"github.com/stayflow/gatekeeper/ports"
)

// AudienceSession tags session tokens so credentials minted for other
// purposes can never pass session verification.
const AudienceSession = "gatekeeper:session"

// minSecretLen is the minimum HMAC secret length. Anything shorter is a
// deployment mistake and must abort startup, not surface per-request.
const minSecretLen = 32

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// JWTTokenizer implements the Tokenizer port with HS256-signed JWTs.
type JWTTokenizer struct {
	secret []byte
}

// NewJWTTokenizer creates a tokenizer from the server signing secret.
// It returns an error for absent or short secrets so misconfiguration
// fails fast at startup.
func NewJWTTokenizer(secret []byte) (*JWTTokenizer, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", minSecretLen, len(secret))
	}
	return &JWTTokenizer{secret: secret}, nil
}

// SessionToToken produces the signed credential for a session.
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.PublicKey,
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// TokenToSession parses and verifies a session credential. This is the
// sole gate for "is this request authenticated" and fails closed: any
// malformed token, bad signature, wrong audience, expired claim or
// non-Stellar subject yields (nil, error).
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrInvalidToken
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, core.ErrInvalidToken
	}

	// Hardening: the subject must be a well-formed Stellar account ID,
	// not just a non-empty string.
	if !strkey.IsValidEd25519PublicKey(claims.Subject) {
		return nil, core.ErrInvalidToken
	}

	return &core.Session{
		PublicKey: claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// compile-time interface check
var _ ports.Tokenizer = (*JWTTokenizer)(nil)
