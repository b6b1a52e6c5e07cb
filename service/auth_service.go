package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stellar/go/strkey"

	"github.com/stayflow/gatekeeper/core"
	"github.com/stayflow/gatekeeper/ports"
)

// AuthService implements the wallet challenge-response flow: challenge
// generation, signature verification and session issuance.
type AuthService struct {
	tokenizer ports.Tokenizer
	verifier  ports.Verifier
	eventPub  ports.EventPublisher
	log       *slog.Logger
}

// NewAuthService creates an authentication service. eventPub may be nil
// when no event transport is configured.
func NewAuthService(
	tokenizer ports.Tokenizer,
	verifier ports.Verifier,
	eventPub ports.EventPublisher,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		tokenizer: tokenizer,
		verifier:  verifier,
		eventPub:  eventPub,
		log:       log,
	}
}

// CreateChallenge generates a challenge for a wallet to sign. The key is
// validated up front so malformed addresses fail before a nonce is spent.
// Nothing is stored: the challenge is fully reconstructible from the
// nonce and timestamp the client sends back.
func (s *AuthService) CreateChallenge(publicKey string) (core.Challenge, error) {
	if publicKey == "" {
		return core.Challenge{}, core.ErrMissingField
	}
	if !strkey.IsValidEd25519PublicKey(publicKey) {
		return core.Challenge{}, core.ErrInvalidPublicKey
	}

	challenge, err := core.NewChallenge()
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to create challenge: %w", err)
	}

	return challenge, nil
}

// VerifyLogin checks a signed challenge and, on success, mints a session
// token for the wallet. Timestamp freshness is checked before the
// signature so replayed payloads are rejected cheaply once they age out.
func (s *AuthService) VerifyLogin(ctx context.Context, publicKey, signature string, nonce string, timestamp int64) (*core.Session, string, error) {
	if publicKey == "" || signature == "" || nonce == "" || timestamp == 0 {
		return nil, "", core.ErrMissingField
	}

	if !core.TimestampValid(timestamp, time.Now()) {
		return nil, "", core.ErrChallengeExpired
	}

	message := core.BuildMessage(nonce, timestamp)
	if !s.verifier.VerifySignature(publicKey, signature, message) {
		return nil, "", core.ErrInvalidSignature
	}

	session := core.NewSession(publicKey)

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, publicKey); err != nil {
			// Best-effort: the session is already issued.
			s.log.WarnContext(ctx, "failed to publish login event",
				slog.String("public_key", publicKey),
				slog.Any("error", err))
		}
	}

	return session, token, nil
}

// ValidateSession verifies a session token. Fails closed on any error.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Logout records a session termination. It always succeeds: the session
// credential lives client-side and is cleared by the transport layer;
// here we only publish the event when a valid session existed.
func (s *AuthService) Logout(ctx context.Context, token string) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return
	}

	s.log.InfoContext(ctx, "wallet logged out", slog.String("public_key", session.PublicKey))

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.PublicKey); err != nil {
			s.log.WarnContext(ctx, "failed to publish logout event",
				slog.String("public_key", session.PublicKey),
				slog.Any("error", err))
		}
	}
}
