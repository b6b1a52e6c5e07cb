package ports

import "github.com/stayflow/gatekeeper/core"

// Tokenizer converts between sessions and their signed wire form.
type Tokenizer interface {
	// SessionToToken produces a signed, compact credential for a session.
	SessionToToken(session *core.Session) (string, error)

	// TokenToSession parses and verifies a credential. It fails closed:
	// any malformed, tampered or expired token yields (nil, error).
	TokenToSession(token string) (*core.Session, error)
}

// Verifier checks that a signature over a challenge message was produced
// by the holder of the claimed public key.
type Verifier interface {
	// VerifySignature is total: malformed keys, malformed signatures and
	// verification failures all return false, never an error.
	VerifySignature(publicKey, signature, message string) bool
}
