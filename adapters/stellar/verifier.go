// Package stellar verifies wallet signatures over challenge messages.
//
// StayFlow wallets are Stellar keypairs: the public key is a strkey
// account ID (G...) wrapping an ed25519 verification key, and signatures
// travel base64-encoded.
package stellar

import (
	"encoding/base64"

	"github.com/stellar/go/keypair"

	"github.com/stayflow/gatekeeper/ports"
)

// Verifier implements the Verifier port for Stellar ed25519 keys.
// It is stateless and safe for concurrent use.
type Verifier struct{}

// NewVerifier creates a signature verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifySignature reports whether signature is a valid ed25519 signature
// by publicKey over the UTF-8 bytes of message. It is total: empty
// inputs, malformed keys, malformed base64 and verification failures all
// return false so callers treat "invalid" and "malformed" identically.
func (v *Verifier) VerifySignature(publicKey, signature, message string) bool {
	if publicKey == "" || signature == "" || message == "" {
		return false
	}

	kp, err := keypair.ParseAddress(publicKey)
	if err != nil {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	return kp.Verify([]byte(message), sig) == nil
}

var _ ports.Verifier = (*Verifier)(nil)
