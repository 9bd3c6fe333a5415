// Package envelope provides the optional symmetric authenticated-encryption
// wrapper used by the manual and MQTT signaling transports.
package envelope

import (
	"errors"
	"fmt"

	"github.com/aidantwoods/go-paseto"
)

// KeySize is the required length, in bytes, of a symmetric secret.
const KeySize = 32

// claimKey is the PASETO claim carrying the wrapped message text.
const claimKey = "msg"

// ErrDecryptFailed is returned when a token fails to decrypt or verify.
var ErrDecryptFailed = errors.New("envelope: decrypt failed")

// ErrParseFailed is returned when a decrypted token's claims are malformed.
var ErrParseFailed = errors.New("envelope: parse failed")

// Secret is a 32-byte symmetric key used for PASETO v4.local tokens.
type Secret struct {
	key paseto.V4SymmetricKey
}

// NewSecret builds a Secret from exactly KeySize raw bytes.
func NewSecret(raw []byte) (Secret, error) {
	if len(raw) != KeySize {
		return Secret{}, fmt.Errorf("envelope: secret must be %d bytes, got %d", KeySize, len(raw))
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return Secret{}, fmt.Errorf("envelope: %w", err)
	}
	return Secret{key: key}, nil
}

// Wrap encrypts msg into a PASETO v4.local token carrying it under claim
// "msg".
func Wrap(secret Secret, msg string) (string, error) {
	token := paseto.NewToken()
	if err := token.SetString(claimKey, msg); err != nil {
		return "", fmt.Errorf("envelope: set claim: %w", err)
	}
	return token.V4Encrypt(secret.key, nil), nil
}

// Unwrap decrypts a PASETO v4.local token and returns the "msg" claim.
func Unwrap(secret Secret, token string) (string, error) {
	parser := paseto.NewParser()
	parsed, err := parser.ParseV4Local(secret.key, token, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	msg, err := parsed.GetString(claimKey)
	if err != nil {
		return "", fmt.Errorf("%w: missing claim: %v", ErrParseFailed, err)
	}
	return msg, nil
}
