// Package signer produces signed intent payloads in the standards accepted
// by the intents verifying contract.
package signer

import (
	"errors"

	"divvy/pkg/types"
)

// Supported signing standards
const (
	StandardNEP413     = "nep413"
	StandardRawEd25519 = "raw_ed25519"
	StandardERC191     = "erc191"
)

var (
	// ErrInvalidKey is returned when a secret key cannot be parsed
	ErrInvalidKey = errors.New("invalid secret key")
	// ErrUnsupportedStandard is returned for unknown signing standards
	ErrUnsupportedStandard = errors.New("unsupported signing standard")
)

// MessageSigner signs intent messages on behalf of an account
type MessageSigner interface {
	// Standard names the signing standard of produced payloads
	Standard() string
	// PublicKey returns the public key (or address) identifying the signer
	PublicKey() string
	// SignMessage signs an intent message
	SignMessage(req types.SignMessageRequest) (*types.SignedData, error)
}

// New builds a message signer for the given standard from a secret key.
// Ed25519 standards take "ed25519:<base58>" keys, erc191 takes a hex
// secp256k1 key.
func New(standard, secretKey string) (MessageSigner, error) {
	switch standard {
	case StandardNEP413, StandardRawEd25519:
		kp, err := ParseKeyPair(secretKey)
		if err != nil {
			return nil, err
		}
		if standard == StandardNEP413 {
			return NewNEP413Signer(kp), nil
		}
		return NewRawEd25519Signer(kp), nil
	case StandardERC191:
		return NewERC191Signer(secretKey)
	default:
		return nil, ErrUnsupportedStandard
	}
}
