package signer

import (
	"fmt"

	"divvy/pkg/types"
)

// RawEd25519Signer signs the message bytes directly
type RawEd25519Signer struct {
	keys *KeyPair
}

// NewRawEd25519Signer creates a raw_ed25519 signer
func NewRawEd25519Signer(keys *KeyPair) *RawEd25519Signer {
	return &RawEd25519Signer{keys: keys}
}

func (s *RawEd25519Signer) Standard() string  { return StandardRawEd25519 }
func (s *RawEd25519Signer) PublicKey() string { return s.keys.PublicKey() }

// SignMessage signs req.Message as-is; nonce and recipient travel inside it
func (s *RawEd25519Signer) SignMessage(req types.SignMessageRequest) (*types.SignedData, error) {
	sig, err := s.keys.Sign([]byte(req.Message))
	if err != nil {
		return nil, fmt.Errorf("raw_ed25519: %w", err)
	}

	return &types.SignedData{
		Standard:  StandardRawEd25519,
		Payload:   req.Message,
		Signature: EncodeSignature(sig),
		PublicKey: s.keys.PublicKey(),
	}, nil
}
