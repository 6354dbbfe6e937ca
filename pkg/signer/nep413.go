package signer

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"divvy/pkg/types"
)

// nep413Tag is 2^31 + 413, prefixed to every NEP-413 payload
const nep413Tag uint32 = 1<<31 + 413

// NEP413Signer signs messages the way NEAR wallets implement signMessage
type NEP413Signer struct {
	keys *KeyPair
}

// NewNEP413Signer creates a NEP-413 signer
func NewNEP413Signer(keys *KeyPair) *NEP413Signer {
	return &NEP413Signer{keys: keys}
}

func (s *NEP413Signer) Standard() string  { return StandardNEP413 }
func (s *NEP413Signer) PublicKey() string { return s.keys.PublicKey() }

// SignMessage signs sha256(tag || borsh(message, nonce, recipient, callbackUrl))
func (s *NEP413Signer) SignMessage(req types.SignMessageRequest) (*types.SignedData, error) {
	hash, err := NEP413Hash(req)
	if err != nil {
		return nil, fmt.Errorf("nep413: %w", err)
	}

	sig, err := s.keys.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("nep413: %w", err)
	}

	return &types.SignedData{
		Standard: StandardNEP413,
		Payload: types.NEP413Payload{
			Message:     req.Message,
			Nonce:       base64.StdEncoding.EncodeToString(req.Nonce[:]),
			Recipient:   req.Recipient,
			CallbackURL: req.CallbackURL,
		},
		Signature: EncodeSignature(sig),
		PublicKey: s.keys.PublicKey(),
	}, nil
}

// NEP413Hash returns the digest a NEP-413 signature commits to
func NEP413Hash(req types.SignMessageRequest) ([32]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint32(nep413Tag, bin.LE); err != nil {
		return [32]byte{}, err
	}
	if err := enc.WriteString(req.Message); err != nil {
		return [32]byte{}, err
	}
	if err := enc.WriteBytes(req.Nonce[:], false); err != nil {
		return [32]byte{}, err
	}
	if err := enc.WriteString(req.Recipient); err != nil {
		return [32]byte{}, err
	}
	// callbackUrl is Option<String>; empty encodes as None
	if err := enc.WriteBool(req.CallbackURL != ""); err != nil {
		return [32]byte{}, err
	}
	if req.CallbackURL != "" {
		if err := enc.WriteString(req.CallbackURL); err != nil {
			return [32]byte{}, err
		}
	}

	return sha256.Sum256(buf.Bytes()), nil
}
