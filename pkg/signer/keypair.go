package signer

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const ed25519Prefix = "ed25519:"

// KeyPair is an ed25519 key pair in NEAR's "ed25519:<base58>" text format.
// NEAR and Solana share the 64-byte secret key layout.
type KeyPair struct {
	privateKey solana.PrivateKey
}

// ParseKeyPair parses a NEAR secret key such as "ed25519:3D4YudUQRE..."
func ParseKeyPair(secretKey string) (*KeyPair, error) {
	encoded := strings.TrimPrefix(strings.TrimSpace(secretKey), ed25519Prefix)
	if encoded == "" {
		return nil, ErrInvalidKey
	}

	privateKey, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(privateKey) != 64 {
		return nil, fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidKey, len(privateKey))
	}

	return &KeyPair{privateKey: privateKey}, nil
}

// GenerateKeyPair creates a new random key pair
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &KeyPair{privateKey: privateKey}, nil
}

// PublicKey returns the public key as "ed25519:<base58>"
func (k *KeyPair) PublicKey() string {
	return ed25519Prefix + k.privateKey.PublicKey().String()
}

// PublicKeyBytes returns the raw 32-byte public key
func (k *KeyPair) PublicKeyBytes() []byte {
	return k.privateKey.PublicKey().Bytes()
}

// SecretKey returns the secret key as "ed25519:<base58>"
func (k *KeyPair) SecretKey() string {
	return ed25519Prefix + k.privateKey.String()
}

// Sign signs data and returns the raw 64-byte signature
func (k *KeyPair) Sign(data []byte) ([]byte, error) {
	sig, err := k.privateKey.Sign(data)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig[:], nil
}

// EncodeSignature formats a raw ed25519 signature as "ed25519:<base58>"
func EncodeSignature(sig []byte) string {
	return ed25519Prefix + base58.Encode(sig)
}
