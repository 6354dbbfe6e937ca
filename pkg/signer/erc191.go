package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"divvy/pkg/types"
)

const secp256k1Prefix = "secp256k1:"

// ERC191Signer signs messages as Ethereum personal_sign does, for accounts
// controlled by an EVM wallet
type ERC191Signer struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewERC191Signer creates a signer from a hex encoded secp256k1 key
func NewERC191Signer(hexKey string) (*ERC191Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &ERC191Signer{
		privateKey: privateKey,
		address:    strings.ToLower(crypto.PubkeyToAddress(privateKey.PublicKey).Hex()),
	}, nil
}

func (s *ERC191Signer) Standard() string { return StandardERC191 }

// PublicKey returns the lowercase EVM address, which is also the account id
func (s *ERC191Signer) PublicKey() string { return s.address }

// SignMessage signs keccak256("\x19Ethereum Signed Message:\n" + len + message)
func (s *ERC191Signer) SignMessage(req types.SignMessageRequest) (*types.SignedData, error) {
	hash := accounts.TextHash([]byte(req.Message))

	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("erc191: failed to sign: %w", err)
	}

	return &types.SignedData{
		Standard:  StandardERC191,
		Payload:   req.Message,
		Signature: secp256k1Prefix + base58.Encode(sig),
	}, nil
}
