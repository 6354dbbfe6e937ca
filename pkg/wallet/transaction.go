package wallet

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"

	"divvy/pkg/types"
)

const (
	keyTypeED25519     = 0
	actionFunctionCall = 2
)

// encodeTransaction borsh-encodes an unsigned NEAR transaction
func encodeTransaction(signerID string, publicKey []byte, nonce uint64, blockHash string, tx types.Transaction) ([]byte, error) {
	if len(publicKey) != 32 {
		return nil, fmt.Errorf("expected 32 byte public key, got %d", len(publicKey))
	}

	hash, err := base58.Decode(blockHash)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("invalid block hash '%s'", blockHash)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteString(signerID); err != nil {
		return nil, err
	}
	if err := writeED25519(enc, publicKey); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(nonce, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteString(tx.ReceiverID); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(hash, false); err != nil {
		return nil, err
	}

	if err := enc.WriteUint32(uint32(len(tx.Actions)), bin.LE); err != nil {
		return nil, err
	}
	for i, action := range tx.Actions {
		if err := encodeAction(enc, action); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}

	return buf.Bytes(), nil
}

// writeED25519 writes an ed25519 public key or signature with its key type tag
func writeED25519(enc *bin.Encoder, data []byte) error {
	if err := enc.WriteUint8(keyTypeED25519); err != nil {
		return err
	}
	return enc.WriteBytes(data, false)
}

func encodeAction(enc *bin.Encoder, action types.Action) error {
	if action.Type != "FunctionCall" {
		return fmt.Errorf("unsupported action type '%s'", action.Type)
	}
	call := action.Params

	args, err := json.Marshal(call.Args)
	if err != nil {
		return fmt.Errorf("failed to encode args of %s: %w", call.MethodName, err)
	}

	gas, err := strconv.ParseUint(call.Gas, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid gas '%s'", call.Gas)
	}

	deposit, err := toUint128(call.Deposit)
	if err != nil {
		return err
	}

	if err := enc.WriteUint8(actionFunctionCall); err != nil {
		return err
	}
	if err := enc.WriteString(call.MethodName); err != nil {
		return err
	}
	if err := enc.WriteBytes(args, true); err != nil {
		return err
	}
	if err := enc.WriteUint64(gas, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint128(deposit, bin.LE)
}

// toUint128 parses a yoctoNEAR amount into a u128
func toUint128(amount string) (bin.Uint128, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 128 {
		return bin.Uint128{}, fmt.Errorf("invalid deposit '%s'", amount)
	}
	lo := new(big.Int).And(v, new(big.Int).SetUint64(math.MaxUint64))
	return bin.Uint128{
		Lo:         lo.Uint64(),
		Hi:         new(big.Int).Rsh(v, 64).Uint64(),
		Endianness: bin.LE,
	}, nil
}

// signTransaction appends an ed25519 signature over sha256(tx) and returns
// the signed transaction bytes and the transaction hash
func signTransaction(unsigned []byte, sign func([]byte) ([]byte, error)) ([]byte, string, error) {
	digest := sha256.Sum256(unsigned)

	sig, err := sign(digest[:])
	if err != nil {
		return nil, "", err
	}
	if len(sig) != 64 {
		return nil, "", fmt.Errorf("expected 64 byte signature, got %d", len(sig))
	}

	buf := bytes.NewBuffer(append([]byte(nil), unsigned...))
	enc := bin.NewBorshEncoder(buf)
	if err := writeED25519(enc, sig); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), base58.Encode(digest[:]), nil
}
