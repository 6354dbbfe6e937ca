package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/pkg/signer"
	"divvy/pkg/types"
)

func TestEncodeTransaction(t *testing.T) {
	pub := make([]byte, 32)
	pub[0] = 7
	hash := make([]byte, 32)
	hash[31] = 9

	tx := types.Transaction{
		ReceiverID: "wrap.near",
		Actions:    []types.Action{types.NewFunctionCall("near_deposit", nil, "30000000000000", "1")},
	}

	got, err := encodeTransaction("alice.near", pub, 5, base58.Encode(hash), tx)
	require.NoError(t, err)

	str := func(b []byte, s string) []byte {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
		return append(b, s...)
	}

	var want []byte
	want = str(want, "alice.near")
	want = append(want, 0)
	want = append(want, pub...)
	want = binary.LittleEndian.AppendUint64(want, 5)
	want = str(want, "wrap.near")
	want = append(want, hash...)
	want = binary.LittleEndian.AppendUint32(want, 1)
	want = append(want, 2)
	want = str(want, "near_deposit")
	want = str(want, "{}")
	want = binary.LittleEndian.AppendUint64(want, 30000000000000)
	deposit := make([]byte, 16)
	deposit[0] = 1
	want = append(want, deposit...)

	assert.Equal(t, want, got)
}

func TestEncodeTransactionRejects(t *testing.T) {
	pub := make([]byte, 32)
	hash := base58.Encode(make([]byte, 32))
	call := func(gas, deposit string) types.Transaction {
		return types.Transaction{ReceiverID: "x.near", Actions: []types.Action{types.NewFunctionCall("m", nil, gas, deposit)}}
	}

	_, err := encodeTransaction("a.near", pub[:31], 1, hash, call("1", "0"))
	assert.Error(t, err)
	_, err = encodeTransaction("a.near", pub, 1, "not-base58-0OIl", call("1", "0"))
	assert.Error(t, err)
	_, err = encodeTransaction("a.near", pub, 1, hash, call("lots", "0"))
	assert.Error(t, err)
	_, err = encodeTransaction("a.near", pub, 1, hash, call("1", "-1"))
	assert.Error(t, err)
	_, err = encodeTransaction("a.near", pub, 1, hash, types.Transaction{Actions: []types.Action{{Type: "Transfer"}}})
	assert.Error(t, err)
}

func TestToUint128(t *testing.T) {
	v, err := toUint128("258")
	require.NoError(t, err)
	assert.Equal(t, uint64(258), v.Lo)
	assert.Equal(t, uint64(0), v.Hi)

	// 2^64 + 3
	v, err = toUint128("18446744073709551619")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v.Lo)
	assert.Equal(t, uint64(1), v.Hi)

	max := "340282366920938463463374607431768211455"
	v, err = toUint128(max)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v.Lo)
	assert.Equal(t, uint64(math.MaxUint64), v.Hi)

	for _, bad := range []string{"340282366920938463463374607431768211456", "-1", "1.5", ""} {
		_, err := toUint128(bad)
		assert.Error(t, err, bad)
	}
}

func TestSignTransaction(t *testing.T) {
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)

	unsigned := []byte("unsigned transaction bytes")
	signed, txHash, err := signTransaction(unsigned, kp.Sign)
	require.NoError(t, err)

	digest := sha256.Sum256(unsigned)
	assert.Equal(t, base58.Encode(digest[:]), txHash)
	require.Len(t, signed, len(unsigned)+1+64)
	assert.Equal(t, unsigned, signed[:len(unsigned)])
	assert.Equal(t, byte(0), signed[len(unsigned)])
	assert.True(t, ed25519.Verify(kp.PublicKeyBytes(), digest[:], signed[len(unsigned)+1:]))
}
