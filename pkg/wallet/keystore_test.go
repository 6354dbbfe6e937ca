package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeystoreSaveLoad(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeystore(dir, "testnet")

	creds := Credentials{AccountID: "alice.testnet", PublicKey: "ed25519:pub", PrivateKey: "ed25519:secret"}
	require.NoError(t, ks.Save(creds))

	info, err := os.Stat(filepath.Join(dir, "testnet", "alice.testnet.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := ks.Load("alice.testnet")
	require.NoError(t, err)
	assert.Equal(t, creds, *loaded)

	accounts, err := ks.Accounts()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice.testnet"}, accounts)
}

func TestKeystoreMissing(t *testing.T) {
	ks := NewKeystore(t.TempDir(), "mainnet")

	_, err := ks.Load("bob.near")
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = ks.Load("")
	assert.ErrorIs(t, err, ErrNoCredentials)

	accounts, err := ks.Accounts()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestKeystoreRejectsPaths(t *testing.T) {
	ks := NewKeystore(t.TempDir(), "mainnet")
	assert.Error(t, ks.Save(Credentials{AccountID: "../evil", PrivateKey: "x"}))
	assert.Error(t, ks.Save(Credentials{PrivateKey: "x"}))
}
