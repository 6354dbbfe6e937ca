package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCredentials is returned when the keystore has no key for an account
var ErrNoCredentials = errors.New("no credentials for account")

// Credentials is a NEAR CLI compatible key file
type Credentials struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key,omitempty"`
	PrivateKey string `json:"private_key"`
}

// Keystore stores credentials as <dir>/<network>/<account>.json, the layout
// used by near-cli
type Keystore struct {
	dir     string
	network string
}

// NewKeystore opens a keystore rooted at dir for the given network
func NewKeystore(dir, network string) *Keystore {
	return &Keystore{dir: dir, network: network}
}

func (k *Keystore) path(accountID string) string {
	return filepath.Join(k.dir, k.network, accountID+".json")
}

// Save writes credentials for an account, replacing existing ones
func (k *Keystore) Save(creds Credentials) error {
	if creds.AccountID == "" || strings.ContainsAny(creds.AccountID, `/\`) {
		return fmt.Errorf("invalid account id '%s'", creds.AccountID)
	}

	if err := os.MkdirAll(filepath.Join(k.dir, k.network), 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(k.path(creds.AccountID), data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Load reads the credentials of an account
func (k *Keystore) Load(accountID string) (*Credentials, error) {
	if accountID == "" {
		return nil, ErrNoCredentials
	}

	data, err := os.ReadFile(k.path(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w %s", ErrNoCredentials, accountID)
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials of %s: %w", accountID, err)
	}
	if creds.PrivateKey == "" {
		return nil, fmt.Errorf("%w %s", ErrNoCredentials, accountID)
	}
	if creds.AccountID == "" {
		creds.AccountID = accountID
	}
	return &creds, nil
}

// Accounts lists the accounts with stored credentials
func (k *Keystore) Accounts() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(k.dir, k.network))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	accounts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		accounts = append(accounts, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return accounts, nil
}
