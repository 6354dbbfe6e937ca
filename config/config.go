package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	// Network and endpoints
	Network     string
	NearRPCURL  string
	RelayURL    string
	OneClickURL string
	OneClickJWT string

	// Wallet
	AccountID       string
	CredentialsDir  string
	SigningStandard string

	// Intent parameters
	VerifyingContract string
	WrapContract      string
	SwapInputAsset    string
	SwapOutputAsset   string
	ReferralAccount   string
	WithdrawToken     string
	WithdrawFromAsset string
	WithdrawToAsset   string
	WithdrawReferral  string
	Deadline          time.Duration
	MinDeadline       time.Duration

	// Server
	ServerAddr      string
	PluginURL       string
	PluginAccountID string
	CORSOrigins     []string
	MockSeed        int64

	// Local state and logging
	ActivityFile string
	LogLevel     string
	Stage        string
}

var globalConfig *Config

const configName = ".divvy"

func init() {
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("network", "mainnet")
	viper.SetDefault("relay_url", "https://solver-relay-v2.chaindefuser.com/rpc")
	viper.SetDefault("oneclick_url", "https://1click.chaindefuser.com")
	viper.SetDefault("signing_standard", "nep413")
	viper.SetDefault("verifying_contract", "intents.near")
	viper.SetDefault("wrap_contract", "wrap.near")
	viper.SetDefault("swap_input_asset", "nep141:wrap.near")
	viper.SetDefault("swap_output_asset", "nep141:17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1")
	viper.SetDefault("referral_account", "benevio-labs.near")
	viper.SetDefault("withdraw_token", "17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1")
	viper.SetDefault("withdraw_from_asset", "nep141:eth-0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48.omft.near")
	viper.SetDefault("withdraw_to_asset", "nep141:17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1")
	viper.SetDefault("withdraw_referral", "near-intents.intents-referral.near")
	viper.SetDefault("deadline_ms", 60000)
	viper.SetDefault("min_deadline_ms", 60000)
	viper.SetDefault("server_addr", ":3000")
	viper.SetDefault("plugin_url", "http://localhost:3000")
	viper.SetDefault("plugin_account_id", "divvy.near")
	viper.SetDefault("cors_origins", []string{"*"})
	viper.SetDefault("mock_seed", 0)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("stage", "dev")

	// Read from environment variables
	viper.SetEnvPrefix("DIVVY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	// Config file is optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Network:           viper.GetString("network"),
		NearRPCURL:        viper.GetString("near_rpc_url"),
		RelayURL:          viper.GetString("relay_url"),
		OneClickURL:       viper.GetString("oneclick_url"),
		OneClickJWT:       viper.GetString("oneclick_jwt"),
		AccountID:         viper.GetString("account_id"),
		CredentialsDir:    viper.GetString("credentials_dir"),
		SigningStandard:   viper.GetString("signing_standard"),
		VerifyingContract: viper.GetString("verifying_contract"),
		WrapContract:      viper.GetString("wrap_contract"),
		SwapInputAsset:    viper.GetString("swap_input_asset"),
		SwapOutputAsset:   viper.GetString("swap_output_asset"),
		ReferralAccount:   viper.GetString("referral_account"),
		WithdrawToken:     viper.GetString("withdraw_token"),
		WithdrawFromAsset: viper.GetString("withdraw_from_asset"),
		WithdrawToAsset:   viper.GetString("withdraw_to_asset"),
		WithdrawReferral:  viper.GetString("withdraw_referral"),
		Deadline:          time.Duration(viper.GetInt64("deadline_ms")) * time.Millisecond,
		MinDeadline:       time.Duration(viper.GetInt64("min_deadline_ms")) * time.Millisecond,
		ServerAddr:        viper.GetString("server_addr"),
		PluginURL:         viper.GetString("plugin_url"),
		PluginAccountID:   viper.GetString("plugin_account_id"),
		CORSOrigins:       viper.GetStringSlice("cors_origins"),
		MockSeed:          viper.GetInt64("mock_seed"),
		ActivityFile:      viper.GetString("activity_file"),
		LogLevel:          viper.GetString("log_level"),
		Stage:             viper.GetString("stage"),
	}

	if cfg.NearRPCURL == "" {
		cfg.NearRPCURL = fmt.Sprintf("https://rpc.%s.near.org", cfg.Network)
	}

	if cfg.CredentialsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.CredentialsDir = filepath.Join(home, ".near-credentials")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Validate checks the values that have no usable fallback
func (c *Config) Validate() error {
	if c.RelayURL == "" {
		return fmt.Errorf("relay URL is required. Set DIVVY_RELAY_URL or relay_url in .divvy.yaml")
	}
	if c.Deadline <= 0 {
		return fmt.Errorf("deadline_ms must be greater than 0")
	}
	if c.MinDeadline <= 0 {
		return fmt.Errorf("min_deadline_ms must be greater than 0")
	}
	switch c.SigningStandard {
	case "nep413", "raw_ed25519", "erc191":
	default:
		return fmt.Errorf("unsupported signing standard %q (expected nep413, raw_ed25519 or erc191)", c.SigningStandard)
	}
	return nil
}

// RequireOneClickToken returns an error when no 1Click JWT is configured
func (c *Config) RequireOneClickToken() error {
	if c.OneClickJWT == "" {
		return fmt.Errorf("JWT token not found. Please set DIVVY_ONECLICK_JWT environment variable or oneclick_jwt in .divvy.yaml")
	}
	return nil
}

// SetActiveAccount records the signed-in account in the config file.
// An empty accountID marks the session as signed out. The value goes to the
// file rather than a viper override so later file edits still apply.
func SetActiveAccount(accountID string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, configName+".yaml")
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	file.Set("account_id", accountID)
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config file %s: %w", path, err)
	}

	if globalConfig != nil {
		globalConfig.AccountID = accountID
	}
	return nil
}

// ActiveAccount returns the account currently marked active in the store
func ActiveAccount() string {
	return viper.GetString("account_id")
}

// Watch re-reads the config file whenever it changes and calls onChange
// with the active account id.
func Watch(onChange func(accountID string)) {
	viper.OnConfigChange(func(in fsnotify.Event) {
		onChange(viper.GetString("account_id"))
	})
	viper.WatchConfig()
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

// AccountStore exposes the active account setting to the wallet session
type AccountStore struct{}

func (AccountStore) ActiveAccount() string { return ActiveAccount() }

func (AccountStore) SetActiveAccount(accountID string) error { return SetActiveAccount(accountID) }
