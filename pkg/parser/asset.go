package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token standards used in defuse asset identifiers
const (
	StandardNEP141 = "nep141"
	StandardNEP245 = "nep245"
)

var (
	// <chain>-<erc20 address>.omft.near or <chain>.omft.near
	omftPattern   = regexp.MustCompile(`^([a-z0-9]+)(?:-(0x[0-9a-fA-F]+))?\.omft\.near$`)
	amountPattern    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	rawAmountPattern = regexp.MustCompile(`^\d+$`)
)

// AssetID is a parsed defuse asset identifier such as
// "nep141:wrap.near" or "nep141:eth-0xa0b8...eb48.omft.near"
type AssetID struct {
	Standard string
	Contract string
	TokenID  string
	// Set for bridged (omft) tokens
	Chain      string
	EVMAddress string
}

// String re-assembles the identifier
func (a AssetID) String() string {
	if a.TokenID != "" {
		return fmt.Sprintf("%s:%s:%s", a.Standard, a.Contract, a.TokenID)
	}
	return fmt.Sprintf("%s:%s", a.Standard, a.Contract)
}

// IsBridged reports whether the asset is an omft bridged token
func (a AssetID) IsBridged() bool {
	return a.Chain != ""
}

// ParseAssetID parses a defuse asset identifier
func ParseAssetID(id string) (*AssetID, error) {
	parts := strings.SplitN(strings.TrimSpace(id), ":", 3)
	if len(parts) < 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid asset identifier '%s'. Expected: '<standard>:<contract>' (e.g., 'nep141:wrap.near')", id)
	}

	asset := &AssetID{
		Standard: strings.ToLower(parts[0]),
		Contract: parts[1],
	}

	switch asset.Standard {
	case StandardNEP141:
		if len(parts) == 3 {
			return nil, fmt.Errorf("invalid asset identifier '%s': nep141 assets have no token id", id)
		}
	case StandardNEP245:
		if len(parts) != 3 || parts[2] == "" {
			return nil, fmt.Errorf("invalid asset identifier '%s': nep245 assets need a token id", id)
		}
		asset.TokenID = parts[2]
	default:
		return nil, fmt.Errorf("unsupported token standard '%s' in '%s'", parts[0], id)
	}

	if matches := omftPattern.FindStringSubmatch(asset.Contract); matches != nil {
		asset.Chain = matches[1]
		if matches[2] != "" {
			if !common.IsHexAddress(matches[2]) {
				return nil, fmt.Errorf("invalid token address '%s' in '%s'", matches[2], id)
			}
			asset.EVMAddress = common.HexToAddress(matches[2]).Hex()
		}
	}

	return asset, nil
}

// IsAssetID reports whether s looks like an asset identifier rather than a symbol
func IsAssetID(s string) bool {
	return strings.Contains(s, ":")
}

// ValidateAmount checks that amount is a plain non-negative decimal number
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount is required")
	}
	if !amountPattern.MatchString(amount) {
		return fmt.Errorf("invalid amount '%s'. Expected a decimal number (e.g., '1.5')", amount)
	}
	return nil
}

// ValidateRawAmount checks an amount given in a token's smallest unit
func ValidateRawAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount is required")
	}
	if !rawAmountPattern.MatchString(amount) {
		return fmt.Errorf("invalid amount '%s'. Expected a whole number of the token's smallest unit (e.g., '1000000')", amount)
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	// Convert to uppercase for consistency
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Handle common aliases
	aliases := map[string]string{
		"WNEAR": "NEAR",
		"WBTC":  "BTC",
		"WETH":  "ETH",
		"WSOL":  "SOL",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
