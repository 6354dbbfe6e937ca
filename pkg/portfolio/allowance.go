package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Stablecoins the assistant offers; requests are not checked against it
var Stablecoins = []string{"USDT", "USDC"}

// Field accepts a JSON string, number or boolean. Empty strings, zero,
// false and null count as missing.
type Field string

// UnmarshalJSON keeps strings as-is and numbers in their JSON spelling
func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*f = ""
	case bytes.Equal(data, []byte("true")):
		*f = "true"
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		// Objects and arrays are truthy; render them as received
		*f = Field(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid value %s", string(data))
		}
		if f64, err := n.Float64(); err == nil && f64 == 0 {
			*f = ""
			return nil
		}
		*f = Field(n.String())
	}
	return nil
}

func (f Field) String() string { return string(f) }

// AllowanceConfig is a create-allowance request
type AllowanceConfig struct {
	TargetGrowthRate Field `json:"targetGrowthRate"`
	AllowanceAmount  Field `json:"allowanceAmount"`
	Frequency        Field `json:"frequency"`
	Stablecoin       Field `json:"stablecoin"`
}

// Validate returns ErrMissingFields when any field is missing
func (c AllowanceConfig) Validate() error {
	if c.TargetGrowthRate == "" || c.AllowanceAmount == "" || c.Frequency == "" || c.Stablecoin == "" {
		return ErrMissingFields
	}
	return nil
}

// DecodeAllowance parses a request body. A body that is not JSON, or is
// JSON null, yields ErrCreateFailed; any other non-object yields an empty
// config that fails validation.
func DecodeAllowance(body []byte) (AllowanceConfig, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return AllowanceConfig{}, ErrCreateFailed
	}

	var cfg AllowanceConfig
	if _, ok := raw.(map[string]interface{}); !ok {
		return cfg, nil
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return AllowanceConfig{}, fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	return cfg, nil
}

// IsKnownStablecoin reports whether s is one of Stablecoins
func IsKnownStablecoin(s string) bool {
	for _, coin := range Stablecoins {
		if strings.EqualFold(coin, s) {
			return true
		}
	}
	return false
}
