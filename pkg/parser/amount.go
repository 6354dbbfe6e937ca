package parser

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NearDecimals is the number of yocto digits in one NEAR
const NearDecimals = 24

// ReferralFeeDivisor takes 1% of a swap output as referral fee
const ReferralFeeDivisor = 100

// ErrInvalidAmount is returned for amounts that are not non-negative
// decimal numbers representable in the target unit
var ErrInvalidAmount = errors.New("invalid amount")

// ParseUnits converts a human decimal amount into the smallest unit of a
// token with the given number of decimals, exactly.
func ParseUnits(amount string, decimals int32) (string, error) {
	amount = strings.TrimSpace(amount)
	if err := ValidateAmount(amount); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	if dot := strings.IndexByte(amount, '.'); dot >= 0 && int32(len(amount)-dot-1) > decimals {
		return "", fmt.Errorf("%w: '%s' has more than %d fractional digits", ErrInvalidAmount, amount, decimals)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d.Shift(decimals).BigInt().String(), nil
}

// FormatUnits renders a smallest-unit integer as a decimal amount without
// trailing zeros
func FormatUnits(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !d.IsInteger() {
		return "", fmt.Errorf("%w: '%s' is not an integer", ErrInvalidAmount, amount)
	}
	return d.Shift(-decimals).String(), nil
}

// ParseNearAmount converts NEAR to yocto ("1" -> "1" followed by 24 zeros)
func ParseNearAmount(amount string) (string, error) {
	return ParseUnits(amount, NearDecimals)
}

// FormatNearAmount converts yocto to NEAR
func FormatNearAmount(yocto string) (string, error) {
	return FormatUnits(yocto, NearDecimals)
}

// SplitReferralFee splits an integer amount into floor(amount/100) and the
// remainder
func SplitReferralFee(amount string) (fee, net string, err error) {
	total, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok || total.Sign() < 0 {
		return "", "", fmt.Errorf("%w: '%s' is not a non-negative integer", ErrInvalidAmount, amount)
	}

	feeAmount := new(big.Int).Quo(total, big.NewInt(ReferralFeeDivisor))
	netAmount := new(big.Int).Sub(total, feeAmount)
	return feeAmount.String(), netAmount.String(), nil
}
