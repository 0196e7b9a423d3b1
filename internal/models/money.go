package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places every balance and amount carries.
const AmountScale = 2

// MaxAmount is the largest value a numeric(12,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount must have at most 2 decimal places")
	ErrAmountTooLarge    = errors.New("amount exceeds the maximum supported value")
)

// ValidateAmount accepts positive amounts representable at AmountScale.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrAmountNotPositive
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return ErrAmountPrecision
	}
	if d.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// ParseAmount parses a decimal string and validates it like ValidateAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// FormatAmount renders d with exactly AmountScale decimals ("250.50").
func FormatAmount(d decimal.Decimal) string { return d.StringFixed(AmountScale) }
