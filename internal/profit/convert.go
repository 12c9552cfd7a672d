package profit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ConversionError reports a numeric field that could not be parsed. The
// failing field and raw value are carried so callers can attribute the
// failure precisely instead of silently defaulting.
type ConversionError struct {
	Field string
	Value string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("field %q: cannot parse %q as a decimal", e.Field, e.Value)
}

// ParseDecimal is the strict parse-or-reject boundary for numeric input.
// Empty strings and malformed numbers fail with a *ConversionError; there is
// no silent zero fallback.
func ParseDecimal(field, value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, &ConversionError{Field: field, Value: value}
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, &ConversionError{Field: field, Value: value}
	}
	return d, nil
}

// ParseOptionalDecimal parses a numeric field where absence is a valid state,
// such as a product cost that has not been entered yet. An empty string
// yields (nil, nil); anything non-empty must parse.
func ParseOptionalDecimal(field, value string) (*decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := ParseDecimal(field, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
