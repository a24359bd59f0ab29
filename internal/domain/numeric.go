package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal accepts comma or dot as the decimal separator. When both are
// present the dot is treated as a thousands separator (1.234,56). Empty or
// unparseable input returns fallback.
func ParseDecimal(raw string, fallback decimal.Decimal) decimal.Decimal {
	v, ok := parseDecimal(raw)
	if !ok {
		return fallback
	}
	return v
}

// ParseNullDecimal is ParseDecimal with an absent value as the fallback.
func ParseNullDecimal(raw string) decimal.NullDecimal {
	v, ok := parseDecimal(raw)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}

// ParsePercentage reads a percentage such as 18.0000 and returns it as a
// fraction (0.18).
func ParsePercentage(raw string) decimal.NullDecimal {
	v, ok := parseDecimal(raw)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v.Div(decimal.NewFromInt(100)))
}

func ParseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseIntPtr returns nil when raw is not an integer.
func ParseIntPtr(raw string) *int {
	v, ok := ParseInt(raw)
	if !ok {
		return nil
	}
	return &v
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	if strings.Contains(raw, ",") {
		if strings.Contains(raw, ".") {
			raw = strings.ReplaceAll(raw, ".", "")
		}
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}
