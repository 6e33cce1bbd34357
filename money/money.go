// Package money normalizes the loosely typed amounts found in Shopify payloads.
package money

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is the canonical empty amount.
const Zero = "0.00"

// ToMoney coerces v into a two-decimal string. Anything that is not a number
// or a numeric string yields "0.00".
func ToMoney(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return Zero
	}
	return Format(d)
}

// Parse reads a numeric string, returning zero when it cannot be parsed.
func Parse(s string) decimal.Decimal {
	d, ok := toDecimal(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// Format renders d with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum adds the parsed amounts.
func Sum(amounts ...string) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(Parse(a))
	}
	return total
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case int32:
		return decimal.NewFromInt32(x), true
	case json.Number:
		return toDecimal(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case *string:
		if x == nil {
			return decimal.Zero, false
		}
		return toDecimal(*x)
	default:
		return decimal.Zero, false
	}
}
