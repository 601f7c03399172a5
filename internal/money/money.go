// Package money normalizes the heterogeneous amount values the back-office
// backend emits (numbers, numeric strings, empty strings, nulls) into decimals.
package money

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize converts a value of unknown shape into a decimal amount.
// Nil, empty strings and values that fail numeric parsing all normalize to
// zero, so downstream arithmetic never sees an invalid number. It never
// panics.
func Normalize(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case string:
		return fromString(x)
	case json.Number:
		return fromString(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return Normalize(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	default:
		return decimal.Zero
	}
}

// Sum normalizes every value and returns the exact decimal total.
func Sum(values []any) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(Normalize(v))
	}
	return total
}

func fromString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// Some upstream forms send a comma decimal separator.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
