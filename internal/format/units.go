package format

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const (
	tokenDecimals = 18
	dateLayout    = "2006-01-02 15:04:05 UTC"
)

// wei reads an 18-decimal amount stored as a decimal string, big.Int or
// JSON number.
func wei(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, false
		}
		return d.Shift(-tokenDecimals), true
	case *big.Int:
		if n == nil {
			return decimal.Zero, false
		}
		return decimal.NewFromBigInt(n, -tokenDecimals), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d.Shift(-tokenDecimals), true
	case float64:
		return decimal.NewFromFloat(n).Shift(-tokenDecimals), true
	}
	return decimal.Zero, false
}

// tokens renders a token amount with 4 places.
func tokens(v any) string {
	d, ok := wei(v)
	if !ok {
		return "?"
	}
	return d.StringFixed(4)
}

// price renders a per-share price with 2 places.
func price(v any) string {
	d, ok := wei(v)
	if !ok {
		return "?"
	}
	return d.StringFixed(2)
}

// percent renders basis points as a percentage with 2 places.
func percent(v any) string {
	n, ok := integer(v)
	if !ok {
		return "?"
	}
	return decimal.NewFromInt(n).Shift(-2).StringFixed(2) + "%"
}

// date renders Unix seconds in UTC.
func date(v any) string {
	n, ok := integer(v)
	if !ok {
		return "?"
	}
	return time.Unix(n, 0).UTC().Format(dateLayout)
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return 0, false
		}
		return d.IntPart(), true
	}
	return 0, false
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
