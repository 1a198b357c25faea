package catalog

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// TokenDecimals is the fixed scale of every collateral and outcome amount.
const TokenDecimals = 18

// FieldType is the semantic type of a schema field.
type FieldType int

const (
	String FieldType = iota
	Integer
	Decimal
	Address
	Bool
	Outcome
	Timestamp
	Bytes32
	StringList
)

var fieldTypeNames = map[FieldType]string{
	String:     "string",
	Integer:    "integer",
	Decimal:    "decimal",
	Address:    "address",
	Bool:       "boolean",
	Outcome:    "outcome",
	Timestamp:  "timestamp",
	Bytes32:    "bytes32",
	StringList: "string[]",
}

func (t FieldType) String() string { return fieldTypeNames[t] }

// Source says where the extractor may look for a field's value.
type Source int

const (
	// SourceAuto tries patterns first and falls back to generation.
	SourceAuto Source = iota
	SourcePattern
	SourceGenerated
)

// Env is what field defaults may depend on.
type Env struct {
	Now             time.Time
	Sender          common.Address
	CollateralToken common.Address
	MaxImpactBps    int64
	Liquidity       *big.Int
	ProtocolFee     int64
	MarketDuration  time.Duration
}

// Field describes one operation parameter.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	Source      Source
	// Default supplies a value for an absent optional field.
	Default func(Env) any
	// Min and Max bound Integer fields, inclusive.
	Min, Max *int64
	// Positive requires a Decimal above zero.
	Positive bool
	// Future requires a Timestamp after now.
	Future bool
	// MinItems bounds StringList fields.
	MinItems int
	// Expected overrides the format string reported in InvalidParameter.
	Expected string
}

// Bound is a convenience for Field.Min and Field.Max.
func Bound(n int64) *int64 { return &n }

// ExpectedFormat is the human description of a valid value.
func (f Field) ExpectedFormat() string {
	if f.Expected != "" {
		return f.Expected
	}
	switch f.Type {
	case Address:
		return "0x-prefixed 40-hex-char address"
	case Bytes32:
		return "0x-prefixed 64-hex-char id"
	case Decimal:
		if f.Positive {
			return "a positive amount"
		}
		return "a non-negative amount"
	case Outcome:
		return "YES or NO"
	case Integer:
		switch {
		case f.Min != nil && f.Max != nil:
			return fmt.Sprintf("an integer between %d and %d", *f.Min, *f.Max)
		case f.Min != nil:
			return fmt.Sprintf("an integer of at least %d", *f.Min)
		default:
			return "an integer"
		}
	case Timestamp:
		if f.Future {
			return "a future date (YYYY-MM-DD or Unix seconds)"
		}
		return "a date (YYYY-MM-DD or Unix seconds)"
	case StringList:
		if f.MinItems > 0 {
			return fmt.Sprintf("a list of at least %d entries", f.MinItems)
		}
		return "a list of strings"
	case Bool:
		return "true or false"
	default:
		return "a non-empty string"
	}
}

func (f Field) invalid() *domain.Error {
	return domain.InvalidParameter(f.Name, f.ExpectedFormat())
}

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	bytes32Pattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// Coerce converts v to the field's canonical Go type and checks its range:
//
//	String     string
//	Integer    int64
//	Decimal    *big.Int scaled by 1e18 (a *big.Int input is taken as already scaled)
//	Address    common.Address
//	Bool       bool
//	Outcome    uint64 (1 = YES, 0 = NO)
//	Timestamp  time.Time in UTC
//	Bytes32    [32]byte
//	StringList []string
func (f Field) Coerce(v any, now time.Time) (any, error) {
	switch f.Type {
	case String:
		s, ok := asString(v)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, f.invalid()
		}
		return strings.TrimSpace(s), nil

	case Integer:
		n, ok := asInt(v)
		if !ok {
			return nil, f.invalid()
		}
		if (f.Min != nil && n < *f.Min) || (f.Max != nil && n > *f.Max) {
			return nil, f.invalid()
		}
		return n, nil

	case Decimal:
		wei, ok := asWei(v)
		if !ok {
			return nil, f.invalid()
		}
		if wei.Sign() < 0 || (f.Positive && wei.Sign() == 0) {
			return nil, f.invalid()
		}
		return wei, nil

	case Address:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !addressPattern.MatchString(strings.TrimSpace(a)) {
				return nil, f.invalid()
			}
			return common.HexToAddress(strings.TrimSpace(a)), nil
		}
		return nil, f.invalid()

	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "yes", "1":
				return true, nil
			case "false", "no", "0":
				return false, nil
			}
		}
		return nil, f.invalid()

	case Outcome:
		o, ok := asOutcome(v)
		if !ok {
			return nil, f.invalid()
		}
		return o, nil

	case Timestamp:
		t, ok := asTime(v, now)
		if !ok {
			return nil, f.invalid()
		}
		if f.Future && !t.After(now) {
			return nil, f.invalid()
		}
		return t, nil

	case Bytes32:
		switch b := v.(type) {
		case [32]byte:
			return b, nil
		case common.Hash:
			return [32]byte(b), nil
		case string:
			if !bytes32Pattern.MatchString(strings.TrimSpace(b)) {
				return nil, f.invalid()
			}
			var out [32]byte
			copy(out[:], hexutil.MustDecode(strings.TrimSpace(b)))
			return out, nil
		}
		return nil, f.invalid()

	case StringList:
		list, ok := asStringList(v)
		if !ok || len(list) < f.MinItems {
			return nil, f.invalid()
		}
		return list, nil
	}
	return nil, f.invalid()
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > 1<<62 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case *big.Int:
		if n == nil || !n.IsInt64() {
			return 0, false
		}
		return n.Int64(), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// asWei parses a human decimal amount and scales it by 1e18. More than 18
// fractional digits is rejected rather than rounded.
func asWei(v any) (*big.Int, bool) {
	var d decimal.Decimal
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Int).Set(n), true
	case decimal.Decimal:
		d = n
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case float64:
		d = decimal.NewFromFloat(n)
	case json.Number:
		var err error
		if d, err = decimal.NewFromString(n.String()); err != nil {
			return nil, false
		}
	case string:
		var err error
		if d, err = decimal.NewFromString(strings.TrimSpace(n)); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}
	scaled := d.Shift(TokenDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, false
	}
	return scaled.BigInt(), true
}

func asOutcome(v any) (uint64, bool) {
	switch o := v.(type) {
	case bool:
		if o {
			return domain.PositionYes, true
		}
		return domain.PositionNo, true
	case string:
		switch strings.ToLower(strings.TrimSpace(o)) {
		case "yes", "y", "true", "1":
			return domain.PositionYes, true
		case "no", "n", "false", "0":
			return domain.PositionNo, true
		}
		return 0, false
	}
	n, ok := asInt(v)
	if !ok || (n != 0 && n != 1) {
		return 0, false
	}
	return uint64(n), true
}

func asTime(v any, now time.Time) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		parsed, err := ParseDate(t, now)
		return parsed, err == nil
	}
	n, ok := asInt(v)
	if !ok || n <= 0 {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

func asStringList(v any) ([]string, bool) {
	var raw []string
	switch l := v.(type) {
	case []string:
		raw = l
	case []any:
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			raw = append(raw, s)
		}
	case string:
		raw = splitList(l)
	default:
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, len(out) > 0
}

var listSeparator = regexp.MustCompile(`\s*(?:,|/|\bor\b)\s*`)

func splitList(s string) []string {
	return listSeparator.Split(strings.TrimSpace(s), -1)
}
