package catalog

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func noop(context.Context, Runner, Args) (Result, error) { return Result{}, nil }

func tradeOp() Operation {
	return Operation{
		ID:       "BUY_POSITION",
		Kind:     Write,
		Requires: []Capability{CapChain, CapSigner},
		Schema: []Field{
			{Name: "marketAddress", Type: Address, Required: true},
			{Name: "outcome", Type: Outcome, Required: true},
			{Name: "amount", Type: Decimal, Required: true, Positive: true},
			{Name: "maxPriceImpactBps", Type: Integer, Min: Bound(0), Max: Bound(10_000),
				Expected: "basis points between 0 and 10000",
				Default:  func(e Env) any { return e.MaxImpactBps }},
		},
		Execute: noop,
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(tradeOp(), Operation{ID: "buy_position", Execute: noop})
	require.Error(t, err)

	_, err = New(Operation{ID: "X"})
	require.Error(t, err)
}

func TestLookupAndEligible(t *testing.T) {
	read := Operation{ID: "IS_PAUSED", Requires: []Capability{CapChain}, Execute: noop}
	c, err := New(tradeOp(), read)
	require.NoError(t, err)

	op, ok := c.Lookup("buy_position")
	require.True(t, ok)
	assert.Equal(t, "BUY_POSITION", op.ID)

	eligible := c.Eligible(Capabilities{CapChain: true})
	require.Len(t, eligible, 1)
	assert.Equal(t, "IS_PAUSED", eligible[0].ID)
	assert.Equal(t, 1, c.Index("IS_PAUSED"))
}

func TestBind(t *testing.T) {
	op := tradeOp()
	env := Env{Now: now, MaxImpactBps: 100}

	args, err := op.Bind(map[string]any{
		"marketAddress": "0xABCDabcdABCDabcdABCDabcdABCDabcdABCDabcd",
		"outcome":       "YES",
		"amount":        "100",
	}, env)
	require.NoError(t, err)

	want, _ := new(big.Int).SetString("100000000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(args.BigInt("amount")))
	assert.Equal(t, domain.PositionYes, args.Outcome("outcome"))
	assert.Equal(t, int64(100), args.Int("maxPriceImpactBps"))
	assert.Equal(t, common.HexToAddress("0xabcdabcdabcdabcdabcdabcdabcdabcdabcdabcd"), args.Address("marketAddress"))
}

func TestBind_Errors(t *testing.T) {
	op := tradeOp()
	env := Env{Now: now, MaxImpactBps: 100}
	base := func() map[string]any {
		return map[string]any{
			"marketAddress": "0xABCDabcdABCDabcdABCDabcdABCDabcdABCDabcd",
			"outcome":       1,
			"amount":        "1.5",
		}
	}

	cases := []struct {
		name   string
		mutate func(map[string]any)
		kind   domain.ErrorKind
		field  string
	}{
		{"missing address", func(m map[string]any) { delete(m, "marketAddress") }, domain.KindMissingParameter, "marketAddress"},
		{"short address", func(m map[string]any) { m["marketAddress"] = "0xABCD" }, domain.KindInvalidParameter, "marketAddress"},
		{"zero amount", func(m map[string]any) { m["amount"] = "0" }, domain.KindInvalidParameter, "amount"},
		{"negative amount", func(m map[string]any) { m["amount"] = -3 }, domain.KindInvalidParameter, "amount"},
		{"too precise", func(m map[string]any) { m["amount"] = "0.0000000000000000001" }, domain.KindInvalidParameter, "amount"},
		{"outcome 2", func(m map[string]any) { m["outcome"] = 2 }, domain.KindInvalidParameter, "outcome"},
		{"bps over max", func(m map[string]any) { m["maxPriceImpactBps"] = 10_001 }, domain.KindInvalidParameter, "maxPriceImpactBps"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := base()
			tc.mutate(raw)
			_, err := op.Bind(raw, env)
			require.Error(t, err)
			de, ok := domain.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, de.Kind)
			assert.Equal(t, tc.field, de.Field)
		})
	}
}

func TestAddressExpectedFormat(t *testing.T) {
	f := Field{Name: "marketAddress", Type: Address}
	_, err := f.Coerce("0x12", now)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "0x-prefixed 40-hex-char address", de.Expected)
}

func TestCoerceStringList(t *testing.T) {
	f := Field{Name: "outcomes", Type: StringList, MinItems: 2}
	v, err := f.Coerce("Yes, No", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes", "No"}, v)

	v, err = f.Coerce("Team A or Team B", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Team A", "Team B"}, v)

	_, err = f.Coerce([]any{"only"}, now)
	require.Error(t, err)
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2026-12-31":                time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		"December 31, 2026":         time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		"Dec 31st, 2026":            time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		"31 December 2026":          time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		"2026-06-01T10:30:00Z":      time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC),
		"2026-06-01T10:30:00+02:00": time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC),
		"in 3 days":                 now.AddDate(0, 0, 3),
		"in 2 weeks":                now.AddDate(0, 0, 14),
		"tomorrow":                  time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC),
		"1798761600":                time.Unix(1798761600, 0).UTC(),
	}
	for in, want := range cases {
		got, err := ParseDate(in, now)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s want %s", in, got, want)
	}

	_, err := ParseDate("someday", now)
	require.Error(t, err)
}

func TestTimestampFuture(t *testing.T) {
	f := Field{Name: "endTime", Type: Timestamp, Future: true}
	_, err := f.Coerce("2020-01-01", now)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "endTime", de.Field)
	assert.Equal(t, "a future date (YYYY-MM-DD or Unix seconds)", de.Expected)
}

func TestJSONSchema(t *testing.T) {
	s := tradeOp().JSONSchema()
	assert.Equal(t, "object", s["type"])
	assert.ElementsMatch(t, []string{"marketAddress", "outcome", "amount"}, s["required"])
	props := s["properties"].(map[string]any)
	assert.Equal(t, "integer", props["maxPriceImpactBps"].(map[string]any)["type"])
}
