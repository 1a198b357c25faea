package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

func TestMapRevert(t *testing.T) {
	cases := []struct {
		rev    *chain.RevertError
		kind   domain.ErrorKind
		reason domain.Reason
	}{
		{&chain.RevertError{Name: "Market_TradingEnded"}, domain.KindPreconditionFailed, domain.ReasonTradingEnded},
		{&chain.RevertError{Name: "Market_PriceImpactTooHigh"}, domain.KindPriceImpactTooHigh, ""},
		{&chain.RevertError{Name: "Market_InsufficientAllowance"}, domain.KindInsufficientAllowance, ""},
		{&chain.RevertError{Selector: "0xFB8F41B2"}, domain.KindInsufficientBalance, ""},
		{&chain.RevertError{Name: "ERC20InsufficientBalance"}, domain.KindInsufficientBalance, ""},
		{&chain.RevertError{Name: "OwnableUnauthorizedAccount"}, domain.KindPreconditionFailed, domain.ReasonUnauthorized},
		{&chain.RevertError{Name: "EnforcedPause"}, domain.KindPreconditionFailed, domain.ReasonCreationPaused},
		{&chain.RevertError{Name: "MarketFactory_InvalidEndTime"}, domain.KindPreconditionFailed, domain.ReasonInvalidEndTime},
		{&chain.RevertError{Name: "Market_TradingNotEnded"}, domain.KindPreconditionFailed, domain.ReasonTradingNotEnded},
	}
	for _, tc := range cases {
		t.Run(tc.rev.Signature(), func(t *testing.T) {
			de := MapRevert(tc.rev)
			assert.Equal(t, tc.kind, de.Kind)
			assert.Equal(t, tc.reason, de.Reason)
		})
	}
}

func TestMapRevert_InsufficientOutputHint(t *testing.T) {
	de := MapRevert(&chain.RevertError{Name: "Market_InsufficientOutput"})
	assert.Equal(t, domain.KindContractRevert, de.Kind)
	assert.Equal(t, "Market_InsufficientOutput", de.Signature)
	assert.Contains(t, de.Hint, "minTokensOut")

	de = MapRevert(&chain.RevertError{Name: "MarketFactory_MarketExists"})
	assert.Equal(t, "market exists", de.Message)
}

func TestMapRevert_Unknown(t *testing.T) {
	de := MapRevert(&chain.RevertError{Selector: "0xdeadbeef"})
	assert.Equal(t, domain.KindContractRevert, de.Kind)
	assert.Equal(t, "0xdeadbeef", de.Signature)

	de = MapRevert(&chain.RevertError{Name: "Error", Selector: "0x08c379a0", Reason: "not allowed"})
	assert.Equal(t, "not allowed", de.Message)
}

func TestDedup_Window(t *testing.T) {
	d := NewDedup(time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	assert.False(t, d.IsDuplicate("a"))
	assert.True(t, d.IsDuplicate("a"))

	clock = clock.Add(2 * time.Minute)
	d.Cleanup()
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.IsDuplicate("a"))
}

type fakeLocks struct{ held map[string]bool }

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	return func() { delete(f.held, key) }, nil
}

func TestLockGuard(t *testing.T) {
	g := NewLockGuard(&fakeLocks{held: map[string]bool{}}, time.Minute, testLogger())
	ctx := context.Background()

	require.NoError(t, g.Claim(ctx, "m"))
	assert.ErrorIs(t, g.Claim(ctx, "m"), domain.ErrDuplicateMessage)
}
