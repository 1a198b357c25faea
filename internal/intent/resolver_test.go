package intent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/actions"
	"github.com/alanyoungcy/predictplugin/internal/catalog"
)

var allCaps = catalog.Capabilities{catalog.CapChain: true, catalog.CapSigner: true, catalog.CapCollateral: true}

type fakeClassifier struct {
	answer string
	err    error
	calls  int
}

func (f *fakeClassifier) GenerateText(context.Context, string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func newResolver(t *testing.T, cls Classifier) *Resolver {
	t.Helper()
	cat, err := actions.New()
	require.NoError(t, err)
	return NewResolver(cat, cls, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolve_Triggers(t *testing.T) {
	r := newResolver(t, nil)
	cases := map[string]string{
		"Buy YES position with 100 MODE in market 0x2222222222222222222222222222222222222222": actions.BuyPosition,
		"Create a prediction market asking 'Will ETH reach $5000 by end of 2026?'":            actions.CreateMarket,
		"Is market creation paused?":                                                          actions.IsPaused,
		"show market info for 0x12345":                                                        actions.GetMarketInfo,
		"list the top 5 markets":                                                              actions.ListMarkets,
		"How many markets are there?":                                                         actions.GetMarketCount,
		"Can I create markets?":                                                               actions.CheckMarketCreator,
		"what's the current price in market 0x2222222222222222222222222222222222222222":       actions.GetPrice,
		"claim winnings from 0x2222222222222222222222222222222222222222":                      actions.ClaimWinnings,
	}
	for text, want := range cases {
		m := r.Resolve(context.Background(), text, "", allCaps)
		require.True(t, m.OK, text)
		assert.Equal(t, want, m.Operation.ID, text)
	}
}

func TestResolve_LooseMatch(t *testing.T) {
	m := newResolver(t, nil).Resolve(context.Background(), "please buy me a position", "", allCaps)
	require.True(t, m.OK)
	assert.Equal(t, actions.BuyPosition, m.Operation.ID)
	assert.Equal(t, ViaLoose, m.Via)
}

func TestResolve_PrefersLongestTrigger(t *testing.T) {
	// "paused" and "is creation paused" are both exact here.
	m := newResolver(t, nil).Resolve(context.Background(), "is creation paused", "", allCaps)
	require.True(t, m.OK)
	assert.Equal(t, actions.IsPaused, m.Operation.ID)
	assert.Equal(t, "is creation paused", m.Trigger)

	m = newResolver(t, nil).Resolve(context.Background(), "create a market now", "", allCaps)
	assert.Equal(t, "create a market", m.Trigger)
}

func TestResolve_QuotedTextIgnored(t *testing.T) {
	m := newResolver(t, nil).Resolve(context.Background(),
		`create market asking "Should I buy yes or sell position now?"`, "", allCaps)
	require.True(t, m.OK)
	assert.Equal(t, actions.CreateMarket, m.Operation.ID)
}

func TestResolve_CapabilitiesExclude(t *testing.T) {
	readOnly := catalog.Capabilities{catalog.CapChain: true}
	r := newResolver(t, nil)

	m := r.Resolve(context.Background(), "buy yes with 10 MODE", "", readOnly)
	assert.False(t, m.OK)

	m = r.Resolve(context.Background(), "", actions.BuyPosition, readOnly)
	assert.False(t, m.OK)
}

func TestResolve_Explicit(t *testing.T) {
	m := newResolver(t, nil).Resolve(context.Background(), "anything", "get_price", allCaps)
	require.True(t, m.OK)
	assert.Equal(t, actions.GetPrice, m.Operation.ID)
	assert.Equal(t, ViaExplicit, m.Via)
}

func TestResolve_Classifier(t *testing.T) {
	cls := &fakeClassifier{answer: " GET_OWNER."}
	m := newResolver(t, cls).Resolve(context.Background(), "who controls the factory contract", "", allCaps)
	require.True(t, m.OK)
	assert.Equal(t, actions.GetOwner, m.Operation.ID)
	assert.Equal(t, ViaClassifier, m.Via)
	assert.Equal(t, 1, cls.calls)
}

func TestResolve_ClassifierFailures(t *testing.T) {
	for _, cls := range []*fakeClassifier{
		{answer: "NONE"},
		{answer: "DELETE_EVERYTHING"},
		{err: errors.New("offline")},
	} {
		m := newResolver(t, cls).Resolve(context.Background(), "tell me a joke", "", allCaps)
		assert.False(t, m.OK)
	}
}
