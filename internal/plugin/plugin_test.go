package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/actions"
	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/chain/chaintest"
	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/executor"
	"github.com/alanyoungcy/predictplugin/internal/extract"
	"github.com/alanyoungcy/predictplugin/internal/format"
	"github.com/alanyoungcy/predictplugin/internal/intent"
)

var (
	now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	mkt     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	token   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	factory = common.HexToAddress("0x4444444444444444444444444444444444444444")
	created = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func eth(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18)) }

var allCaps = catalog.Capabilities{
	catalog.CapChain:      true,
	catalog.CapSigner:     true,
	catalog.CapCollateral: true,
}

func newPlugin(t *testing.T, gw *chaintest.Gateway, caps catalog.Capabilities) *Plugin {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := actions.New()
	require.NoError(t, err)

	orch := executor.NewOrchestrator(gw, executor.Config{
		ReceiptTimeout: time.Second,
		Settings: catalog.Settings{
			Factory:         factory,
			CollateralToken: token,
			MaxImpactBps:    100,
		},
	}, executor.NewMemoryGuard(time.Minute), logger)
	orch.SetClock(func() time.Time { return now })

	return New(cat,
		intent.NewResolver(cat, nil, logger),
		extract.New(nil, logger),
		orch,
		format.New(),
		Config{
			Capabilities:     caps,
			MaxImpactBps:     100,
			InitialLiquidity: eth(10),
			ProtocolFee:      1,
			MarketDuration:   7 * 24 * time.Hour,
		},
		logger,
	)
}

// openMarket serves a trading market and a funded, approved signer.
func openMarket() *chaintest.Gateway {
	gw := chaintest.New(signer)
	gw.Returns("getMarketInfo", "Will it rain?", big.NewInt(now.Add(24*time.Hour).Unix()), token, uint8(0))
	gw.Returns("balanceOf", eth(1000))
	gw.Returns("allowance", eth(1000))
	gw.Returns("calculatePriceImpact", big.NewInt(50))
	gw.Returns("paused", false)
	gw.Returns("isMarketCreator", true)
	gw.Returns("MIN_MARKET_DURATION", big.NewInt(3600))
	return gw
}

type recorder struct {
	replies []Reply
	err     error
}

func (r *recorder) cb(_ context.Context, reply Reply) error {
	r.replies = append(r.replies, reply)
	return r.err
}

func (r *recorder) last(t *testing.T) Reply {
	t.Helper()
	require.NotEmpty(t, r.replies)
	return r.replies[len(r.replies)-1]
}

type captureObserver struct {
	seen []domain.Handled
	err  error
}

func (c *captureObserver) Name() string { return "capture" }

func (c *captureObserver) Observe(_ context.Context, h domain.Handled) error {
	c.seen = append(c.seen, h)
	return c.err
}

func TestHandle_BuyYes(t *testing.T) {
	gw := openMarket()
	gw.OnWrite("buy", func(call chain.Call) ([]types.Log, error) {
		lg, err := chain.EncodeLog(chain.MarketABI, "TokensBought", mkt, map[string]any{
			"buyer": signer, "outcomeId": big.NewInt(1),
			"collateralAmount": eth(100), "tokenAmount": eth(180),
		})
		return []types.Log{lg}, err
	})
	p := newPlugin(t, gw, allCaps)
	rec := &recorder{}

	handled, err := p.Handle(context.Background(), Message{
		ID:   "m-buy",
		Text: "Buy YES position in market " + mkt.Hex() + " with 100 MODE",
	}, rec.cb)
	require.NoError(t, err)
	assert.True(t, handled)

	buys := gw.WritesOf("buy")
	require.Len(t, buys, 1)
	assert.Equal(t, uint64(1), buys[0].Args[0].(*big.Int).Uint64())
	assert.Equal(t, 0, eth(100).Cmp(buys[0].Args[1].(*big.Int)))
	assert.Equal(t, int64(100), buys[0].Args[2].(*big.Int).Int64(), "maxPriceImpactBps")
	assert.Equal(t, 0, buys[0].Args[3].(*big.Int).Sign(), "minTokensOut")

	reply := rec.last(t)
	hash, _ := reply.Content["txHash"].(string)
	require.NotEmpty(t, hash)
	assert.Contains(t, reply.Text, "Bought YES")
	assert.Contains(t, reply.Text, hash)
	assert.Equal(t, actions.BuyPosition, reply.Action)
}

func TestHandle_CreateMarket(t *testing.T) {
	gw := openMarket()
	gw.OnWrite("createMarket", func(call chain.Call) ([]types.Log, error) {
		lg, err := chain.EncodeLog(chain.FactoryABI, "MarketCreated", factory, map[string]any{
			"marketId": [32]byte{1}, "marketAddress": created, "question": call.Args[0],
			"endTime": call.Args[1], "collateralToken": token, "virtualLiquidity": eth(10),
		})
		return []types.Log{lg}, err
	})
	p := newPlugin(t, gw, allCaps)
	rec := &recorder{}

	handled, err := p.Handle(context.Background(), Message{
		ID:   "m-create",
		Text: "Create a market asking 'Will ETH reach $5000 by end of 2024?'",
	}, rec.cb)
	require.NoError(t, err)
	assert.True(t, handled)

	calls := gw.WritesOf("createMarket")
	require.Len(t, calls, 1)
	assert.Equal(t, "Will ETH reach $5000 by end of 2024?", calls[0].Args[0])
	assert.Equal(t, now.Add(7*24*time.Hour).Unix(), calls[0].Args[1].(*big.Int).Int64())
	assert.Equal(t, []string{"Yes", "No"}, calls[0].Args[5])

	reply := rec.last(t)
	assert.Equal(t, true, reply.Content["success"])
	assert.Contains(t, reply.Text, created.Hex())
}

func TestHandle_CreationPaused(t *testing.T) {
	gw := openMarket()
	gw.Returns("paused", true)
	p := newPlugin(t, gw, allCaps)
	rec := &recorder{}

	handled, err := p.Handle(context.Background(), Message{ID: "m-paused", Text: "Is market creation paused?"}, rec.cb)
	require.NoError(t, err)
	assert.True(t, handled)

	reply := rec.last(t)
	assert.Equal(t, actions.IsPaused, reply.Action)
	assert.Contains(t, reply.Text, "paused")
	assert.Equal(t, true, reply.Content["success"])
	assert.Equal(t, true, reply.Content["paused"])
	assert.Empty(t, gw.Writes())
}

func TestHandle_MalformedAddress(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, allCaps)
	rec := &recorder{}

	handled, err := p.Handle(context.Background(), Message{ID: "m-bad", Text: "show market info for 0x12345"}, rec.cb)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.False(t, gw.Touched())

	reply := rec.last(t)
	errMap, ok := reply.Content["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "InvalidParameter", errMap["kind"])
	assert.Equal(t, "marketAddress", errMap["field"])
	assert.Equal(t, "0x-prefixed 40-hex-char address", errMap["expected"])
}

func TestHandle_NoMatchRepliesWithHelp(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, catalog.Capabilities{catalog.CapChain: true})
	rec := &recorder{}

	handled, err := p.Handle(context.Background(), Message{ID: "m-none", Text: "what's the weather like"}, rec.cb)
	require.NoError(t, err)
	assert.False(t, handled)

	ops, _ := rec.last(t).Content["operations"].([]string)
	assert.Contains(t, ops, actions.GetPrice)
	assert.NotContains(t, ops, actions.BuyPosition)
	assert.False(t, gw.Touched())
}

func TestHandle_WriteWithoutSignerCapabilityIsNotOffered(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, catalog.Capabilities{catalog.CapChain: true})
	rec := &recorder{}

	handled, err := p.Handle(context.Background(), Message{
		ID:   "m-nosigner",
		Text: "Buy YES position in market " + mkt.Hex() + " with 100 MODE",
	}, rec.cb)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, gw.Writes())
}

func TestHandle_DuplicateMessage(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, allCaps)
	rec := &recorder{}
	msg := Message{ID: "m-dup", Text: "Is market creation paused?"}

	handled, err := p.Handle(context.Background(), msg, rec.cb)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = p.Handle(context.Background(), msg, rec.cb)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Len(t, rec.replies, 1)
}

func TestHandle_ObserversSeeEnvelope(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, allCaps)
	failing := &captureObserver{err: errors.New("down")}
	ok := &captureObserver{}
	p.AddObserver(failing)
	p.AddObserver(ok)
	rec := &recorder{}

	_, err := p.Handle(context.Background(), Message{ID: "m-obs", UserID: "u1", Text: "Is market creation paused?"}, rec.cb)
	require.NoError(t, err)

	require.Len(t, ok.seen, 1)
	h := ok.seen[0]
	assert.Equal(t, "m-obs", h.MessageID)
	assert.Equal(t, "u1", h.UserID)
	assert.Equal(t, actions.IsPaused, h.Envelope.Operation)
	assert.Equal(t, rec.last(t).Text, h.ReplyText)
	assert.Len(t, failing.seen, 1)
}

func TestHandle_CallbackError(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, allCaps)
	rec := &recorder{err: errors.New("closed")}

	handled, err := p.Handle(context.Background(), Message{ID: "m-cb", Text: "Is market creation paused?"}, rec.cb)
	assert.True(t, handled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestActions(t *testing.T) {
	gw := openMarket()
	p := newPlugin(t, gw, catalog.Capabilities{catalog.CapChain: true})

	acts := p.Actions()
	require.Len(t, acts, len(p.Catalog().List()))

	byName := make(map[string]Action, len(acts))
	for _, a := range acts {
		byName[a.Name] = a
	}
	assert.True(t, byName[actions.IsPaused].Validate(context.Background()))
	assert.False(t, byName[actions.BuyPosition].Validate(context.Background()))
	assert.Contains(t, byName[actions.BuyPosition].Similes, "BUY_YES")

	rec := &recorder{}
	handled, err := byName[actions.IsPaused].Handler(context.Background(), Message{ID: "m-act", Text: "anything"}, rec.cb)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, actions.IsPaused, rec.last(t).Action)

	handled, err = byName[actions.BuyPosition].Handler(context.Background(), Message{ID: "m-act2"}, rec.cb)
	require.NoError(t, err)
	assert.False(t, handled)
}
