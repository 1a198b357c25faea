package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

const hash = "0xabc0000000000000000000000000000000000000000000000000000000000001"

func buyEnvelope() domain.ResponseEnvelope {
	return domain.ResponseEnvelope{
		MessageID: "m1",
		Operation: "BUY_POSITION",
		Success:   true,
		Data: map[string]any{
			"marketAddress":     "0x2222222222222222222222222222222222222222",
			"outcome":           "YES",
			"amount":            "100000000000000000000",
			"tokensReceived":    "181234500000000000000",
			"maxPriceImpactBps": uint64(150),
			"txHash":            hash,
		},
		TxHashes: []string{hash},
	}
}

func TestRender_Buy(t *testing.T) {
	r := New().Render(buyEnvelope())

	assert.Contains(t, r.Text, "Bought YES")
	assert.Contains(t, r.Text, hash)
	assert.Contains(t, r.Text, "100.0000")
	assert.Contains(t, r.Text, "181.2345 YES tokens")
	assert.Contains(t, r.Text, "1.50%")
	assert.Equal(t, "BUY_POSITION", r.Action)
	assert.Equal(t, true, r.Content["success"])
	assert.Equal(t, hash, r.Content["txHash"])
}

func TestRender_Idempotent(t *testing.T) {
	f := New()
	env := buyEnvelope()
	assert.Equal(t, f.Render(env), f.Render(env))

	failed := domain.ResponseEnvelope{
		Operation: "BUY_POSITION",
		Error:     domain.Describe(domain.PreconditionFailed(domain.ReasonTradingEnded, "trading ended")),
	}
	assert.Equal(t, f.Render(failed), f.Render(failed))
}

func TestRender_Paused(t *testing.T) {
	r := New().Render(domain.ResponseEnvelope{
		Operation: "IS_PAUSED",
		Success:   true,
		Data:      map[string]any{"paused": true},
	})
	assert.Equal(t, "Market creation is currently paused.", r.Text)
	assert.Equal(t, true, r.Content["paused"])
	assert.Equal(t, true, r.Content["success"])
}

func TestRender_Create(t *testing.T) {
	r := New().Render(domain.ResponseEnvelope{
		Operation: "CREATE_MARKET",
		Success:   true,
		Data: map[string]any{
			"question":         "Will it rain?",
			"marketAddress":    "0x5555555555555555555555555555555555555555",
			"endTime":          int64(1798761599),
			"outcomes":         []string{"Yes", "No"},
			"initialLiquidity": "10000000000000000000",
			"txHash":           hash,
		},
	})
	assert.Contains(t, r.Text, "0x5555555555555555555555555555555555555555")
	assert.Contains(t, r.Text, "2026-12-31 23:59:59 UTC")
	assert.Contains(t, r.Text, "Outcomes: Yes, No")
	assert.Contains(t, r.Text, "Initial liquidity: 10.0000")
}

func TestRender_Prices(t *testing.T) {
	r := New().Render(domain.ResponseEnvelope{
		Operation: "GET_PRICE",
		Success:   true,
		Data: map[string]any{
			"marketAddress": "0x2222222222222222222222222222222222222222",
			"yesPrice":      "615000000000000000",
			"noPrice":       "385000000000000000",
		},
	})
	assert.Contains(t, r.Text, "YES: 0.62")
	assert.Contains(t, r.Text, "NO: 0.39")
}

func TestRender_List(t *testing.T) {
	r := New().Render(domain.ResponseEnvelope{
		Operation: "LIST_MARKETS",
		Success:   true,
		Data: map[string]any{
			"total": 3,
			"markets": []any{
				map[string]any{"question": "A?", "marketAddress": "0x01", "status": "Trading", "endTime": float64(0)},
			},
		},
	})
	assert.Contains(t, r.Text, "Showing 1 of 3 markets")
	assert.Contains(t, r.Text, "1. A?")

	r = New().Render(domain.ResponseEnvelope{Operation: "LIST_MARKETS", Success: true, Data: map[string]any{}})
	assert.Equal(t, "No markets have been created yet.", r.Text)
}

func TestRender_Failure(t *testing.T) {
	de := domain.PreconditionFailed(domain.ReasonCreationPaused, "market creation is currently paused")
	de.Hint = "Try again once the factory is unpaused."
	r := New().Render(domain.ResponseEnvelope{
		Operation: "CREATE_MARKET",
		Error:     domain.Describe(de),
	})

	assert.Equal(t, "Could not create the market: market creation is currently paused\nNext step: Try again once the factory is unpaused.", r.Text)
	assert.Equal(t, false, r.Content["success"])
	errMap := r.Content["error"].(map[string]any)
	assert.Equal(t, "PreconditionFailed", errMap["kind"])
	assert.Equal(t, "CreationPaused", errMap["reason"])
}

func TestRender_TimeoutKeepsHash(t *testing.T) {
	r := New().Render(domain.ResponseEnvelope{
		Operation: "BUY_POSITION",
		TxHashes:  []string{hash},
		Error:     domain.Describe(domain.ConfirmationTimeout(hash, nil)),
	})
	assert.Contains(t, r.Text, "Transaction: "+hash)
	assert.Contains(t, r.Text, "Next step:")
	assert.Equal(t, hash, r.Content["txHash"])
}

func TestRender_ParameterErrors(t *testing.T) {
	r := New().Render(domain.ResponseEnvelope{
		Operation: "GET_MARKET_INFO",
		Error:     domain.Describe(domain.InvalidParameter("marketAddress", "0x-prefixed 40-hex-char address")),
	})
	assert.Equal(t, "Please clarify the marketAddress: expected 0x-prefixed 40-hex-char address.", r.Text)
	errMap := r.Content["error"].(map[string]any)
	assert.Equal(t, "marketAddress", errMap["field"])

	missing := domain.MissingParameter("amount")
	missing.Expected = "a positive amount"
	r = New().Render(domain.ResponseEnvelope{Operation: "BUY_POSITION", Error: domain.Describe(missing)})
	assert.Equal(t, "To buy the position I need the amount. Please provide it as a positive amount.", r.Text)
}

func TestHelp(t *testing.T) {
	ops := []catalog.Operation{
		{ID: "GET_PRICE", Description: "Show prices", Examples: []string{"price of 0x..."}},
		{ID: "IS_PAUSED", Description: "Check pause"},
	}
	r := New().Help(ops)
	require.Contains(t, r.Text, "Show prices")
	assert.Contains(t, r.Text, "Check pause")
	assert.Equal(t, []string{"GET_PRICE", "IS_PAUSED"}, r.Content["operations"])
}

func TestRender_CreateWithoutEventFallsBackToTx(t *testing.T) {
	env := domain.ResponseEnvelope{
		Operation: "CREATE_MARKET",
		Success:   true,
		Data: map[string]any{
			"question":         "Will it snow?",
			"endTime":          int64(1798761599),
			"initialLiquidity": "10000000000000000000",
			"txHash":           hash,
		},
	}
	r := New().Render(env)
	assert.NotContains(t, r.Text, "at .")
	assert.Contains(t, r.Text, "address is pending")
	assert.Contains(t, r.Text, hash)

	env.Data["marketAddress"] = "0x5555555555555555555555555555555555555555"
	r = New().Render(env)
	assert.Contains(t, r.Text, "at 0x5555555555555555555555555555555555555555.")
}
