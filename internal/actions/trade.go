package actions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

func buyPosition() catalog.Operation {
	return catalog.Operation{
		ID:          BuyPosition,
		Description: "Buy YES or NO outcome tokens with collateral",
		Triggers: []string{
			"buy position", "take position", "place bet", "buy prediction",
			"invest in outcome", "buy yes", "buy no",
		},
		Examples: []string{
			"Buy YES position with 100 MODE in market 0x1234...",
			"Buy NO with 25 MODE in market 0xabcd... max impact 2%",
		},
		Kind:     catalog.Write,
		Requires: writeCaps,
		Schema: []catalog.Field{
			marketAddressField(),
			outcomeField("YES or NO"),
			amountField("collateral to spend"),
			maxImpactField(),
			minOutField("minTokensOut", "minimum outcome tokens to receive"),
		},
		Check:   checkBuy,
		Execute: execBuy,
	}
}

func sellPosition() catalog.Operation {
	return catalog.Operation{
		ID:          SellPosition,
		Description: "Sell YES or NO outcome tokens back for collateral",
		Triggers: []string{
			"sell position", "close position", "exit position", "sell yes", "sell no",
		},
		Examples: []string{"Sell 50 YES tokens in market 0x1234..."},
		Kind:     catalog.Write,
		Requires: writeCaps,
		Schema: []catalog.Field{
			marketAddressField(),
			outcomeField("YES or NO"),
			amountField("outcome tokens to sell"),
			maxImpactField(),
			minOutField("minCollateralOut", "minimum collateral to receive"),
		},
		Check:   checkSell,
		Execute: execSell,
	}
}

func tradeRequest(args catalog.Args, minOutField string) domain.TradeRequest {
	return domain.TradeRequest{
		MarketAddress:     args.Address("marketAddress").Hex(),
		Outcome:           args.Outcome("outcome"),
		Amount:            args.BigInt("amount"),
		MaxPriceImpactBps: uint64(args.Int("maxPriceImpactBps")),
		MinOut:            args.BigIntOrZero(minOutField),
	}
}

func checkBuy(ctx context.Context, r catalog.Runner, args catalog.Args) error {
	req := tradeRequest(args, "minTokensOut")
	if err := req.Validate(); err != nil {
		return err
	}
	addr := args.Address("marketAddress")
	m, err := readMarket(ctx, r, addr)
	if err != nil {
		return err
	}
	if err := requireTrading(m, r.Now()); err != nil {
		return err
	}
	if err := requireBalance(ctx, r, common.HexToAddress(m.CollateralToken), r.Sender(), req.Amount); err != nil {
		return err
	}
	return checkPriceImpact(ctx, r, addr, req)
}

// checkPriceImpact rejects a buy whose quoted impact exceeds the bound and
// probes a smaller trial amount to suggest a way forward.
func checkPriceImpact(ctx context.Context, r catalog.Runner, market common.Address, req domain.TradeRequest) error {
	impact, err := quoteImpact(ctx, r, market, req.Outcome, req.Amount)
	if err != nil {
		return err
	}
	bound := req.MaxPriceImpactBps
	if impact <= bound {
		return nil
	}

	suggestedMax := (impact*11 + 9) / 10
	de := &domain.Error{
		Kind:    domain.KindPriceImpactTooHigh,
		Message: fmt.Sprintf("price impact of %d bps exceeds the %d bps limit", impact, bound),
		Details: map[string]any{
			"priceImpactBps":    impact,
			"maxPriceImpactBps": bound,
			"suggestedMaxBps":   suggestedMax,
		},
	}
	trial := new(big.Int).Mul(req.Amount, big.NewInt(r.Settings().TrialPercent))
	trial.Quo(trial, big.NewInt(100))
	if trial.Sign() > 0 {
		if trialImpact, err := quoteImpact(ctx, r, market, req.Outcome, trial); err == nil {
			de.Details["suggestedAmount"] = trial.String()
			de.Details["suggestedImpactBps"] = trialImpact
			de.Hint = fmt.Sprintf("Try %s tokens (about %d bps impact) or set maxPriceImpactBps to %d.",
				units(trial), trialImpact, suggestedMax)
		}
	}
	if de.Hint == "" {
		de.Hint = fmt.Sprintf("Reduce the amount or set maxPriceImpactBps to %d.", suggestedMax)
	}
	return de
}

func quoteImpact(ctx context.Context, r catalog.Runner, market common.Address, outcome uint64, amount *big.Int) (uint64, error) {
	out, err := r.Read(ctx, chain.NewCall(market, chain.MarketABI, "calculatePriceImpact", outcomeID(outcome), amount))
	if err != nil {
		return 0, err
	}
	n, _ := out[0].(*big.Int)
	if n == nil || !n.IsUint64() {
		return 0, fmt.Errorf("actions: calculatePriceImpact returned %v", out[0])
	}
	return n.Uint64(), nil
}

func execBuy(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	req := tradeRequest(args, "minTokensOut")
	addr := args.Address("marketAddress")

	m, err := readMarket(ctx, r, addr)
	if err != nil {
		return catalog.Result{}, err
	}
	if err := r.EnsureAllowance(ctx, common.HexToAddress(m.CollateralToken), addr, req.Amount); err != nil {
		return catalog.Result{}, err
	}
	hash, err := r.Submit(ctx, chain.NewCall(addr, chain.MarketABI, "buy",
		outcomeID(req.Outcome), req.Amount, new(big.Int).SetUint64(req.MaxPriceImpactBps), req.MinOut))
	if err != nil {
		return catalog.Result{}, err
	}
	receipt, err := r.Confirm(ctx, hash)
	if err != nil {
		return catalog.Result{}, err
	}

	data := map[string]any{
		"marketAddress":     addr.Hex(),
		"outcome":           domain.PositionLabel(req.Outcome),
		"outcomeId":         req.Outcome,
		"amount":            req.Amount.String(),
		"maxPriceImpactBps": req.MaxPriceImpactBps,
		"txHash":            hash.Hex(),
	}
	if ev, ok := chain.FindEvent(chain.MarketABI, "TokensBought", receipt.Logs); ok {
		data["tokensReceived"] = weiString(ev.Fields["tokenAmount"])
	}
	return catalog.Result{Data: data}, nil
}

func checkSell(ctx context.Context, r catalog.Runner, args catalog.Args) error {
	if err := tradeRequest(args, "minCollateralOut").Validate(); err != nil {
		return err
	}
	m, err := readMarket(ctx, r, args.Address("marketAddress"))
	if err != nil {
		return err
	}
	return requireTrading(m, r.Now())
}

func execSell(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	req := tradeRequest(args, "minCollateralOut")
	addr := args.Address("marketAddress")

	hash, err := r.Submit(ctx, chain.NewCall(addr, chain.MarketABI, "sell",
		outcomeID(req.Outcome), req.Amount, new(big.Int).SetUint64(req.MaxPriceImpactBps), req.MinOut))
	if err != nil {
		return catalog.Result{}, err
	}
	receipt, err := r.Confirm(ctx, hash)
	if err != nil {
		return catalog.Result{}, err
	}

	data := map[string]any{
		"marketAddress": addr.Hex(),
		"outcome":       domain.PositionLabel(req.Outcome),
		"outcomeId":     req.Outcome,
		"amount":        req.Amount.String(),
		"txHash":        hash.Hex(),
	}
	if ev, ok := chain.FindEvent(chain.MarketABI, "TokensSold", receipt.Logs); ok {
		data["collateralReturned"] = weiString(ev.Fields["collateralReturned"])
	}
	return catalog.Result{Data: data}, nil
}
