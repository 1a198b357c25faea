package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

func addLiquidity() catalog.Operation {
	return catalog.Operation{
		ID:          AddLiquidity,
		Description: "Add collateral liquidity to an open market",
		Triggers:    []string{"add liquidity", "provide liquidity", "fund market"},
		Examples:    []string{"Add 1000 MODE liquidity to market 0x1234..."},
		Kind:        catalog.Write,
		Requires:    writeCaps,
		Schema: []catalog.Field{
			marketAddressField(),
			amountField("collateral to add"),
		},
		Check:   checkAddLiquidity,
		Execute: execAddLiquidity,
	}
}

func checkAddLiquidity(ctx context.Context, r catalog.Runner, args catalog.Args) error {
	m, err := readMarket(ctx, r, args.Address("marketAddress"))
	if err != nil {
		return err
	}
	if err := requireTrading(m, r.Now()); err != nil {
		return err
	}
	return requireBalance(ctx, r, common.HexToAddress(m.CollateralToken), r.Sender(), args.BigInt("amount"))
}

func execAddLiquidity(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	addr := args.Address("marketAddress")
	amount := args.BigInt("amount")

	m, err := readMarket(ctx, r, addr)
	if err != nil {
		return catalog.Result{}, err
	}
	if err := r.EnsureAllowance(ctx, common.HexToAddress(m.CollateralToken), addr, amount); err != nil {
		return catalog.Result{}, err
	}
	hash, err := r.Submit(ctx, chain.NewCall(addr, chain.MarketABI, "addLiquidity", amount))
	if err != nil {
		return catalog.Result{}, err
	}
	receipt, err := r.Confirm(ctx, hash)
	if err != nil {
		return catalog.Result{}, err
	}

	data := map[string]any{
		"marketAddress": addr.Hex(),
		"amount":        amount.String(),
		"txHash":        hash.Hex(),
	}
	if ev, ok := chain.FindEvent(chain.MarketABI, "LiquidityAdded", receipt.Logs); ok {
		data["lpTokens"] = weiString(ev.Fields["lpTokens"])
	}
	return catalog.Result{Data: data}, nil
}

func resolveMarket() catalog.Operation {
	return catalog.Operation{
		ID:          ResolveMarket,
		Description: "Resolve an ended market with the winning outcome",
		Triggers:    []string{"resolve market", "settle market", "finalize outcome"},
		Examples:    []string{"Resolve market 0x1234... with YES outcome"},
		Kind:        catalog.Write,
		Requires:    writeCaps,
		Schema: []catalog.Field{
			marketAddressField(),
			outcomeField("the winning outcome"),
		},
		Check:   checkResolve,
		Execute: execResolve,
	}
}

func checkResolve(ctx context.Context, r catalog.Runner, args catalog.Args) error {
	m, err := readMarket(ctx, r, args.Address("marketAddress"))
	if err != nil {
		return err
	}
	if m.Outcome != domain.OutcomeTrading {
		return domain.PreconditionFailed(domain.ReasonAlreadyResolved,
			fmt.Sprintf("market is already resolved (%s)", m.Outcome))
	}
	if m.EndTime.After(r.Now()) {
		de := domain.PreconditionFailed(domain.ReasonTradingNotEnded,
			fmt.Sprintf("trading runs until %s", m.EndTime.Format(time.RFC3339)))
		de.Hint = "Wait until the market end time before resolving."
		return de
	}
	return nil
}

func execResolve(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	addr := args.Address("marketAddress")
	outcome := args.Outcome("outcome")

	hash, err := r.Submit(ctx, chain.NewCall(addr, chain.MarketABI, "resolveMarket", outcomeID(outcome)))
	if err != nil {
		return catalog.Result{}, err
	}
	receipt, err := r.Confirm(ctx, hash)
	if err != nil {
		return catalog.Result{}, err
	}

	data := map[string]any{
		"marketAddress": addr.Hex(),
		"outcome":       domain.PositionLabel(outcome),
		"txHash":        hash.Hex(),
	}
	if ev, ok := chain.FindEvent(chain.MarketABI, "MarketResolved", receipt.Logs); ok {
		if o, ok := ev.Fields["outcome"].(uint8); ok {
			data["status"] = domain.MarketOutcome(o).String()
		}
	}
	return catalog.Result{Data: data}, nil
}

func claimWinnings() catalog.Operation {
	return catalog.Operation{
		ID:          ClaimWinnings,
		Description: "Claim winnings from a resolved market",
		Triggers:    []string{"claim winnings", "redeem winnings", "collect winnings"},
		Examples:    []string{"Claim my winnings from market 0x1234..."},
		Kind:        catalog.Write,
		Requires:    writeCaps,
		Schema:      []catalog.Field{marketAddressField()},
		Check:       checkClaim,
		Execute:     execClaim,
	}
}

func checkClaim(ctx context.Context, r catalog.Runner, args catalog.Args) error {
	m, err := readMarket(ctx, r, args.Address("marketAddress"))
	if err != nil {
		return err
	}
	if !m.Outcome.Resolved() {
		de := domain.PreconditionFailed(domain.ReasonNotResolved,
			fmt.Sprintf("market is not resolved (%s)", m.Outcome))
		de.Hint = "Wait for the market to be resolved."
		return de
	}
	return nil
}

func execClaim(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	addr := args.Address("marketAddress")

	hash, err := r.Submit(ctx, chain.NewCall(addr, chain.MarketABI, "claimWinnings"))
	if err != nil {
		return catalog.Result{}, err
	}
	receipt, err := r.Confirm(ctx, hash)
	if err != nil {
		return catalog.Result{}, err
	}

	data := map[string]any{
		"marketAddress": addr.Hex(),
		"txHash":        hash.Hex(),
	}
	if ev, ok := chain.FindEvent(chain.MarketABI, "WinningsClaimed", receipt.Logs); ok {
		data["amount"] = weiString(ev.Fields["amount"])
	}
	return catalog.Result{Data: data}, nil
}
