package actions

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// readMarket loads the on-chain snapshot of one market.
func readMarket(ctx context.Context, r catalog.Runner, addr common.Address) (domain.Market, error) {
	out, err := r.Read(ctx, chain.NewCall(addr, chain.MarketABI, "getMarketInfo"))
	if err != nil {
		return domain.Market{}, err
	}
	return marketFromInfo(addr, out)
}

func marketFromInfo(addr common.Address, out []any) (domain.Market, error) {
	if len(out) < 4 {
		return domain.Market{}, fmt.Errorf("actions: getMarketInfo returned %d values", len(out))
	}
	question, _ := out[0].(string)
	end, _ := out[1].(*big.Int)
	collateral, _ := out[2].(common.Address)
	outcome, _ := out[3].(uint8)
	m := domain.Market{
		Address:         addr.Hex(),
		Question:        question,
		CollateralToken: collateral.Hex(),
		Outcome:         domain.MarketOutcome(outcome),
	}
	if end != nil {
		m.EndTime = time.Unix(end.Int64(), 0).UTC()
	}
	return m, nil
}

// requireTrading fails unless the market accepts trades now.
func requireTrading(m domain.Market, now time.Time) error {
	if m.Outcome != domain.OutcomeTrading {
		return domain.PreconditionFailed(domain.ReasonAlreadyResolved,
			fmt.Sprintf("market is already resolved (%s)", m.Outcome))
	}
	if !m.EndTime.After(now) {
		de := domain.PreconditionFailed(domain.ReasonTradingEnded,
			fmt.Sprintf("trading ended at %s", m.EndTime.Format(time.RFC3339)))
		de.Hint = "Pick a market that is still open."
		return de
	}
	return nil
}

// requireBalance fails when account holds less than amount of token.
func requireBalance(ctx context.Context, r catalog.Runner, token, account common.Address, amount *big.Int) error {
	out, err := r.Read(ctx, chain.NewCall(token, chain.ERC20ABI, "balanceOf", account))
	if err != nil {
		return err
	}
	bal, _ := out[0].(*big.Int)
	if bal == nil {
		bal = new(big.Int)
	}
	if bal.Cmp(amount) < 0 {
		return &domain.Error{
			Kind:    domain.KindInsufficientBalance,
			Message: fmt.Sprintf("balance %s is below the required %s", units(bal), units(amount)),
			Hint:    "Top up your collateral balance or reduce the amount.",
			Details: map[string]any{"balance": bal.String(), "required": amount.String()},
		}
	}
	return nil
}

// marketByID resolves a factory market id to its address.
func marketByID(ctx context.Context, r catalog.Runner, id [32]byte) (common.Address, error) {
	out, err := r.Read(ctx, chain.NewCall(r.Settings().Factory, chain.FactoryABI, "getMarket", id))
	if err != nil {
		return common.Address{}, err
	}
	addr, _ := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, domain.PreconditionFailed(domain.ReasonMarketNotFound,
			fmt.Sprintf("no market with id %s", common.Hash(id).Hex()))
	}
	return addr, nil
}

// marketData is the shared data shape for a market snapshot.
func marketData(m domain.Market, now time.Time) map[string]any {
	return map[string]any{
		"marketAddress":   m.Address,
		"question":        m.Question,
		"endTime":         m.EndTime.Unix(),
		"collateralToken": m.CollateralToken,
		"status":          m.Outcome.String(),
		"trading":         m.Trading(now),
	}
}

func outcomeID(o uint64) *big.Int { return new(big.Int).SetUint64(o) }

// units renders a wei amount in whole tokens for messages.
func units(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -catalog.TokenDecimals).StringFixed(4)
}

func weiString(v any) string {
	if n, ok := v.(*big.Int); ok && n != nil {
		return n.String()
	}
	return "0"
}
