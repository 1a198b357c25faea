package actions

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

func createMarket() catalog.Operation {
	return catalog.Operation{
		ID:          CreateMarket,
		Description: "Create a new YES/NO prediction market on the factory",
		Triggers: []string{
			"create market", "new market", "start market", "create prediction",
			"initialize market", "create a market",
		},
		Examples: []string{
			"Create a prediction market asking 'Will ETH reach $5000 by end of 2026?'",
			"Create a market asking 'Will it rain tomorrow?' ending 2026-12-31",
		},
		Kind:     catalog.Write,
		Requires: []catalog.Capability{catalog.CapChain, catalog.CapSigner, catalog.CapCollateral},
		Schema: []catalog.Field{
			{
				Name:        "question",
				Type:        catalog.String,
				Required:    true,
				Description: "the question the market predicts",
			},
			{
				Name:        "endTime",
				Type:        catalog.Timestamp,
				Future:      true,
				Description: "when trading ends",
				Default:     func(e catalog.Env) any { return e.Now.Add(e.MarketDuration) },
			},
			{
				Name:        "collateralToken",
				Type:        catalog.Address,
				Description: "ERC20 collateral token",
				Source:      catalog.SourcePattern,
				Default: func(e catalog.Env) any {
					if e.CollateralToken == (common.Address{}) {
						return nil
					}
					return e.CollateralToken
				},
			},
			{
				Name:        "initialLiquidity",
				Type:        catalog.Decimal,
				Positive:    true,
				Description: "initial liquidity in collateral tokens",
				Default: func(e catalog.Env) any {
					if e.Liquidity == nil {
						return nil
					}
					return e.Liquidity
				},
			},
			{
				Name:        "protocolFee",
				Type:        catalog.Integer,
				Min:         catalog.Bound(0),
				Max:         catalog.Bound(domain.MaxBps),
				Description: "protocol fee",
				Default:     func(e catalog.Env) any { return e.ProtocolFee },
			},
			{
				Name:        "outcomes",
				Type:        catalog.StringList,
				MinItems:    2,
				Description: "outcome labels",
				Default:     func(catalog.Env) any { return []string{"Yes", "No"} },
			},
		},
		Check:   checkCreate,
		Execute: execCreate,
	}
}

func checkCreate(ctx context.Context, r catalog.Runner, args catalog.Args) error {
	s := r.Settings()
	out, err := r.ReadAll(ctx,
		chain.NewCall(s.Factory, chain.FactoryABI, "paused"),
		chain.NewCall(s.Factory, chain.FactoryABI, "isMarketCreator", r.Sender()),
		chain.NewCall(s.Factory, chain.FactoryABI, "MIN_MARKET_DURATION"),
	)
	if err != nil {
		return err
	}
	if paused, _ := out[0][0].(bool); paused {
		de := domain.PreconditionFailed(domain.ReasonCreationPaused, "market creation is currently paused")
		de.Hint = "Try again once the factory is unpaused."
		return de
	}
	if ok, _ := out[1][0].(bool); !ok {
		de := domain.PreconditionFailed(domain.ReasonUnauthorized,
			fmt.Sprintf("%s is not an authorized market creator", r.Sender().Hex()))
		de.Hint = "Ask the factory owner to grant market creator rights."
		return de
	}
	if minDur, _ := out[2][0].(*big.Int); minDur != nil {
		minimum := time.Duration(minDur.Int64()) * time.Second
		if args.Time("endTime").Sub(r.Now()) < minimum {
			de := domain.PreconditionFailed(domain.ReasonInvalidEndTime,
				fmt.Sprintf("the market must stay open for at least %s", minimum))
			de.Hint = "Choose an end date further in the future."
			return de.WithDetail("minDurationSeconds", minDur.Int64())
		}
	}
	if !args.Has("collateralToken") {
		return domain.MissingParameter("collateralToken")
	}
	return requireBalance(ctx, r, args.Address("collateralToken"), r.Sender(), args.BigIntOrZero("initialLiquidity"))
}

func execCreate(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	factory := r.Settings().Factory
	token := args.Address("collateralToken")
	liquidity := args.BigIntOrZero("initialLiquidity")

	if liquidity.Sign() > 0 {
		if err := r.EnsureAllowance(ctx, token, factory, liquidity); err != nil {
			return catalog.Result{}, err
		}
	}
	hash, err := r.Submit(ctx, chain.NewCall(factory, chain.FactoryABI, "createMarket",
		args.String("question"),
		big.NewInt(args.Time("endTime").Unix()),
		token,
		liquidity,
		big.NewInt(args.Int("protocolFee")),
		args.Strings("outcomes"),
	))
	if err != nil {
		return catalog.Result{}, err
	}
	receipt, err := r.Confirm(ctx, hash)
	if err != nil {
		return catalog.Result{}, err
	}

	data := map[string]any{
		"question":         args.String("question"),
		"endTime":          args.Time("endTime").Unix(),
		"collateralToken":  token.Hex(),
		"initialLiquidity": liquidity.String(),
		"protocolFee":      args.Int("protocolFee"),
		"outcomes":         args.Strings("outcomes"),
		"txHash":           hash.Hex(),
	}
	if ev, ok := chain.FindEvent(chain.FactoryABI, "MarketCreated", receipt.Logs); ok {
		if id, ok := ev.Fields["marketId"].([32]byte); ok {
			data["marketId"] = common.Hash(id).Hex()
		}
		if addr, ok := ev.Fields["marketAddress"].(common.Address); ok {
			data["marketAddress"] = addr.Hex()
		}
	}
	return catalog.Result{Data: data}, nil
}
