package actions

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

func getMarketInfo() catalog.Operation {
	return catalog.Operation{
		ID:          GetMarketInfo,
		Description: "Show a market's question, end time, status, prices and liquidity",
		Triggers: []string{
			"get market", "show market", "view market", "market info", "market details", "fetch market",
		},
		Examples: []string{"Show market info for 0x1234..."},
		Kind:     catalog.Read,
		Requires: readCaps,
		Schema:   []catalog.Field{marketAddressField()},
		Execute: func(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
			return marketDetails(ctx, r, args.Address("marketAddress"))
		},
	}
}

// marketDetails reads info, both prices and liquidity in parallel.
func marketDetails(ctx context.Context, r catalog.Runner, addr common.Address) (catalog.Result, error) {
	out, err := r.ReadAll(ctx,
		chain.NewCall(addr, chain.MarketABI, "getMarketInfo"),
		chain.NewCall(addr, chain.MarketABI, "getPrice", outcomeID(domain.PositionYes)),
		chain.NewCall(addr, chain.MarketABI, "getPrice", outcomeID(domain.PositionNo)),
		chain.NewCall(addr, chain.MarketABI, "getTotalLiquidity"),
	)
	if err != nil {
		return catalog.Result{}, err
	}
	m, err := marketFromInfo(addr, out[0])
	if err != nil {
		return catalog.Result{}, err
	}
	data := marketData(m, r.Now())
	data["yesPrice"] = weiString(out[1][0])
	data["noPrice"] = weiString(out[2][0])
	data["totalLiquidity"] = weiString(out[3][0])
	return catalog.Result{Data: data}, nil
}

func getPrice() catalog.Operation {
	return catalog.Operation{
		ID:          GetPrice,
		Description: "Show the current YES and NO prices of a market",
		Triggers: []string{
			"get price", "market price", "current price", "monitor market", "check odds",
		},
		Examples: []string{"What's the current price in market 0x1234...?"},
		Kind:     catalog.Read,
		Requires: readCaps,
		Schema:   []catalog.Field{marketAddressField()},
		Execute: func(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
			addr := args.Address("marketAddress")
			out, err := r.ReadAll(ctx,
				chain.NewCall(addr, chain.MarketABI, "getPrice", outcomeID(domain.PositionYes)),
				chain.NewCall(addr, chain.MarketABI, "getPrice", outcomeID(domain.PositionNo)),
			)
			if err != nil {
				return catalog.Result{}, err
			}
			return catalog.Result{Data: map[string]any{
				"marketAddress": addr.Hex(),
				"yesPrice":      weiString(out[0][0]),
				"noPrice":       weiString(out[1][0]),
			}}, nil
		},
	}
}

// createdMarkets returns every MarketCreated event of the factory, oldest first.
func createdMarkets(ctx context.Context, r catalog.Runner) ([]chain.Event, error) {
	s := r.Settings()
	logs, err := r.Logs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(s.LogsFromBlock),
		Addresses: []common.Address{s.Factory},
		Topics:    [][]common.Hash{{chain.EventTopic(chain.FactoryABI, "MarketCreated")}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]chain.Event, 0, len(logs))
	for _, lg := range logs {
		ev, err := chain.ParseLog(chain.FactoryABI, lg)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func listMarkets() catalog.Operation {
	return catalog.Operation{
		ID:          ListMarkets,
		Description: "List the most recently created markets",
		Triggers:    []string{"list markets", "show markets", "view markets", "all markets"},
		Examples:    []string{"List the top 5 markets"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Schema: []catalog.Field{{
			Name:        "limit",
			Type:        catalog.Integer,
			Min:         catalog.Bound(1),
			Max:         catalog.Bound(100),
			Description: "how many markets to show",
			Source:      catalog.SourcePattern,
			Default:     func(catalog.Env) any { return int64(10) },
		}},
		Execute: execListMarkets,
	}
}

func execListMarkets(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
	events, err := createdMarkets(ctx, r)
	if err != nil {
		return catalog.Result{}, err
	}
	limit := int(args.Int("limit"))
	if limit <= 0 {
		limit = 10
	}

	// Newest first.
	var picked []chain.Event
	for i := len(events) - 1; i >= 0 && len(picked) < limit; i-- {
		picked = append(picked, events[i])
	}

	now := r.Now()
	rows := make([]map[string]any, len(picked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Settings().ListConcurrency, 1))
	for i, ev := range picked {
		g.Go(func() error {
			addr, _ := ev.Fields["marketAddress"].(common.Address)
			m, err := readMarket(gctx, r, addr)
			if err != nil {
				return err
			}
			row := marketData(m, now)
			if id, ok := ev.Fields["marketId"].([32]byte); ok {
				row["marketId"] = common.Hash(id).Hex()
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return catalog.Result{}, err
	}
	return catalog.Result{Data: map[string]any{
		"markets": rows,
		"total":   len(events),
		"limit":   limit,
	}}, nil
}

func getMarketCount() catalog.Operation {
	return catalog.Operation{
		ID:          GetMarketCount,
		Description: "Count the markets created by the factory",
		Triggers:    []string{"count markets", "total markets", "how many markets", "market count"},
		Examples:    []string{"How many markets are there?"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Execute: func(ctx context.Context, r catalog.Runner, _ catalog.Args) (catalog.Result, error) {
			events, err := createdMarkets(ctx, r)
			if err != nil {
				return catalog.Result{}, err
			}
			return catalog.Result{Data: map[string]any{"count": len(events)}}, nil
		},
	}
}

func getMarketByID() catalog.Operation {
	return catalog.Operation{
		ID:          GetMarketByID,
		Description: "Look up a market by its factory id",
		Triggers:    []string{"market by id", "lookup market", "find market"},
		Examples:    []string{"Find market by id 0xabc...def"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Schema: []catalog.Field{{
			Name:        "marketId",
			Type:        catalog.Bytes32,
			Required:    true,
			Description: "factory market id",
			Source:      catalog.SourcePattern,
		}},
		Execute: func(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
			id := args.Bytes32("marketId")
			addr, err := marketByID(ctx, r, id)
			if err != nil {
				return catalog.Result{}, err
			}
			res, err := marketDetails(ctx, r, addr)
			if err != nil {
				return catalog.Result{}, err
			}
			res.Data["marketId"] = common.Hash(id).Hex()
			return res, nil
		},
	}
}

func getOwner() catalog.Operation {
	return catalog.Operation{
		ID:          GetOwner,
		Description: "Show the factory owner",
		Triggers:    []string{"contract owner", "who owns", "factory owner"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Execute: func(ctx context.Context, r catalog.Runner, _ catalog.Args) (catalog.Result, error) {
			out, err := r.Read(ctx, chain.NewCall(r.Settings().Factory, chain.FactoryABI, "owner"))
			if err != nil {
				return catalog.Result{}, err
			}
			owner, _ := out[0].(common.Address)
			return catalog.Result{Data: map[string]any{"owner": owner.Hex()}}, nil
		},
	}
}

func isPaused() catalog.Operation {
	return catalog.Operation{
		ID:          IsPaused,
		Description: "Check whether market creation is paused",
		Triggers:    []string{"paused", "pause check", "creation state", "is creation paused"},
		Examples:    []string{"Is market creation paused?"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Execute: func(ctx context.Context, r catalog.Runner, _ catalog.Args) (catalog.Result, error) {
			out, err := r.Read(ctx, chain.NewCall(r.Settings().Factory, chain.FactoryABI, "paused"))
			if err != nil {
				return catalog.Result{}, err
			}
			paused, _ := out[0].(bool)
			return catalog.Result{Data: map[string]any{"paused": paused}}, nil
		},
	}
}

func getMinMarketDuration() catalog.Operation {
	return catalog.Operation{
		ID:          GetMinMarketDuration,
		Description: "Show the minimum time a market must stay open",
		Triggers:    []string{"min duration", "minimum market duration", "minimum duration"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Execute: func(ctx context.Context, r catalog.Runner, _ catalog.Args) (catalog.Result, error) {
			out, err := r.Read(ctx, chain.NewCall(r.Settings().Factory, chain.FactoryABI, "MIN_MARKET_DURATION"))
			if err != nil {
				return catalog.Result{}, err
			}
			secs := int64(0)
			if n, ok := out[0].(*big.Int); ok && n != nil {
				secs = n.Int64()
			}
			return catalog.Result{Data: map[string]any{
				"seconds":  secs,
				"duration": (time.Duration(secs) * time.Second).String(),
			}}, nil
		},
	}
}

func checkMarketCreator() catalog.Operation {
	return catalog.Operation{
		ID:          CheckMarketCreator,
		Description: "Check whether an account may create markets",
		Triggers:    []string{"can i create", "market creator", "creator status"},
		Kind:        catalog.Read,
		Requires:    readCaps,
		Schema: []catalog.Field{{
			Name:        "account",
			Type:        catalog.Address,
			Description: "account to check",
			Source:      catalog.SourcePattern,
			Default: func(e catalog.Env) any {
				if e.Sender == (common.Address{}) {
					return nil
				}
				return e.Sender
			},
		}},
		Execute: func(ctx context.Context, r catalog.Runner, args catalog.Args) (catalog.Result, error) {
			if !args.Has("account") {
				return catalog.Result{}, domain.MissingParameter("account")
			}
			account := args.Address("account")
			out, err := r.Read(ctx, chain.NewCall(r.Settings().Factory, chain.FactoryABI, "isMarketCreator", account))
			if err != nil {
				return catalog.Result{}, err
			}
			ok, _ := out[0].(bool)
			return catalog.Result{Data: map[string]any{"account": account.Hex(), "isCreator": ok}}, nil
		},
	}
}
