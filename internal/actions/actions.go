// Package actions is the fixed table of prediction-market operations offered
// to chat. Each entry pairs a parameter schema and trigger phrases with the
// chain preconditions and executor that implement it.
package actions

import (
	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Operation ids.
const (
	CreateMarket         = "CREATE_MARKET"
	BuyPosition          = "BUY_POSITION"
	SellPosition         = "SELL_POSITION"
	AddLiquidity         = "ADD_LIQUIDITY"
	ResolveMarket        = "RESOLVE_MARKET"
	ClaimWinnings        = "CLAIM_WINNINGS"
	GetMarketInfo        = "GET_MARKET_INFO"
	GetPrice             = "GET_PRICE"
	ListMarkets          = "LIST_MARKETS"
	GetMarketCount       = "GET_MARKET_COUNT"
	GetMarketByID        = "GET_MARKET_BY_ID"
	GetOwner             = "GET_OWNER"
	IsPaused             = "IS_PAUSED"
	GetMinMarketDuration = "GET_MIN_MARKET_DURATION"
	CheckMarketCreator   = "CHECK_MARKET_CREATOR"
)

var (
	readCaps  = []catalog.Capability{catalog.CapChain}
	writeCaps = []catalog.Capability{catalog.CapChain, catalog.CapSigner}
)

// All returns every operation in catalog order. Order breaks resolver ties.
func All() []catalog.Operation {
	return []catalog.Operation{
		createMarket(),
		buyPosition(),
		sellPosition(),
		addLiquidity(),
		resolveMarket(),
		claimWinnings(),
		getMarketInfo(),
		getPrice(),
		listMarkets(),
		getMarketCount(),
		getMarketByID(),
		getOwner(),
		isPaused(),
		getMinMarketDuration(),
		checkMarketCreator(),
	}
}

// New builds the catalog.
func New() (*catalog.Catalog, error) {
	return catalog.New(All()...)
}

func marketAddressField() catalog.Field {
	return catalog.Field{
		Name:        "marketAddress",
		Type:        catalog.Address,
		Required:    true,
		Description: "market contract address",
		Source:      catalog.SourcePattern,
	}
}

func outcomeField(desc string) catalog.Field {
	return catalog.Field{
		Name:        "outcome",
		Type:        catalog.Outcome,
		Required:    true,
		Description: desc,
	}
}

func amountField(desc string) catalog.Field {
	return catalog.Field{
		Name:        "amount",
		Type:        catalog.Decimal,
		Required:    true,
		Positive:    true,
		Description: desc,
	}
}

func maxImpactField() catalog.Field {
	return catalog.Field{
		Name:        "maxPriceImpactBps",
		Type:        catalog.Integer,
		Min:         catalog.Bound(0),
		Max:         catalog.Bound(domain.MaxBps),
		Expected:    "basis points between 0 and 10000",
		Description: "largest acceptable price impact",
		Source:      catalog.SourcePattern,
		Default:     func(e catalog.Env) any { return e.MaxImpactBps },
	}
}

func minOutField(name, desc string) catalog.Field {
	return catalog.Field{
		Name:        name,
		Type:        catalog.Decimal,
		Description: desc,
		Source:      catalog.SourcePattern,
		Default:     func(catalog.Env) any { return int64(0) },
	}
}
