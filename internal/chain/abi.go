package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
 {"type":"function","name":"createMarket","stateMutability":"nonpayable","inputs":[
   {"name":"question","type":"string"},{"name":"endTime","type":"uint256"},
   {"name":"collateralToken","type":"address"},{"name":"initialLiquidity","type":"uint256"},
   {"name":"protocolFee","type":"uint256"},{"name":"outcomes","type":"string[]"}],
  "outputs":[{"name":"marketAddress","type":"address"}]},
 {"type":"function","name":"getMarket","stateMutability":"view","inputs":[{"name":"marketId","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"markets","stateMutability":"view","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"isMarketCreator","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"MIN_MARKET_DURATION","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"addMarketCreator","stateMutability":"nonpayable","inputs":[{"name":"creator","type":"address"}],"outputs":[]},
 {"type":"function","name":"removeMarketCreator","stateMutability":"nonpayable","inputs":[{"name":"creator","type":"address"}],"outputs":[]},
 {"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"event","name":"MarketCreated","anonymous":false,"inputs":[
   {"name":"marketId","type":"bytes32","indexed":false},
   {"name":"marketAddress","type":"address","indexed":true},
   {"name":"question","type":"string","indexed":false},
   {"name":"endTime","type":"uint256","indexed":false},
   {"name":"collateralToken","type":"address","indexed":false},
   {"name":"virtualLiquidity","type":"uint256","indexed":false}]},
 {"type":"error","name":"EnforcedPause","inputs":[]},
 {"type":"error","name":"ExpectedPause","inputs":[]},
 {"type":"error","name":"MarketFactory_FeeTooHigh","inputs":[]},
 {"type":"error","name":"MarketFactory_InvalidEndTime","inputs":[]},
 {"type":"error","name":"MarketFactory_InvalidLiquidity","inputs":[]},
 {"type":"error","name":"MarketFactory_InvalidOutcomeCount","inputs":[]},
 {"type":"error","name":"MarketFactory_InvalidQuestion","inputs":[]},
 {"type":"error","name":"MarketFactory_InvalidToken","inputs":[]},
 {"type":"error","name":"MarketFactory_MarketExists","inputs":[]},
 {"type":"error","name":"MarketFactory_Unauthorized","inputs":[]},
 {"type":"error","name":"OwnableInvalidOwner","inputs":[{"name":"owner","type":"address"}]},
 {"type":"error","name":"OwnableUnauthorizedAccount","inputs":[{"name":"account","type":"address"}]}
]`

const marketABIJSON = `[
 {"type":"function","name":"buy","stateMutability":"nonpayable","inputs":[
   {"name":"outcomeId","type":"uint256"},{"name":"collateralAmount","type":"uint256"},
   {"name":"maxPriceImpactBps","type":"uint256"},{"name":"minTokensOut","type":"uint256"}],
  "outputs":[{"name":"tokenAmount","type":"uint256"}]},
 {"type":"function","name":"sell","stateMutability":"nonpayable","inputs":[
   {"name":"outcomeId","type":"uint256"},{"name":"tokenAmount","type":"uint256"},
   {"name":"maxPriceImpactBps","type":"uint256"},{"name":"minCollateralOut","type":"uint256"}],
  "outputs":[{"name":"collateralReturned","type":"uint256"}]},
 {"type":"function","name":"calcBuyAmount","stateMutability":"view","inputs":[{"name":"outcomeId","type":"uint256"},{"name":"collateralAmount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"calcSellAmount","stateMutability":"view","inputs":[{"name":"outcomeId","type":"uint256"},{"name":"tokenAmount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"calculatePriceImpact","stateMutability":"view","inputs":[{"name":"outcomeId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"priceImpactBps","type":"uint256"}]},
 {"type":"function","name":"getMarketInfo","stateMutability":"view","inputs":[],"outputs":[
   {"name":"question","type":"string"},{"name":"endTime","type":"uint256"},
   {"name":"collateralToken","type":"address"},{"name":"outcome","type":"uint8"}]},
 {"type":"function","name":"getPrice","stateMutability":"view","inputs":[{"name":"outcomeId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getOutcomeCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getOutcomeDescription","stateMutability":"view","inputs":[{"name":"outcomeId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"getTotalLiquidity","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getTotalRealCollateral","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"addLiquidity","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"resolveMarket","stateMutability":"nonpayable","inputs":[{"name":"outcome","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"extendMarket","stateMutability":"nonpayable","inputs":[{"name":"newEndTime","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"invalidateMarket","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"function","name":"claimWinnings","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"function","name":"claimInvalidMarket","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"function","name":"collectFees","stateMutability":"nonpayable","inputs":[],"outputs":[]},
 {"type":"event","name":"TokensBought","anonymous":false,"inputs":[
   {"name":"buyer","type":"address","indexed":true},{"name":"outcomeId","type":"uint256","indexed":true},
   {"name":"collateralAmount","type":"uint256","indexed":false},{"name":"tokenAmount","type":"uint256","indexed":false}]},
 {"type":"event","name":"TokensSold","anonymous":false,"inputs":[
   {"name":"seller","type":"address","indexed":true},{"name":"outcomeId","type":"uint256","indexed":true},
   {"name":"tokenAmount","type":"uint256","indexed":false},{"name":"collateralReturned","type":"uint256","indexed":false}]},
 {"type":"event","name":"LiquidityAdded","anonymous":false,"inputs":[
   {"name":"provider","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},
   {"name":"lpTokens","type":"uint256","indexed":false}]},
 {"type":"event","name":"MarketResolved","anonymous":false,"inputs":[{"name":"outcome","type":"uint8","indexed":false}]},
 {"type":"event","name":"MarketInvalidated","anonymous":false,"inputs":[]},
 {"type":"event","name":"MarketExtended","anonymous":false,"inputs":[
   {"name":"oldEndTime","type":"uint256","indexed":false},{"name":"newEndTime","type":"uint256","indexed":false}]},
 {"type":"event","name":"WinningsClaimed","anonymous":false,"inputs":[
   {"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
 {"type":"event","name":"InvalidMarketClaimed","anonymous":false,"inputs":[
   {"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
 {"type":"event","name":"FeesCollected","anonymous":false,"inputs":[
   {"name":"collector","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
 {"type":"error","name":"Market_AlreadyResolved","inputs":[]},
 {"type":"error","name":"Market_InsufficientAllowance","inputs":[]},
 {"type":"error","name":"Market_InsufficientBalance","inputs":[]},
 {"type":"error","name":"Market_InsufficientOutput","inputs":[]},
 {"type":"error","name":"Market_InvalidEndTime","inputs":[]},
 {"type":"error","name":"Market_InvalidOutcome","inputs":[]},
 {"type":"error","name":"Market_NoFeesToCollect","inputs":[]},
 {"type":"error","name":"Market_NoOutcome","inputs":[]},
 {"type":"error","name":"Market_NoTokens","inputs":[]},
 {"type":"error","name":"Market_NotInvalid","inputs":[]},
 {"type":"error","name":"Market_PriceImpactTooHigh","inputs":[]},
 {"type":"error","name":"Market_TradingEnded","inputs":[]},
 {"type":"error","name":"Market_TradingNotEnded","inputs":[]},
 {"type":"error","name":"Market_Unauthorized","inputs":[]}
]`

const erc20ABIJSON = `[
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"error","name":"ERC20InsufficientBalance","inputs":[{"name":"sender","type":"address"},{"name":"balance","type":"uint256"},{"name":"needed","type":"uint256"}]}
]`

// Parsed contract ABIs. They are immutable after package init.
var (
	FactoryABI = mustParse("factory", factoryABIJSON)
	MarketABI  = mustParse("market", marketABIJSON)
	ERC20ABI   = mustParse("erc20", erc20ABIJSON)
)

func mustParse(name, raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: parse %s abi: %v", name, err))
	}
	return &parsed
}
