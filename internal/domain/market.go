package domain

import (
	"math/big"
	"time"
)

// MarketOutcome is the on-chain resolution state of a market.
type MarketOutcome uint8

const (
	OutcomeTrading MarketOutcome = iota
	OutcomeYes
	OutcomeNo
	OutcomeInvalid
)

func (o MarketOutcome) String() string {
	switch o {
	case OutcomeTrading:
		return "Trading"
	case OutcomeYes:
		return "Yes"
	case OutcomeNo:
		return "No"
	case OutcomeInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Resolved reports whether the market has a winning outcome.
func (o MarketOutcome) Resolved() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Position outcome ids used by buy, sell and resolve.
const (
	PositionNo  uint64 = 0
	PositionYes uint64 = 1
)

// PositionLabel returns "YES" or "NO" for a position outcome id.
func PositionLabel(outcome uint64) string {
	if outcome == PositionYes {
		return "YES"
	}
	return "NO"
}

// Market is a snapshot of one on-chain market. It is read fresh for every
// invocation and never cached.
type Market struct {
	ID              string
	Address         string
	Question        string
	EndTime         time.Time
	CollateralToken string
	Outcome         MarketOutcome
	Prices          map[uint64]*big.Int
	TotalLiquidity  *big.Int
}

// Trading reports whether the market accepts trades at now.
func (m Market) Trading(now time.Time) bool {
	return m.Outcome == OutcomeTrading && m.EndTime.After(now)
}
