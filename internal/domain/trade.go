package domain

import "math/big"

// MaxBps is the upper bound for any basis-point parameter.
const MaxBps = 10_000

// TradeRequest is a validated buy or sell instruction against one market.
type TradeRequest struct {
	MarketAddress     string
	Outcome           uint64
	Amount            *big.Int
	MaxPriceImpactBps uint64
	MinOut            *big.Int
}

// Validate checks the request before any chain interaction.
func (r TradeRequest) Validate() error {
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return InvalidParameter("amount", "a positive amount")
	}
	if r.Outcome != PositionYes && r.Outcome != PositionNo {
		return InvalidParameter("outcome", "YES (1) or NO (0)")
	}
	if r.MaxPriceImpactBps > MaxBps {
		return InvalidParameter("maxPriceImpactBps", "basis points between 0 and 10000")
	}
	if r.MinOut != nil && r.MinOut.Sign() < 0 {
		return InvalidParameter("minTokensOut", "a non-negative amount")
	}
	return nil
}
