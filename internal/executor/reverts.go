package executor

import (
	"strings"

	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

type revertRule struct {
	kind    domain.ErrorKind
	reason  domain.Reason
	message string
	hint    string
}

const (
	hintBalance = "Top up your collateral balance or reduce the amount."
	hintImpact  = "Try a smaller amount or raise maxPriceImpactBps."
)

// revertTable maps custom error names and raw selectors to failure kinds.
var revertTable = map[string]revertRule{
	"Market_TradingEnded": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonTradingEnded,
		message: "trading has ended for this market",
		hint:    "Pick a market that is still open.",
	},
	"Market_InvalidOutcome": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonInvalidOutcome,
		message: "invalid outcome for this market",
		hint:    "Use YES or NO.",
	},
	"Market_PriceImpactTooHigh": {
		kind:    domain.KindPriceImpactTooHigh,
		message: "price impact is too high",
		hint:    hintImpact,
	},
	"Market_InsufficientOutput": {
		kind:    domain.KindContractRevert,
		message: "the trade would return less than the minimum output",
		hint:    "Lower minTokensOut or minCollateralOut and retry.",
	},
	"Market_InsufficientAllowance": {
		kind:    domain.KindInsufficientAllowance,
		message: "token allowance is too low",
		hint:    "Approve the market to spend your collateral and retry.",
	},
	"Market_InsufficientBalance": {
		kind: domain.KindInsufficientBalance, message: "insufficient balance", hint: hintBalance,
	},
	"0xfb8f41b2": {
		kind: domain.KindInsufficientBalance, message: "insufficient balance", hint: hintBalance,
	},
	"ERC20InsufficientBalance": {
		kind: domain.KindInsufficientBalance, message: "insufficient token balance", hint: hintBalance,
	},
	"Market_NoTokens": {
		kind:    domain.KindInsufficientBalance,
		message: "no outcome tokens held",
		hint:    "Check which outcome you hold before selling or claiming.",
	},
	"Market_AlreadyResolved": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonAlreadyResolved,
		message: "market has already been resolved",
	},
	"Market_TradingNotEnded": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonTradingNotEnded,
		message: "trading has not ended yet",
		hint:    "Wait until the market end time before resolving.",
	},
	"Market_NoOutcome": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonNotResolved,
		message: "market has no outcome yet",
		hint:    "Wait for the market to be resolved.",
	},
	"Market_Unauthorized": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonUnauthorized,
		message: "the signer is not allowed to do this",
	},
	"MarketFactory_Unauthorized": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonUnauthorized,
		message: "the signer is not a market creator",
		hint:    "Ask the factory owner to grant market creator rights.",
	},
	"OwnableUnauthorizedAccount": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonUnauthorized,
		message: "only the contract owner can do this",
	},
	"EnforcedPause": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonCreationPaused,
		message: "market creation is currently paused",
		hint:    "Try again once the factory is unpaused.",
	},
	"MarketFactory_InvalidEndTime": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonInvalidEndTime,
		message: "end time is too soon",
		hint:    "Choose an end date further in the future.",
	},
	"Market_InvalidEndTime": {
		kind: domain.KindPreconditionFailed, reason: domain.ReasonInvalidEndTime,
		message: "end time is invalid",
		hint:    "Choose an end date further in the future.",
	},
	"MarketFactory_MarketExists": {
		kind:    domain.KindContractRevert,
		message: "market exists",
		hint:    "Rephrase the question or look up the existing market.",
	},
	"MarketFactory_FeeTooHigh": {
		kind: domain.KindContractRevert, message: "protocol fee is too high",
	},
	"MarketFactory_InvalidLiquidity": {
		kind: domain.KindContractRevert, message: "initial liquidity is invalid",
	},
	"MarketFactory_InvalidOutcomeCount": {
		kind: domain.KindContractRevert, message: "a market needs at least two outcomes",
	},
	"MarketFactory_InvalidQuestion": {
		kind: domain.KindContractRevert, message: "question is invalid",
	},
	"MarketFactory_InvalidToken": {
		kind: domain.KindContractRevert, message: "collateral token is not accepted",
	},
}

// MapRevert turns a decoded revert into a typed failure. The name is tried
// first, then the raw selector. Unknown reverts keep their signature.
func MapRevert(rev *chain.RevertError) *domain.Error {
	sig := rev.Signature()
	rule, ok := revertTable[rev.Name]
	if !ok && rev.Selector != "" {
		rule, ok = revertTable[strings.ToLower(rev.Selector)]
	}
	if !ok {
		msg := rev.Reason
		if msg == "" {
			msg = rev.Error()
		}
		return &domain.Error{
			Kind:      domain.KindContractRevert,
			Signature: sig,
			Message:   msg,
			Err:       rev,
		}
	}
	return &domain.Error{
		Kind:      rule.kind,
		Reason:    rule.reason,
		Signature: sig,
		Message:   rule.message,
		Hint:      rule.hint,
		Err:       rev,
	}
}
