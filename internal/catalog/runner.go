package catalog

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/predictplugin/internal/chain"
)

// Settings are the process-wide values executors need.
type Settings struct {
	Factory         common.Address
	CollateralToken common.Address
	// MaxImpactBps is the configured price-impact bound.
	MaxImpactBps int64
	// TrialPercent sizes the smaller trade suggested after an impact failure.
	TrialPercent    int64
	ListConcurrency int
	LogsFromBlock   uint64
}

// Runner is the execution context an operation runs against. Each call
// advances the invocation's state machine: reads stay in the current state,
// EnsureAllowance may enter Approving, Submit enters Executing and Confirm
// enters Confirming.
type Runner interface {
	Now() time.Time
	Sender() common.Address
	Settings() Settings

	Read(ctx context.Context, call chain.Call) ([]any, error)
	// ReadAll performs the calls concurrently and returns outputs in order.
	ReadAll(ctx context.Context, calls ...chain.Call) ([][]any, error)
	Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// EnsureAllowance approves spender for amount of token only when the
	// current allowance is lower, and waits for the approval to be mined.
	EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error
	// Submit sends the operation's single transaction.
	Submit(ctx context.Context, call chain.Call) (common.Hash, error)
	// Confirm waits for the receipt of hash under the configured timeout.
	Confirm(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}
