package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// errSecondSubmit guards the one-transaction-per-invocation rule.
var errSecondSubmit = errors.New("executor: operation submitted more than one transaction")

// run is the per-invocation catalog.Runner.
type run struct {
	o      *Orchestrator
	op     catalog.Operation
	logger *slog.Logger

	mu        sync.Mutex
	env       domain.ResponseEnvelope
	submitted bool
}

var _ catalog.Runner = (*run)(nil)

func (o *Orchestrator) newRun(op catalog.Operation, messageID string) *run {
	return &run{
		o:  o,
		op: op,
		logger: o.logger.With(
			slog.String("message_id", messageID),
			slog.String("operation", op.ID),
		),
		env: domain.ResponseEnvelope{
			MessageID: messageID,
			Operation: op.ID,
			States:    []domain.State{domain.StateIdle},
			StartedAt: o.Now(),
		},
	}
}

func (r *run) enter(s domain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.env.Final() == s {
		return
	}
	r.env.States = append(r.env.States, s)
	r.logger.Debug("state", slog.String("state", string(s)))
}

func (r *run) addHash(h common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env.TxHashes = append(r.env.TxHashes, h.Hex())
}

func (r *run) keepReceipt(h common.Hash, receipt *types.Receipt) {
	raw, err := receipt.MarshalJSON()
	if err != nil {
		r.logger.Debug("receipt not encodable", slog.String("tx_hash", h.Hex()), slog.String("error", err.Error()))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.env.Receipts == nil {
		r.env.Receipts = make(map[string][]byte)
	}
	r.env.Receipts[h.Hex()] = raw
}

func (r *run) complete(res catalog.Result) domain.ResponseEnvelope {
	r.enter(domain.StateCompleted)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env.Success = true
	r.env.Data = res.Data
	r.env.EndedAt = r.o.Now()
	r.logger.Info("operation completed",
		slog.String("tx_hash", r.env.TxHash()),
		slog.Duration("elapsed", r.env.EndedAt.Sub(r.env.StartedAt)),
	)
	return r.env
}

func (r *run) fail(err error) domain.ResponseEnvelope {
	de := normalize(err)
	r.enter(domain.StateFailed)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env.Success = false
	r.env.Error = domain.Describe(de)
	r.env.EndedAt = r.o.Now()
	r.logger.Warn("operation failed",
		slog.String("kind", string(de.Kind)),
		slog.String("reason", string(de.Reason)),
		slog.String("tx_hash", r.env.TxHash()),
		slog.String("error", de.Error()),
	)
	return r.env
}

func (r *run) Now() time.Time             { return r.o.Now() }
func (r *run) Sender() common.Address     { return r.o.gw.Sender() }
func (r *run) Settings() catalog.Settings { return r.o.cfg.Settings }

func (r *run) Read(ctx context.Context, call chain.Call) ([]any, error) {
	out, err := r.o.gw.Read(ctx, call)
	if err != nil {
		r.logger.Debug("read failed", slog.String("call", call.String()), slog.String("error", err.Error()))
		return nil, normalize(err)
	}
	return out, nil
}

func (r *run) ReadAll(ctx context.Context, calls ...chain.Call) ([][]any, error) {
	out := make([][]any, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			res, err := r.Read(gctx, call)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *run) Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := r.o.gw.Logs(ctx, q)
	if err != nil {
		return nil, normalize(err)
	}
	return logs, nil
}

func (r *run) EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	out, err := r.Read(ctx, chain.NewCall(token, chain.ERC20ABI, "allowance", r.Sender(), spender))
	if err != nil {
		return err
	}
	current, _ := out[0].(*big.Int)
	if current != nil && current.Cmp(amount) >= 0 {
		return nil
	}

	r.enter(domain.StateApproving)
	hash, err := r.o.gw.Write(ctx, chain.NewCall(token, chain.ERC20ABI, "approve", spender, amount))
	if err != nil {
		return normalize(err)
	}
	r.addHash(hash)
	r.logger.Info("approval submitted",
		slog.String("tx_hash", hash.Hex()),
		slog.String("spender", spender.Hex()),
		slog.String("amount", amount.String()),
	)
	_, err = r.wait(ctx, hash)
	return err
}

func (r *run) Submit(ctx context.Context, call chain.Call) (common.Hash, error) {
	r.mu.Lock()
	if r.submitted {
		r.mu.Unlock()
		return common.Hash{}, errSecondSubmit
	}
	r.submitted = true
	r.mu.Unlock()

	r.enter(domain.StateExecuting)
	hash, err := r.o.gw.Write(ctx, call)
	if err != nil {
		return common.Hash{}, normalize(err)
	}
	r.addHash(hash)
	r.logger.Info("transaction submitted", slog.String("call", call.String()), slog.String("tx_hash", hash.Hex()))
	return hash, nil
}

func (r *run) Confirm(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r.enter(domain.StateConfirming)
	return r.wait(ctx, hash)
}

// wait blocks for a receipt under the configured timeout. It never resubmits.
func (r *run) wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	wctx, cancel := context.WithTimeout(ctx, r.o.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := r.o.gw.WaitForReceipt(wctx, hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ConfirmationTimeout(hash.Hex(), err)
		}
		return nil, domain.TransportError(fmt.Errorf("executor: wait for %s: %w", hash.Hex(), err))
	}
	r.keepReceipt(hash, receipt)
	if receipt.Status != types.ReceiptStatusSuccessful {
		de := domain.ContractRevert("", "transaction reverted on-chain")
		de.Hint = "Inspect the transaction on the block explorer."
		return nil, de.WithDetail("txHash", hash.Hex())
	}
	return receipt, nil
}
