// Package executor runs catalog operations against the chain gateway,
// driving each invocation through the state machine
// Idle → Validating → (Approving) → Executing → (Confirming) → Completed | Failed.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// TrialPercent sizes the smaller trade probed after a price-impact failure.
const TrialPercent = 10

// DefaultReceiptTimeout bounds a receipt wait when none is configured.
const DefaultReceiptTimeout = 60 * time.Second

// Config holds orchestrator tuning.
type Config struct {
	ReceiptTimeout time.Duration
	Settings       catalog.Settings
}

// Orchestrator executes one operation per inbound message.
type Orchestrator struct {
	gw     chain.Gateway
	cfg    Config
	guard  Guard
	now    func() time.Time
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil guard admits every message.
func NewOrchestrator(gw chain.Gateway, cfg Config, guard Guard, logger *slog.Logger) *Orchestrator {
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = DefaultReceiptTimeout
	}
	if cfg.Settings.TrialPercent <= 0 {
		cfg.Settings.TrialPercent = TrialPercent
	}
	if cfg.Settings.ListConcurrency <= 0 {
		cfg.Settings.ListConcurrency = 4
	}
	return &Orchestrator{
		gw:     gw,
		cfg:    cfg,
		guard:  guard,
		now:    time.Now,
		logger: logger.With(slog.String("component", "orchestrator")),
	}
}

// SetClock replaces the wall clock, for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Now returns the orchestrator's current time.
func (o *Orchestrator) Now() time.Time { return o.now().UTC() }

// Sender is the signing account.
func (o *Orchestrator) Sender() common.Address { return o.gw.Sender() }

// Settings returns the process-wide values operations read.
func (o *Orchestrator) Settings() catalog.Settings { return o.cfg.Settings }

// Claim admits messageID through the in-flight guard. It returns
// domain.ErrDuplicateMessage for a message already handled.
func (o *Orchestrator) Claim(ctx context.Context, messageID string) error {
	if o.guard == nil || messageID == "" {
		return nil
	}
	return o.guard.Claim(ctx, messageID)
}

// Execute runs op with validated args and returns the completed envelope.
// It never returns an error: every failure ends in StateFailed with a typed
// descriptor.
func (o *Orchestrator) Execute(ctx context.Context, op catalog.Operation, args catalog.Args, messageID string) domain.ResponseEnvelope {
	r := o.newRun(op, messageID)
	r.enter(domain.StateValidating)

	if op.Check != nil {
		if err := op.Check(ctx, r, args); err != nil {
			return r.fail(err)
		}
	}
	if op.Kind == catalog.Read {
		r.enter(domain.StateExecuting)
	}

	res, err := op.Execute(ctx, r, args)
	if err != nil {
		return r.fail(err)
	}
	return r.complete(res)
}

// Fail returns a Failed envelope for an error raised before execution, such
// as a parameter error from extraction.
func (o *Orchestrator) Fail(op catalog.Operation, messageID string, err error) domain.ResponseEnvelope {
	r := o.newRun(op, messageID)
	r.enter(domain.StateValidating)
	return r.fail(err)
}

// normalize maps any error raised during an invocation onto the taxonomy.
func normalize(err error) *domain.Error {
	if de, ok := domain.AsError(err); ok {
		return de
	}
	if rev, ok := chain.AsRevert(err); ok {
		return MapRevert(rev)
	}
	if errors.Is(err, domain.ErrNoSigner) {
		de := domain.ConfigurationError("no signing key is loaded")
		de.Hint = "Set EVM_PRIVATE_KEY or chain.encrypted_key_path."
		de.Err = err
		return de
	}
	return domain.TransportError(err)
}
