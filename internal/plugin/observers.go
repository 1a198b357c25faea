package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Notification event names, one per write operation plus failures.
const (
	EventMarketCreated   = "market_created"
	EventPositionBought  = "position_bought"
	EventPositionSold    = "position_sold"
	EventLiquidityAdded  = "liquidity_added"
	EventMarketResolved  = "market_resolved"
	EventWinningsClaimed = "winnings_claimed"
	EventExecutionFailed = "execution_failed"
)

var writeEvents = map[string]string{
	"CREATE_MARKET":  EventMarketCreated,
	"BUY_POSITION":   EventPositionBought,
	"SELL_POSITION":  EventPositionSold,
	"ADD_LIQUIDITY":  EventLiquidityAdded,
	"RESOLVE_MARKET": EventMarketResolved,
	"CLAIM_WINNINGS": EventWinningsClaimed,
}

// EventFor returns the notification event for an envelope, or "" when the
// envelope is a read.
func EventFor(env domain.ResponseEnvelope) string {
	ev, ok := writeEvents[env.Operation]
	if !ok {
		return ""
	}
	if !env.Success {
		return EventExecutionFailed
	}
	return ev
}

// LedgerObserver records each envelope in the execution ledger and the audit
// log.
type LedgerObserver struct {
	execs domain.ExecutionStore
	audit domain.AuditStore
}

func NewLedgerObserver(execs domain.ExecutionStore, audit domain.AuditStore) *LedgerObserver {
	return &LedgerObserver{execs: execs, audit: audit}
}

func (l *LedgerObserver) Name() string { return "ledger" }

func (l *LedgerObserver) Observe(ctx context.Context, h domain.Handled) error {
	env := h.Envelope
	states := make([]string, len(env.States))
	for i, s := range env.States {
		states[i] = string(s)
	}
	rec := domain.ExecutionRecord{
		MessageID: h.MessageID,
		UserID:    h.UserID,
		Operation: env.Operation,
		Success:   env.Success,
		ErrorKind: string(env.ErrorKind()),
		TxHashes:  env.TxHashes,
		States:    states,
		Data:      env.Data,
		Error:     env.Error,
		CreatedAt: env.EndedAt,
	}
	if err := l.execs.Record(ctx, rec); err != nil {
		return fmt.Errorf("ledger: record %s: %w", h.MessageID, err)
	}
	if l.audit == nil || EventFor(env) == "" {
		return nil
	}
	detail := map[string]any{
		"message_id": h.MessageID,
		"operation":  env.Operation,
		"success":    env.Success,
	}
	if hash := env.TxHash(); hash != "" {
		detail["tx_hash"] = hash
	}
	if env.Error != nil {
		detail["error_kind"] = string(env.Error.Kind)
	}
	if err := l.audit.Log(ctx, EventFor(env), detail); err != nil {
		return fmt.Errorf("ledger: audit %s: %w", h.MessageID, err)
	}
	return nil
}

// ArchiveObserver copies envelopes of write operations to object storage.
type ArchiveObserver struct {
	arch domain.Archiver
}

func NewArchiveObserver(arch domain.Archiver) *ArchiveObserver {
	return &ArchiveObserver{arch: arch}
}

func (a *ArchiveObserver) Name() string { return "archive" }

func (a *ArchiveObserver) Observe(ctx context.Context, h domain.Handled) error {
	if EventFor(h.Envelope) == "" {
		return nil
	}
	env := h.Envelope
	env.MessageID = h.MessageID
	_, err := a.arch.ArchiveEnvelope(ctx, env)
	return err
}

// Notifier sends a titled message for an event.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// NotifyObserver forwards write outcomes to a Notifier.
type NotifyObserver struct {
	n Notifier
}

func NewNotifyObserver(n Notifier) *NotifyObserver {
	return &NotifyObserver{n: n}
}

func (o *NotifyObserver) Name() string { return "notify" }

func (o *NotifyObserver) Observe(ctx context.Context, h domain.Handled) error {
	ev := EventFor(h.Envelope)
	if ev == "" {
		return nil
	}
	title := h.Envelope.Operation
	if ev == EventExecutionFailed {
		title += " failed"
	}
	return o.n.Notify(ctx, ev, title, h.ReplyText)
}

// BusObserver publishes every reply on the signal bus and appends it to the
// execution stream.
type BusObserver struct {
	bus domain.SignalBus
}

func NewBusObserver(bus domain.SignalBus) *BusObserver {
	return &BusObserver{bus: bus}
}

func (b *BusObserver) Name() string { return "bus" }

func (b *BusObserver) Observe(ctx context.Context, h domain.Handled) error {
	ev := domain.ReplyEvent{
		MessageID: h.MessageID,
		UserID:    h.UserID,
		RoomID:    h.RoomID,
		Operation: h.Envelope.Operation,
		Success:   h.Envelope.Success,
		Text:      h.ReplyText,
		TxHash:    h.Envelope.TxHash(),
		Data:      h.Envelope.Data,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: marshal reply: %w", err)
	}
	if err := b.bus.Publish(ctx, domain.ChannelReply, payload); err != nil {
		return err
	}
	return b.bus.StreamAppend(ctx, domain.StreamExecutions, payload)
}
