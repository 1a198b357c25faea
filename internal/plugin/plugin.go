// Package plugin is the entry point the agent framework talks to. It runs a
// chat message through intent resolution, parameter extraction, execution and
// formatting, then hands the reply to the framework's callback.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/executor"
	"github.com/alanyoungcy/predictplugin/internal/extract"
	"github.com/alanyoungcy/predictplugin/internal/format"
	"github.com/alanyoungcy/predictplugin/internal/intent"
)

// Message is one inbound chat message.
type Message struct {
	ID     string         `json:"id"`
	UserID string         `json:"userId,omitempty"`
	RoomID string         `json:"roomId,omitempty"`
	Text   string         `json:"text"`
	Action string         `json:"action,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	// Context is prior conversation state, passed through to the model.
	Context string `json:"context,omitempty"`
}

// Reply is what the callback receives.
type Reply = format.Reply

// Callback delivers a reply to the framework.
type Callback func(ctx context.Context, reply Reply) error

// Observer sees every handled message after its reply has been delivered.
// Observer errors are logged and never change the reply.
type Observer interface {
	Name() string
	Observe(ctx context.Context, h domain.Handled) error
}

// Config holds the plugin's process-wide inputs. The trading fields feed
// parameter defaults.
type Config struct {
	Capabilities     catalog.Capabilities
	MaxImpactBps     int64
	InitialLiquidity *big.Int
	ProtocolFee      int64
	MarketDuration   time.Duration
	// ObserverTimeout bounds the observer pass for one message.
	ObserverTimeout time.Duration
}

// Plugin handles chat messages.
type Plugin struct {
	cat       *catalog.Catalog
	resolver  *intent.Resolver
	extractor *extract.Extractor
	orch      *executor.Orchestrator
	formatter *format.Formatter
	cfg       Config
	observers []Observer
	logger    *slog.Logger
}

// New assembles a Plugin from its pipeline stages.
func New(
	cat *catalog.Catalog,
	resolver *intent.Resolver,
	extractor *extract.Extractor,
	orch *executor.Orchestrator,
	formatter *format.Formatter,
	cfg Config,
	logger *slog.Logger,
) *Plugin {
	if cfg.ObserverTimeout <= 0 {
		cfg.ObserverTimeout = 10 * time.Second
	}
	if cfg.Capabilities == nil {
		cfg.Capabilities = catalog.Capabilities{}
	}
	return &Plugin{
		cat:       cat,
		resolver:  resolver,
		extractor: extractor,
		orch:      orch,
		formatter: formatter,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "plugin")),
	}
}

// AddObserver registers an observer. It must be called before the plugin
// starts handling messages.
func (p *Plugin) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// Catalog returns the operation registry.
func (p *Plugin) Catalog() *catalog.Catalog { return p.cat }

// Capabilities returns the capability set operations are validated against.
func (p *Plugin) Capabilities() catalog.Capabilities { return p.cfg.Capabilities }

// Handle resolves msg to an operation and runs it. It reports false when the
// message was a duplicate or matched no operation; a help reply is still
// delivered in the latter case. The returned error is only ever a callback
// or guard failure.
func (p *Plugin) Handle(ctx context.Context, msg Message, cb Callback) (bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	log := p.logger.With(slog.String("message_id", msg.ID))

	if err := p.orch.Claim(ctx, msg.ID); err != nil {
		if errors.Is(err, domain.ErrDuplicateMessage) {
			log.InfoContext(ctx, "duplicate message ignored")
			return false, nil
		}
		return false, err
	}

	match := p.resolver.Resolve(ctx, msg.Text, msg.Action, p.cfg.Capabilities)
	if !match.OK {
		log.InfoContext(ctx, "no operation matched")
		reply := p.formatter.Help(p.cat.Eligible(p.cfg.Capabilities))
		if err := deliver(ctx, cb, reply); err != nil {
			return false, err
		}
		return false, nil
	}

	log.DebugContext(ctx, "operation resolved",
		slog.String("operation", match.Operation.ID),
		slog.String("via", match.Via),
		slog.String("trigger", match.Trigger),
	)
	return p.invoke(ctx, match.Operation, msg, cb)
}

// Env returns the values field defaults are computed from.
func (p *Plugin) Env() catalog.Env {
	liq := p.cfg.InitialLiquidity
	if liq == nil {
		liq = new(big.Int)
	}
	return catalog.Env{
		Now:             p.orch.Now(),
		Sender:          p.orch.Sender(),
		CollateralToken: p.orch.Settings().CollateralToken,
		MaxImpactBps:    p.cfg.MaxImpactBps,
		Liquidity:       new(big.Int).Set(liq),
		ProtocolFee:     p.cfg.ProtocolFee,
		MarketDuration:  p.cfg.MarketDuration,
	}
}

// invoke runs one resolved operation end to end.
func (p *Plugin) invoke(ctx context.Context, op catalog.Operation, msg Message, cb Callback) (bool, error) {
	log := p.logger.With(
		slog.String("message_id", msg.ID),
		slog.String("operation", op.ID),
	)

	var env domain.ResponseEnvelope
	args, err := p.extractor.Extract(ctx, op, extract.Request{
		Text:    msg.Text,
		Params:  msg.Params,
		Context: msg.Context,
	}, p.Env())
	if err != nil {
		env = p.orch.Fail(op, msg.ID, err)
	} else {
		env = p.orch.Execute(ctx, op, args, msg.ID)
	}

	reply := p.formatter.Render(env)
	log.DebugContext(ctx, "reply rendered",
		slog.Bool("success", env.Success),
		slog.String("state", string(env.Final())),
	)

	cbErr := deliver(ctx, cb, reply)
	p.observe(ctx, domain.Handled{
		MessageID: msg.ID,
		UserID:    msg.UserID,
		RoomID:    msg.RoomID,
		Text:      msg.Text,
		Envelope:  env,
		ReplyText: reply.Text,
	})
	if cbErr != nil {
		return true, cbErr
	}
	return true, nil
}

func (p *Plugin) observe(ctx context.Context, h domain.Handled) {
	if len(p.observers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.ObserverTimeout)
	defer cancel()

	for _, o := range p.observers {
		if err := o.Observe(ctx, h); err != nil {
			p.logger.WarnContext(ctx, "observer failed",
				slog.String("observer", o.Name()),
				slog.String("message_id", h.MessageID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func deliver(ctx context.Context, cb Callback, reply Reply) error {
	if cb == nil {
		return nil
	}
	if err := cb(ctx, reply); err != nil {
		return fmt.Errorf("plugin: callback: %w", err)
	}
	return nil
}
