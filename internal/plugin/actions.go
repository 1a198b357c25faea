package plugin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Action is the framework-facing view of one catalog operation.
type Action struct {
	Name        string
	Description string
	Similes     []string
	Examples    []string
	Validate    func(ctx context.Context) bool
	Handler     func(ctx context.Context, msg Message, cb Callback) (bool, error)
}

// Actions returns one Action per catalog operation, in catalog order.
func (p *Plugin) Actions() []Action {
	ops := p.cat.List()
	out := make([]Action, 0, len(ops))
	for _, op := range ops {
		out = append(out, p.action(op))
	}
	return out
}

func (p *Plugin) action(op catalog.Operation) Action {
	return Action{
		Name:        op.ID,
		Description: op.Description,
		Similes:     similes(op),
		Examples:    op.Examples,
		Validate: func(context.Context) bool {
			return op.Validate(p.cfg.Capabilities)
		},
		Handler: func(ctx context.Context, msg Message, cb Callback) (bool, error) {
			if !op.Validate(p.cfg.Capabilities) {
				return false, nil
			}
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			if err := p.orch.Claim(ctx, msg.ID); err != nil {
				if errors.Is(err, domain.ErrDuplicateMessage) {
					return false, nil
				}
				return false, err
			}
			return p.invoke(ctx, op, msg, cb)
		},
	}
}

// similes are the trigger phrases as upper-snake names.
func similes(op catalog.Operation) []string {
	out := make([]string, 0, len(op.Triggers))
	for _, t := range op.Triggers {
		s := strings.ToUpper(strings.Join(strings.Fields(t), "_"))
		if s != op.ID {
			out = append(out, s)
		}
	}
	return out
}
