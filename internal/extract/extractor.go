// Package extract turns a chat message into validated operation arguments.
// Each field is taken from an explicit parameter, a pattern match on the
// text, a structured model call, or its default, in that order.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/llm"
)

// Generator produces structured values from free text.
type Generator interface {
	GenerateStructured(ctx context.Context, schema llm.Schema, prompt string) (map[string]any, error)
}

// Request is one extraction.
type Request struct {
	Text string
	// Params are explicit values supplied by the caller, keyed by field name.
	Params map[string]any
	// Context is opaque conversation state passed to the generator.
	Context string
}

// Extractor fills operation arguments. A nil generator disables the model
// step.
type Extractor struct {
	gen    Generator
	logger *slog.Logger
}

// New creates an Extractor.
func New(gen Generator, logger *slog.Logger) *Extractor {
	return &Extractor{gen: gen, logger: logger.With(slog.String("component", "extractor"))}
}

// Extract gathers raw values for op and binds them against its schema.
// Errors are MissingParameter or InvalidParameter.
func (e *Extractor) Extract(ctx context.Context, op catalog.Operation, req Request, env catalog.Env) (catalog.Args, error) {
	raw := make(map[string]any, len(op.Schema))
	unquoted := StripQuoted(req.Text)

	for _, f := range op.Schema {
		if v, ok := explicit(req.Params, f.Name); ok {
			raw[f.Name] = v
			continue
		}
		if f.Source == catalog.SourceGenerated {
			continue
		}
		if v, ok := matchField(f, req.Text, unquoted); ok {
			raw[f.Name] = v
		}
	}

	if e.gen != nil && e.needsGeneration(op, raw) {
		e.generate(ctx, op, req, raw)
	}
	return op.Bind(raw, env)
}

func explicit(params map[string]any, name string) (any, bool) {
	if v, ok := params[name]; ok && v != nil {
		return v, true
	}
	for k, v := range params {
		if strings.EqualFold(k, name) && v != nil {
			return v, true
		}
	}
	return nil, false
}

// needsGeneration reports whether a required field or a generated-only
// field is still absent. Optional fields alone never cost a model call.
func (e *Extractor) needsGeneration(op catalog.Operation, raw map[string]any) bool {
	for _, f := range op.Schema {
		if _, ok := raw[f.Name]; ok || f.Source == catalog.SourcePattern {
			continue
		}
		if f.Required || f.Source == catalog.SourceGenerated {
			return true
		}
	}
	return false
}

// generate makes the single model call for this message and fills fields
// that are still absent. Model errors leave the fields absent.
func (e *Extractor) generate(ctx context.Context, op catalog.Operation, req Request, raw map[string]any) {
	var missing []catalog.Field
	for _, f := range op.Schema {
		if _, ok := raw[f.Name]; !ok && f.Source != catalog.SourcePattern {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return
	}
	sub := op
	sub.Schema = missing
	schema := llm.Schema{
		Name:        strings.ToLower(op.ID),
		Description: op.Description,
		Parameters:  sub.JSONSchema(),
	}

	out, err := e.gen.GenerateStructured(ctx, schema, prompt(op, req))
	if err != nil {
		e.logger.Warn("structured extraction failed",
			slog.String("operation", op.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, f := range missing {
		if v, ok := out[f.Name]; ok && v != nil && v != "" {
			raw[f.Name] = v
		}
	}
}

func prompt(op catalog.Operation, req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Operation: %s (%s)\n", op.ID, op.Description)
	if req.Context != "" {
		fmt.Fprintf(&b, "Conversation context:\n%s\n", req.Context)
	}
	fmt.Fprintf(&b, "Message:\n%s\n", req.Text)
	return b.String()
}

// matchField runs the pattern for one field. Question text is read from the
// raw message; every other field from the message with quotes removed.
func matchField(f catalog.Field, text, unquoted string) (any, bool) {
	switch f.Name {
	case "question":
		return found(matchQuestion(text))
	case "collateralToken":
		return found(submatch(collateral, unquoted))
	case "initialLiquidity":
		return found(submatch(liquidity, unquoted))
	case "protocolFee":
		return found(submatch(feePattern, unquoted))
	case "outcomes":
		return found(submatch(outcomesList, unquoted))
	case "limit":
		return found(submatch(limitPattern, unquoted))
	case "maxPriceImpactBps":
		return found(matchBps(unquoted))
	case "minTokensOut", "minCollateralOut":
		return found(submatch(minOut, unquoted))
	}

	switch f.Type {
	case catalog.Address:
		// A 64-digit token is a market id or hash, never an address.
		return found(firstHex(withoutCollateral(unquoted), 64))
	case catalog.Bytes32:
		return found(firstHex(unquoted, 40))
	case catalog.Outcome:
		return found(matchOutcome(unquoted))
	case catalog.Decimal:
		return found(matchAmount(unquoted))
	case catalog.Timestamp:
		return found(matchDate(unquoted))
	}
	return nil, false
}

// withoutCollateral hides an explicitly labelled collateral address from
// market and account fields.
func withoutCollateral(text string) string {
	return collateral.ReplaceAllString(text, " ")
}

func found(v string, ok bool) (any, bool) {
	if !ok || v == "" {
		return nil, false
	}
	return v, true
}
