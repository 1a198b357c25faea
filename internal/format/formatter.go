// Package format renders response envelopes as chat replies. Rendering is
// pure: the same envelope always yields the same reply.
package format

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Reply is what the host receives through its callback.
type Reply struct {
	Text    string         `json:"text"`
	Action  string         `json:"action,omitempty"`
	Content map[string]any `json:"content,omitempty"`
}

// Formatter renders envelopes.
type Formatter struct{}

// New returns a Formatter.
func New() *Formatter { return &Formatter{} }

// Render turns an envelope into a reply.
func (f *Formatter) Render(env domain.ResponseEnvelope) Reply {
	if !env.Success {
		return Reply{
			Text:    failureText(env),
			Action:  env.Operation,
			Content: failureContent(env),
		}
	}

	text := env.Text
	if text == "" {
		text = successText(env.Operation, env.Data)
	}
	content := make(map[string]any, len(env.Data)+3)
	for k, v := range env.Data {
		content[k] = v
	}
	content["success"] = true
	content["operation"] = env.Operation
	if h := env.TxHash(); h != "" {
		content["txHash"] = h
	}
	return Reply{Text: text, Action: env.Operation, Content: content}
}

// Help is the reply for a message no operation matched.
func (f *Formatter) Help(eligible []catalog.Operation) Reply {
	var b strings.Builder
	ids := make([]string, 0, len(eligible))
	if len(eligible) == 0 {
		b.WriteString("No prediction-market operations are available right now. Check the plugin configuration.")
	} else {
		b.WriteString("I can help with prediction markets. Try one of these:\n")
		for _, op := range eligible {
			ids = append(ids, op.ID)
			fmt.Fprintf(&b, "- %s", op.Description)
			if len(op.Examples) > 0 {
				fmt.Fprintf(&b, " (e.g. %q)", op.Examples[0])
			}
			b.WriteString("\n")
		}
	}
	return Reply{
		Text:    strings.TrimRight(b.String(), "\n"),
		Content: map[string]any{"success": false, "operations": ids},
	}
}

var verbs = map[string]string{
	"CREATE_MARKET":           "create the market",
	"BUY_POSITION":            "buy the position",
	"SELL_POSITION":           "sell the position",
	"ADD_LIQUIDITY":           "add liquidity",
	"RESOLVE_MARKET":          "resolve the market",
	"CLAIM_WINNINGS":          "claim winnings",
	"GET_MARKET_INFO":         "load the market",
	"GET_PRICE":               "load prices",
	"LIST_MARKETS":            "list markets",
	"GET_MARKET_COUNT":        "count markets",
	"GET_MARKET_BY_ID":        "look up the market",
	"GET_OWNER":               "read the factory owner",
	"IS_PAUSED":               "check whether creation is paused",
	"GET_MIN_MARKET_DURATION": "read the minimum market duration",
	"CHECK_MARKET_CREATOR":    "check market creator status",
}

func verb(op string) string {
	if v, ok := verbs[op]; ok {
		return v
	}
	return "complete the request"
}

func failureText(env domain.ResponseEnvelope) string {
	e := env.Error
	if e == nil {
		return fmt.Sprintf("Could not %s.", verb(env.Operation))
	}

	var b strings.Builder
	switch e.Kind {
	case domain.KindMissingParameter:
		fmt.Fprintf(&b, "To %s I need the %s.", verb(env.Operation), e.Field)
		if e.Expected != "" {
			fmt.Fprintf(&b, " Please provide it as %s.", e.Expected)
		}
	case domain.KindInvalidParameter:
		fmt.Fprintf(&b, "Please clarify the %s: expected %s.", e.Field, e.Expected)
	default:
		fmt.Fprintf(&b, "Could not %s: %s", verb(env.Operation), e.Message)
		if h := env.TxHash(); h != "" {
			fmt.Fprintf(&b, "\nTransaction: %s", h)
		}
		if e.Hint != "" {
			fmt.Fprintf(&b, "\nNext step: %s", e.Hint)
		}
	}
	return b.String()
}

func failureContent(env domain.ResponseEnvelope) map[string]any {
	content := map[string]any{
		"success":   false,
		"operation": env.Operation,
	}
	if h := env.TxHash(); h != "" {
		content["txHash"] = h
	}
	if e := env.Error; e != nil {
		errMap := map[string]any{
			"kind":    string(e.Kind),
			"message": e.Message,
		}
		if e.Reason != "" {
			errMap["reason"] = string(e.Reason)
		}
		if e.Field != "" {
			errMap["field"] = e.Field
		}
		if e.Expected != "" {
			errMap["expected"] = e.Expected
		}
		if e.Signature != "" {
			errMap["signature"] = e.Signature
		}
		if e.Hint != "" {
			errMap["hint"] = e.Hint
		}
		if len(e.Details) > 0 {
			errMap["details"] = e.Details
		}
		content["error"] = errMap
	}
	return content
}
