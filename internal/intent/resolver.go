// Package intent maps a chat message to one catalog operation.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/extract"
)

// How a match was made.
const (
	ViaExplicit   = "explicit"
	ViaExact      = "exact"
	ViaLoose      = "loose"
	ViaClassifier = "classifier"
)

// Classifier answers a free-text prompt. It backs the fallback when no
// trigger phrase matches.
type Classifier interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Match is the resolver's answer. OK is false when nothing matched.
type Match struct {
	Operation catalog.Operation
	OK        bool
	Via       string
	Trigger   string
}

// Resolver selects operations by explicit id, trigger phrase, or classifier.
type Resolver struct {
	cat    *catalog.Catalog
	cls    Classifier
	logger *slog.Logger
}

// NewResolver creates a Resolver. cls may be nil.
func NewResolver(cat *catalog.Catalog, cls Classifier, logger *slog.Logger) *Resolver {
	return &Resolver{cat: cat, cls: cls, logger: logger.With(slog.String("component", "resolver"))}
}

type candidate struct {
	op      catalog.Operation
	exact   bool
	trigger string
	index   int
}

// better orders candidates: exact over loose, then the longer trigger,
// then catalog order.
func (c candidate) better(o candidate) bool {
	if c.exact != o.exact {
		return c.exact
	}
	if len(c.trigger) != len(o.trigger) {
		return len(c.trigger) > len(o.trigger)
	}
	return c.index < o.index
}

// Resolve never fails; an unmatched message yields Match{}.
func (r *Resolver) Resolve(ctx context.Context, text, explicitID string, caps catalog.Capabilities) Match {
	if explicitID != "" {
		if op, ok := r.cat.Lookup(explicitID); ok && op.Validate(caps) {
			return Match{Operation: op, OK: true, Via: ViaExplicit}
		}
	}

	msg := normalize(extract.StripQuoted(text))
	words := strings.Fields(msg)
	padded := " " + msg + " "

	var best *candidate
	for i, op := range r.cat.List() {
		if !op.Validate(caps) {
			continue
		}
		for _, trig := range op.Triggers {
			t := normalize(trig)
			if t == "" {
				continue
			}
			c := candidate{op: op, trigger: t, index: i}
			switch {
			case strings.Contains(padded, " "+t+" "):
				c.exact = true
			case inOrder(strings.Fields(t), words):
			default:
				continue
			}
			if best == nil || c.better(*best) {
				cc := c
				best = &cc
			}
		}
	}
	if best != nil {
		via := ViaLoose
		if best.exact {
			via = ViaExact
		}
		return Match{Operation: best.op, OK: true, Via: via, Trigger: best.trigger}
	}
	return r.classify(ctx, text, caps)
}

func (r *Resolver) classify(ctx context.Context, text string, caps catalog.Capabilities) Match {
	if r.cls == nil || strings.TrimSpace(text) == "" {
		return Match{}
	}
	eligible := r.cat.Eligible(caps)
	if len(eligible) == 0 {
		return Match{}
	}

	var b strings.Builder
	b.WriteString("Pick the single operation that best fits the user's message.\n")
	b.WriteString("Answer with the operation id only, or NONE if nothing fits.\n\nOperations:\n")
	for _, op := range eligible {
		fmt.Fprintf(&b, "- %s: %s\n", op.ID, op.Description)
	}
	fmt.Fprintf(&b, "\nMessage: %s\n", text)

	answer, err := r.cls.GenerateText(ctx, b.String())
	if err != nil {
		r.logger.Warn("intent classification failed", slog.String("error", err.Error()))
		return Match{}
	}
	id := strings.ToUpper(strings.TrimFunc(strings.TrimSpace(answer), func(c rune) bool {
		return !unicode.IsLetter(c) && c != '_'
	}))
	if id == "" || id == "NONE" {
		return Match{}
	}
	op, ok := r.cat.Lookup(id)
	if !ok || !op.Validate(caps) {
		r.logger.Debug("classifier returned unknown operation", slog.String("answer", answer))
		return Match{}
	}
	return Match{Operation: op, OK: true, Via: ViaClassifier}
}

// normalize lower-cases s, turns punctuation into spaces and collapses runs
// of whitespace.
func normalize(s string) string {
	s = strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' {
			return unicode.ToLower(c)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// inOrder reports whether want appears as a subsequence of words.
func inOrder(want, words []string) bool {
	i := 0
	for _, w := range words {
		if i < len(want) && w == want[i] {
			i++
		}
	}
	return i == len(want)
}
