// Package catalog defines the registry of chat-invocable chain operations:
// their parameter schemas, trigger phrases, capability requirements and
// executors. A Catalog is built once at startup and never mutated.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Kind separates view-only operations from transaction-submitting ones.
type Kind int

const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	if k == Write {
		return "write"
	}
	return "read"
}

// Capability is a precondition the process must satisfy before an operation
// is offered.
type Capability string

const (
	CapChain      Capability = "chain"
	CapSigner     Capability = "signer"
	CapCollateral Capability = "collateral"
)

// Capabilities is the set of capabilities currently available.
type Capabilities map[Capability]bool

// Has reports whether every required capability is present.
func (c Capabilities) Has(required ...Capability) bool {
	for _, r := range required {
		if !c[r] {
			return false
		}
	}
	return true
}

// CheckFunc runs chain-read preconditions before any transaction.
type CheckFunc func(ctx context.Context, r Runner, args Args) error

// ExecuteFunc performs the operation.
type ExecuteFunc func(ctx context.Context, r Runner, args Args) (Result, error)

// Operation is one catalog entry.
type Operation struct {
	ID          string
	Description string
	Triggers    []string
	Examples    []string
	Kind        Kind
	Requires    []Capability
	Schema      []Field
	Check       CheckFunc
	Execute     ExecuteFunc
}

// Validate is the capability probe evaluated once per inbound message.
func (o Operation) Validate(caps Capabilities) bool {
	return caps.Has(o.Requires...)
}

// Field returns the schema field with the given name.
func (o Operation) Field(name string) (Field, bool) {
	for _, f := range o.Schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Result is what an executor hands back to the orchestrator.
type Result struct {
	Data map[string]any
}

// Catalog is the immutable operation registry.
type Catalog struct {
	ops  []Operation
	byID map[string]int
}

// New builds a catalog. Ids must be unique, case-insensitively, and every
// operation needs an executor.
func New(ops ...Operation) (*Catalog, error) {
	c := &Catalog{
		ops:  make([]Operation, 0, len(ops)),
		byID: make(map[string]int, len(ops)),
	}
	for _, op := range ops {
		key := strings.ToUpper(op.ID)
		if key == "" {
			return nil, fmt.Errorf("catalog: operation without id")
		}
		if _, dup := c.byID[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate operation %s", op.ID)
		}
		if op.Execute == nil {
			return nil, fmt.Errorf("catalog: operation %s has no executor", op.ID)
		}
		seen := make(map[string]bool, len(op.Schema))
		for _, f := range op.Schema {
			if seen[f.Name] {
				return nil, fmt.Errorf("catalog: operation %s: duplicate field %s", op.ID, f.Name)
			}
			seen[f.Name] = true
		}
		c.byID[key] = len(c.ops)
		c.ops = append(c.ops, op)
	}
	return c, nil
}

// List returns the operations in registration order.
func (c *Catalog) List() []Operation {
	return append([]Operation(nil), c.ops...)
}

// Lookup finds an operation by id, ignoring case.
func (c *Catalog) Lookup(id string) (Operation, bool) {
	i, ok := c.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Operation{}, false
	}
	return c.ops[i], true
}

// Eligible returns the operations whose capabilities are satisfied, in order.
func (c *Catalog) Eligible(caps Capabilities) []Operation {
	var out []Operation
	for _, op := range c.ops {
		if op.Validate(caps) {
			out = append(out, op)
		}
	}
	return out
}

// Index returns the registration position of id, or -1.
func (c *Catalog) Index(id string) int {
	i, ok := c.byID[strings.ToUpper(id)]
	if !ok {
		return -1
	}
	return i
}
