package catalog

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Args holds coerced parameter values keyed by field name. Values always
// have the canonical type documented on Field.Coerce.
type Args map[string]any

// Bind validates raw values against the operation schema, in schema order.
// Present values are coerced, absent optional fields take their default, and
// an absent required field is a MissingParameter error.
func (o Operation) Bind(raw map[string]any, env Env) (Args, error) {
	out := make(Args, len(o.Schema))
	for _, f := range o.Schema {
		v, ok := raw[f.Name]
		if ok && v != nil {
			c, err := f.Coerce(v, env.Now)
			if err != nil {
				return nil, err
			}
			out[f.Name] = c
			continue
		}
		if f.Required {
			de := domain.MissingParameter(f.Name)
			de.Expected = f.ExpectedFormat()
			return nil, de
		}
		if f.Default != nil {
			d := f.Default(env)
			if d == nil {
				continue
			}
			c, err := f.Coerce(d, env.Now)
			if err != nil {
				return nil, err
			}
			out[f.Name] = c
		}
	}
	return out, nil
}

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

// BigInt returns a Decimal field in wei, or nil when absent.
func (a Args) BigInt(name string) *big.Int {
	n, _ := a[name].(*big.Int)
	return n
}

// BigIntOrZero is BigInt with absent values read as zero.
func (a Args) BigIntOrZero(name string) *big.Int {
	if n := a.BigInt(name); n != nil {
		return n
	}
	return new(big.Int)
}

func (a Args) Address(name string) common.Address {
	addr, _ := a[name].(common.Address)
	return addr
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Args) Outcome(name string) uint64 {
	o, _ := a[name].(uint64)
	return o
}

func (a Args) Time(name string) time.Time {
	t, _ := a[name].(time.Time)
	return t
}

func (a Args) Bytes32(name string) [32]byte {
	b, _ := a[name].([32]byte)
	return b
}

func (a Args) Strings(name string) []string {
	l, _ := a[name].([]string)
	return l
}
