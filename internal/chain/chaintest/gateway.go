// Package chaintest provides an in-memory chain.Gateway for tests.
package chaintest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/predictplugin/internal/chain"
)

// ReadFunc answers a view call.
type ReadFunc func(call chain.Call) ([]any, error)

// WriteFunc handles a submitted transaction and returns the logs its receipt
// should carry.
type WriteFunc func(call chain.Call) ([]types.Log, error)

// Gateway records every call and serves answers from registered handlers.
type Gateway struct {
	From common.Address

	// HoldReceipts makes WaitForReceipt block until its context ends.
	HoldReceipts bool
	// FailReceipts marks every mined receipt as reverted.
	FailReceipts bool

	mu       sync.Mutex
	reads    map[string]ReadFunc
	writes   map[string]WriteFunc
	logsFn   func(q ethereum.FilterQuery) ([]types.Log, error)
	receipts map[common.Hash]*types.Receipt
	readLog  []chain.Call
	writeLog []chain.Call
	seq      uint64
}

var _ chain.Gateway = (*Gateway)(nil)

// New returns an empty fake with the given sender.
func New(from common.Address) *Gateway {
	return &Gateway{
		From:     from,
		reads:    make(map[string]ReadFunc),
		writes:   make(map[string]WriteFunc),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// OnRead registers a handler for a view method.
func (g *Gateway) OnRead(method string, fn ReadFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads[method] = fn
}

// Returns registers fixed outputs for a view method.
func (g *Gateway) Returns(method string, values ...any) {
	g.OnRead(method, func(chain.Call) ([]any, error) { return values, nil })
}

// OnWrite registers a handler for a state-changing method.
func (g *Gateway) OnWrite(method string, fn WriteFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes[method] = fn
}

// OnLogs registers the log filter handler.
func (g *Gateway) OnLogs(fn func(q ethereum.FilterQuery) ([]types.Log, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logsFn = fn
}

func (g *Gateway) Sender() common.Address { return g.From }

func (g *Gateway) Read(_ context.Context, call chain.Call) ([]any, error) {
	g.mu.Lock()
	g.readLog = append(g.readLog, call)
	fn, ok := g.reads[call.Method]
	g.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("chaintest: no read handler for %s", call.Method)
	}
	return fn(call)
}

func (g *Gateway) Write(_ context.Context, call chain.Call) (common.Hash, error) {
	g.mu.Lock()
	g.writeLog = append(g.writeLog, call)
	fn := g.writes[call.Method]
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	var logs []types.Log
	if fn != nil {
		var err error
		logs, err = fn(call)
		if err != nil {
			return common.Hash{}, err
		}
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	hash := crypto.Keccak256Hash([]byte(call.Method), buf[:])

	status := types.ReceiptStatusSuccessful
	if g.FailReceipts {
		status = types.ReceiptStatusFailed
	}
	receipt := &types.Receipt{Status: status, TxHash: hash}
	for i := range logs {
		lg := logs[i]
		lg.TxHash = hash
		receipt.Logs = append(receipt.Logs, &lg)
	}

	g.mu.Lock()
	g.receipts[hash] = receipt
	g.mu.Unlock()
	return hash, nil
}

func (g *Gateway) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if g.HoldReceipts {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (g *Gateway) Logs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	g.mu.Lock()
	fn := g.logsFn
	g.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(q)
}

// Writes returns the submitted calls in order.
func (g *Gateway) Writes() []chain.Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]chain.Call(nil), g.writeLog...)
}

// WritesOf returns the submitted calls for one method.
func (g *Gateway) WritesOf(method string) []chain.Call {
	var out []chain.Call
	for _, c := range g.Writes() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reads returns the view calls in order.
func (g *Gateway) Reads() []chain.Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]chain.Call(nil), g.readLog...)
}

// Touched reports whether any call at all reached the gateway.
func (g *Gateway) Touched() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.readLog) > 0 || len(g.writeLog) > 0
}
