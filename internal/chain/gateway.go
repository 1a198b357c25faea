// Package chain is the narrow gateway between chat operations and the EVM
// network: view calls, signed transaction submission, receipt waits and log
// filtering, plus ABI tables, revert decoding and event parsing.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call names one contract method invocation.
type Call struct {
	Contract common.Address
	ABI      *abi.ABI
	Method   string
	Args     []any
}

// NewCall builds a Call.
func NewCall(contract common.Address, a *abi.ABI, method string, args ...any) Call {
	return Call{Contract: contract, ABI: a, Method: method, Args: args}
}

func (c Call) String() string {
	return fmt.Sprintf("%s@%s", c.Method, c.Contract.Hex())
}

// Gateway is everything the orchestrator needs from the chain.
type Gateway interface {
	// Read performs an eth_call and returns the unpacked outputs.
	Read(ctx context.Context, call Call) ([]any, error)
	// Write estimates, signs and broadcasts a transaction. A revert detected
	// during estimation is returned as *RevertError and nothing is sent.
	Write(ctx context.Context, call Call) (common.Hash, error)
	// WaitForReceipt blocks until the transaction is mined or ctx ends.
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	// Logs filters historical logs.
	Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	// Sender is the signing account, or the zero address without a key.
	Sender() common.Address
}
