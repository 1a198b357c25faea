package chain

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	errorStringSelector = []byte{0x08, 0xc3, 0x79, 0xa0} // Error(string)
	panicSelector       = []byte{0x4e, 0x48, 0x7b, 0x71} // Panic(uint256)
)

// RevertError is a decoded contract revert.
type RevertError struct {
	// Name is the custom error name ("Market_TradingEnded"), "Error" for a
	// require message, "Panic", or empty when the selector is unknown.
	Name string
	// Selector is the 4-byte selector as 0x-prefixed hex.
	Selector string
	// Reason is the require message when Name is "Error".
	Reason string
	Args   []any
	Data   []byte
}

func (e *RevertError) Error() string {
	switch {
	case e.Reason != "":
		return "execution reverted: " + e.Reason
	case e.Name != "":
		return "execution reverted: " + e.Name
	case e.Selector != "":
		return "execution reverted: " + e.Selector
	default:
		return "execution reverted"
	}
}

// Signature is the best identifier for the revert: its name, else its selector.
func (e *RevertError) Signature() string {
	if e.Name != "" && e.Name != "Error" {
		return e.Name
	}
	if e.Selector != "" {
		return e.Selector
	}
	return e.Reason
}

// AsRevert extracts a *RevertError from err.
func AsRevert(err error) (*RevertError, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev, true
	}
	return nil, false
}

// knownABIs are searched in order for custom error selectors.
var knownABIs = []*abi.ABI{MarketABI, FactoryABI, ERC20ABI}

// DecodeRevert inspects an RPC error for revert data. It reports false when
// err is not a revert at all.
func DecodeRevert(err error) (*RevertError, bool) {
	if err == nil {
		return nil, false
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if raw, ok := revertBytes(de.ErrorData()); ok {
			return DecodeRevertData(raw), true
		}
	}
	if msg := err.Error(); strings.Contains(msg, "execution reverted") {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[strings.Index(msg, "execution reverted"):], "execution reverted"))
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		return &RevertError{Reason: reason}, true
	}
	return nil, false
}

func revertBytes(data any) ([]byte, bool) {
	switch v := data.(type) {
	case string:
		raw, err := hexutil.Decode(v)
		if err != nil {
			return nil, false
		}
		return raw, true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

// DecodeRevertData decodes raw revert bytes against the known ABIs.
func DecodeRevertData(data []byte) *RevertError {
	rev := &RevertError{Data: data}
	if len(data) < 4 {
		return rev
	}
	sel := data[:4]
	rev.Selector = hexutil.Encode(sel)

	switch {
	case bytes.Equal(sel, errorStringSelector):
		rev.Name = "Error"
		if reason, err := abi.UnpackRevert(data); err == nil {
			rev.Reason = reason
		}
		return rev
	case bytes.Equal(sel, panicSelector):
		rev.Name = "Panic"
		return rev
	}

	var id [4]byte
	copy(id[:], sel)
	for _, a := range knownABIs {
		abiErr, err := a.ErrorByID(id)
		if err != nil {
			continue
		}
		rev.Name = abiErr.Name
		if len(abiErr.Inputs) > 0 {
			if args, err := abiErr.Inputs.Unpack(data[4:]); err == nil {
				rev.Args = args
			}
		}
		return rev
	}
	return rev
}

// EncodeRevert builds revert data for a named custom error. It is the inverse
// of DecodeRevertData and is used by fakes and tests.
func EncodeRevert(name string, args ...any) ([]byte, error) {
	for _, a := range knownABIs {
		abiErr, ok := a.Errors[name]
		if !ok {
			continue
		}
		packed, err := abiErr.Inputs.Pack(args...)
		if err != nil {
			return nil, fmt.Errorf("chain: pack error %s: %w", name, err)
		}
		return append(append([]byte{}, abiErr.ID[:4]...), packed...), nil
	}
	return nil, fmt.Errorf("chain: unknown error %s", name)
}
