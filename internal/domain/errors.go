package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrDuplicateMessage = errors.New("message already being handled")
	ErrNoSigner         = errors.New("no signing key loaded")
)

// ErrorKind classifies every failure an invocation can end in.
type ErrorKind string

const (
	KindConfiguration         ErrorKind = "ConfigurationError"
	KindMissingParameter      ErrorKind = "MissingParameter"
	KindInvalidParameter      ErrorKind = "InvalidParameter"
	KindPreconditionFailed    ErrorKind = "PreconditionFailed"
	KindPriceImpactTooHigh    ErrorKind = "PriceImpactTooHigh"
	KindInsufficientBalance   ErrorKind = "InsufficientBalance"
	KindInsufficientAllowance ErrorKind = "InsufficientAllowance"
	KindContractRevert        ErrorKind = "ContractRevert"
	KindConfirmationTimeout   ErrorKind = "ConfirmationTimeout"
	KindTransport             ErrorKind = "TransportError"
)

// Reason narrows a PreconditionFailed error.
type Reason string

const (
	ReasonTradingEnded    Reason = "TradingEnded"
	ReasonUnauthorized    Reason = "Unauthorized"
	ReasonMarketNotFound  Reason = "MarketNotFound"
	ReasonInvalidOutcome  Reason = "InvalidOutcome"
	ReasonCreationPaused  Reason = "CreationPaused"
	ReasonAlreadyResolved Reason = "AlreadyResolved"
	ReasonTradingNotEnded Reason = "TradingNotEnded"
	ReasonNotResolved     Reason = "NotResolved"
	ReasonInvalidEndTime  Reason = "InvalidEndTime"
)

// Error is the typed failure carried from any pipeline stage to the reply.
type Error struct {
	Kind      ErrorKind
	Reason    Reason
	Field     string
	Expected  string
	Signature string
	Message   string
	Hint      string
	Details   map[string]any
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString("(" + string(e.Reason) + ")")
	}
	if e.Field != "" {
		b.WriteString(" " + e.Field)
	}
	if e.Signature != "" {
		b.WriteString(" " + e.Signature)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and, when set, reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// WithDetail returns e after setting a detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func ConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func MissingParameter(field string) *Error {
	return &Error{
		Kind:    KindMissingParameter,
		Field:   field,
		Message: fmt.Sprintf("missing required parameter %q", field),
	}
}

func InvalidParameter(field, expected string) *Error {
	return &Error{
		Kind:     KindInvalidParameter,
		Field:    field,
		Expected: expected,
		Message:  fmt.Sprintf("invalid %s: expected %s", field, expected),
	}
}

func PreconditionFailed(reason Reason, message string) *Error {
	return &Error{Kind: KindPreconditionFailed, Reason: reason, Message: message}
}

func ContractRevert(signature, message string) *Error {
	return &Error{Kind: KindContractRevert, Signature: signature, Message: message}
}

func TransportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: "chain request failed", Err: err}
}

func ConfirmationTimeout(txHash string, err error) *Error {
	return &Error{
		Kind:    KindConfirmationTimeout,
		Message: "transaction was not confirmed in time",
		Hint:    "Check the transaction hash on the block explorer before retrying.",
		Details: map[string]any{"txHash": txHash},
		Err:     err,
	}
}

// AsError extracts the typed error from err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf maps any error to its kind. Untyped errors are transport failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindConfirmationTimeout
	}
	return KindTransport
}

// ErrorDescriptor is the serializable shape of an Error in envelopes and replies.
type ErrorDescriptor struct {
	Kind      ErrorKind      `json:"kind"`
	Reason    Reason         `json:"reason,omitempty"`
	Field     string         `json:"field,omitempty"`
	Expected  string         `json:"expected,omitempty"`
	Signature string         `json:"signature,omitempty"`
	Message   string         `json:"message"`
	Hint      string         `json:"hint,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Describe converts err into a descriptor.
func Describe(err error) *ErrorDescriptor {
	if err == nil {
		return nil
	}
	de, ok := AsError(err)
	if !ok {
		de = TransportError(err)
	}
	msg := de.Message
	if msg == "" {
		msg = de.Error()
	}
	return &ErrorDescriptor{
		Kind:      de.Kind,
		Reason:    de.Reason,
		Field:     de.Field,
		Expected:  de.Expected,
		Signature: de.Signature,
		Message:   msg,
		Hint:      de.Hint,
		Details:   de.Details,
	}
}
