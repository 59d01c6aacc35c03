package pkg

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure by the stage that rejected the request.
type ErrorKind string

const (
	KindValidation ErrorKind = "ValidationError"
	KindArithmetic ErrorKind = "ArithmeticError"
	KindResolution ErrorKind = "ResolutionError"
	KindBuild      ErrorKind = "BuildError"
)

// Validation errors, raised before any arithmetic.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSlippage     = errors.New("invalid slippage")
	ErrIdenticalMints      = errors.New("input and output mints are identical")
	ErrMintMismatch        = errors.New("mints do not match pool")
	ErrConfigMismatch      = errors.New("amm config does not match pool")
	ErrUnsupportedSwapKind = errors.New("unsupported swap kind")
	ErrPoolSwapDisabled    = errors.New("pool swap is disabled")
)

// Arithmetic errors.
var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrInvalidPriceBounds = errors.New("invalid price bounds")
	ErrZeroLiquidity      = errors.New("zero liquidity")
)

// Resolution errors.
var (
	ErrArrayIndexOutOfRange = errors.New("tick array index out of range")
	ErrBitmapDecode         = errors.New("tick array bitmap decode error")
	ErrInvalidTickSpacing   = errors.New("invalid tick spacing")
)

// Build errors.
var (
	ErrMissingAssociatedAccount = errors.New("missing associated token account")
	ErrMissingFeePayer          = errors.New("missing fee payer")
	ErrMissingBlockhash         = errors.New("missing recent blockhash")
	ErrSerializationFailure     = errors.New("transaction serialization failure")
)

// ErrNoRoute is returned when no candidate pool produced a quote.
var ErrNoRoute = errors.New("no route found")

// Error carries the failing stage and kind around a sentinel error.
type Error struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

// NewError wraps sentinel with a stage and a formatted detail.
func NewError(kind ErrorKind, stage string, sentinel error, format string, args ...any) *Error {
	err := sentinel
	if format != "" {
		err = fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
