// Package errkind defines the closed set of error kinds the coordinator's
// core produces (spec.md §7). Callers compare with errors.Is against these
// sentinels; call sites that need structured detail wrap one of these with
// fmt.Errorf("%w: ...", errkind.X, ...).
package errkind

import "errors"

var (
	ErrQuoteNotFound               = errors.New("quote not found")
	ErrQuoteExpired                = errors.New("quote expired")
	ErrMarketMakerMismatch         = errors.New("market maker mismatch")
	ErrMarketMakerNotConnected     = errors.New("market maker not connected")
	ErrMarketMakerValidationTimeout = errors.New("market maker validation timeout")
	ErrMarketMakerRejected         = errors.New("market maker rejected quote")
	ErrInvalidTransition           = errors.New("invalid swap state transition")
	ErrMissingData                 = errors.New("missing data")
	ErrChainNotSupported           = errors.New("chain not supported")
	ErrChainRPC                    = errors.New("chain rpc error")
	ErrInvalidAddress              = errors.New("invalid address")
	ErrInvalidCurrency             = errors.New("invalid currency")
	ErrWalletDerivation            = errors.New("wallet derivation failed")
	ErrInsufficientBalance         = errors.New("insufficient balance")
	ErrEnqueueFailed               = errors.New("enqueue failed")
	ErrChannelClosed               = errors.New("channel closed")
	ErrPersistenceFailed           = errors.New("persistence failed")
	ErrAuthFailure                 = errors.New("authentication failure")
	ErrInvalidData                 = errors.New("invalid data")
	ErrNoMarketMakersConnected     = errors.New("no market makers connected")
	ErrNoQuotesReceived            = errors.New("no quotes received")
)

// InvalidTransition describes a rejected swap state-machine transition,
// carrying the state the swap was in and the status the caller attempted.
// It wraps ErrInvalidTransition so callers can still use errors.Is.
type InvalidTransition struct {
	From string
	To   string
}

func (e *InvalidTransition) Error() string {
	return "invalid transition from " + e.From + " to " + e.To
}

func (e *InvalidTransition) Unwrap() error { return ErrInvalidTransition }

// NewInvalidTransition builds an InvalidTransition error.
func NewInvalidTransition(from, to string) error {
	return &InvalidTransition{From: from, To: to}
}
