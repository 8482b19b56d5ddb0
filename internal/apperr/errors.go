// Package apperr classifies failures into a small set of kinds, records them
// in a bounded log and renders user-facing messages.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind categorizes an error for logging and display
type Kind string

const (
	KindWallet      Kind = "WALLET_ERROR"
	KindNetwork     Kind = "NETWORK_ERROR"
	KindTransaction Kind = "TRANSACTION_ERROR"
	KindAPI         Kind = "API_ERROR"
	KindStrategy    Kind = "STRATEGY_ERROR"
	KindUnknown     Kind = "UNKNOWN_ERROR"
)

// Error is a classified application error
type Error struct {
	Kind      Kind
	Message   string
	Details   any
	Timestamp time.Time
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error stamped with the current time
func New(kind Kind, message string, details any) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// Wrap classifies err under kind, keeping it reachable via errors.Is/As
func Wrap(kind Kind, message string, err error) *Error {
	e := New(kind, message, nil)
	e.Err = err
	return e
}

func Wallet(message string, details any) *Error      { return New(KindWallet, message, details) }
func Network(message string, details any) *Error     { return New(KindNetwork, message, details) }
func Transaction(message string, details any) *Error { return New(KindTransaction, message, details) }
func API(message string, details any) *Error         { return New(KindAPI, message, details) }
func Strategy(message string, details any) *Error    { return New(KindStrategy, message, details) }

// Classify returns the kind for any error. Timeouts and cancellations count
// as network failures.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	return KindUnknown
}

// From converts any error into an *Error, reusing it when already classified
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(Classify(err), err.Error(), err)
}

// UserMessage renders err for an end user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	e := From(err)

	switch e.Kind {
	case KindWallet:
		return fmt.Sprintf("Wallet error: %s. Please check your wallet connection and try again.", e.Message)
	case KindNetwork:
		return fmt.Sprintf("Network error: %s. Please check your internet connection and try again.", e.Message)
	case KindTransaction:
		return fmt.Sprintf("Transaction error: %s. Your transaction could not be completed.", e.Message)
	case KindAPI:
		return fmt.Sprintf("Service error: %s. Please try again later.", e.Message)
	case KindStrategy:
		return fmt.Sprintf("Strategy error: %s. Please adjust your strategy parameters.", e.Message)
	default:
		return fmt.Sprintf("An unexpected error occurred: %s", e.Message)
	}
}
