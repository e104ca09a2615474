// Package errors provides structured error handling for opentab.
// It defines the closed set of payment rejection reasons, sentinel errors,
// and helpers for adding context and details to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Reason codes surfaced in verify and settle results. The set is closed:
// pipelines map every failure, including unexpected ones, onto one of these.
const (
	ReasonMissingAuthorization    = "missing_authorization"
	ReasonInvalidNetwork          = "invalid_network"
	ReasonInvalidScheme           = "invalid_scheme"
	ReasonInvalidPayload          = "invalid_payload"
	ReasonInvalidSignature        = "invalid_exact_bch_payload_signature"
	ReasonNoUTXOForAddress        = "no_utxo_found_for_address"
	ReasonUTXONotFound            = "utxo_not_found"
	ReasonInvalidReceiverAddress  = "invalid_receiver_address"
	ReasonInsufficientUTXOBalance = "insufficient_utxo_balance"
	ReasonInsufficientFunds       = "insufficient_funds"
	ReasonInvalidTransactionState = "invalid_transaction_state"
	ReasonInvalidPayment          = "invalid_payment"
	ReasonInvalidUTXO             = "invalid_utxo"
	ReasonUTXOValidationError     = "unexpected_utxo_validation_error"
	ReasonUnexpectedVerifyError   = "unexpected_verify_error"
	ReasonUnexpectedSettleError   = "unexpected_settle_error"
)

// TabError is the structured error type for opentab.
type TabError struct {
	Reason  string            // Machine-readable reason code
	Message string            // Human-readable message
	Details map[string]string // Additional context
	Cause   error             // Underlying error
}

func (e *TabError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TabError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TabError. Two TabErrors match when their
// reason codes match, regardless of details or cause.
func (e *TabError) Is(target error) bool {
	var t *TabError
	if errors.As(target, &t) {
		return e.Reason == t.Reason
	}
	return false
}

// Sentinel errors, one per reason code.
var (
	ErrMissingAuthorization = &TabError{
		Reason:  ReasonMissingAuthorization,
		Message: "payment payload carries no authorization",
	}

	ErrInvalidNetwork = &TabError{
		Reason:  ReasonInvalidNetwork,
		Message: "payload network does not match the facilitator network",
	}

	ErrInvalidScheme = &TabError{
		Reason:  ReasonInvalidScheme,
		Message: "unsupported payment scheme",
	}

	ErrInvalidPayload = &TabError{
		Reason:  ReasonInvalidPayload,
		Message: "payment payload is missing required fields",
	}

	ErrInvalidSignature = &TabError{
		Reason:  ReasonInvalidSignature,
		Message: "authorization signature did not verify",
	}

	ErrNoUTXOForAddress = &TabError{
		Reason:  ReasonNoUTXOForAddress,
		Message: "no usable UTXO found for payer address",
	}

	ErrUTXONotFound = &TabError{
		Reason:  ReasonUTXONotFound,
		Message: "UTXO not found on chain",
	}

	ErrInvalidReceiverAddress = &TabError{
		Reason:  ReasonInvalidReceiverAddress,
		Message: "UTXO does not pay the facilitator address",
	}

	ErrInsufficientUTXOBalance = &TabError{
		Reason:  ReasonInsufficientUTXOBalance,
		Message: "remaining UTXO balance is below the required amount",
	}

	ErrInsufficientFunds = &TabError{
		Reason:  ReasonInsufficientFunds,
		Message: "facilitator wallet balance is below the settlement amount",
	}

	ErrInvalidTransactionState = &TabError{
		Reason:  ReasonInvalidTransactionState,
		Message: "broadcast did not produce a transaction id",
	}

	ErrInvalidPayment = &TabError{
		Reason:  ReasonInvalidPayment,
		Message: "authorization is inconsistent with payment requirements",
	}

	ErrInvalidUTXO = &TabError{
		Reason:  ReasonInvalidUTXO,
		Message: "UTXO reference is invalid",
	}

	ErrUTXOValidationError = &TabError{
		Reason:  ReasonUTXOValidationError,
		Message: "chain lookup for UTXO failed",
	}

	ErrUnexpectedVerifyError = &TabError{
		Reason:  ReasonUnexpectedVerifyError,
		Message: "unexpected error while verifying payment",
	}

	ErrUnexpectedSettleError = &TabError{
		Reason:  ReasonUnexpectedSettleError,
		Message: "unexpected error while settling payment",
	}
)

// WithCause returns a copy of the base error carrying the underlying cause.
func WithCause(base *TabError, cause error) *TabError {
	e := *base
	e.Cause = cause
	return &e
}

// WithDetail returns a copy of the base error with an added detail entry.
func WithDetail(base *TabError, key, value string) *TabError {
	e := *base
	e.Details = make(map[string]string, len(base.Details)+1)
	for k, v := range base.Details {
		e.Details[k] = v
	}
	e.Details[key] = value
	return &e
}

// WithMessage returns a copy of the base error with a replacement message.
func WithMessage(base *TabError, message string) *TabError {
	e := *base
	e.Message = message
	return &e
}

// FromReason returns the sentinel error for a reason code, or a generic
// TabError carrying the code when it is not one of the known sentinels.
func FromReason(reason string) *TabError {
	for _, s := range sentinels() {
		if s.Reason == reason {
			return s
		}
	}
	return &TabError{Reason: reason, Message: reason}
}

// ReasonOf extracts the reason code from an error chain. Errors that do not
// carry a TabError map to the fallback code.
func ReasonOf(err error, fallback string) string {
	var t *TabError
	if errors.As(err, &t) && t.Reason != "" {
		return t.Reason
	}
	return fallback
}

func sentinels() []*TabError {
	return []*TabError{
		ErrMissingAuthorization,
		ErrInvalidNetwork,
		ErrInvalidScheme,
		ErrInvalidPayload,
		ErrInvalidSignature,
		ErrNoUTXOForAddress,
		ErrUTXONotFound,
		ErrInvalidReceiverAddress,
		ErrInsufficientUTXOBalance,
		ErrInsufficientFunds,
		ErrInvalidTransactionState,
		ErrInvalidPayment,
		ErrInvalidUTXO,
		ErrUTXOValidationError,
		ErrUnexpectedVerifyError,
		ErrUnexpectedSettleError,
	}
}
