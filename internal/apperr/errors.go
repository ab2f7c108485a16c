package apperr

import "errors"

// Sentinel errors shared by every module. Services wrap these with
// fmt.Errorf and %w; handlers map them to HTTP codes with errors.Is.
var (
	// ErrNotFound marks an unknown product, order, order item, serial
	// unit or discount code.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a malformed or missing required field, e.g.
	// a serialized line without a serial unit, or a return reason that
	// is too short.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a lost race on a shared resource, e.g. a serial
	// unit that another checkout already sold.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientStock marks a stock check-and-decrement that found
	// fewer units than requested. Retryable by the caller after a fresh
	// catalog read.
	ErrInsufficientStock = errors.New("insufficient stock")
)
