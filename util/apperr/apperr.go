// Package apperr carries the coded, caller-recoverable failures of the
// circulation rules. Controllers map codes to HTTP statuses.
package apperr

import "errors"

type Code string

const (
	NoCopyAvailable       Code = "NO_COPY_AVAILABLE"
	BorrowingRestricted   Code = "BORROWING_RESTRICTED"
	RenewalLimitExceeded  Code = "RENEWAL_LIMIT_EXCEEDED"
	HoldConflict          Code = "HOLD_CONFLICT"
	DuplicateHold         Code = "DUPLICATE_HOLD"
	OverpaymentNotAllowed Code = "OVERPAYMENT_NOT_ALLOWED"
	NotFound              Code = "NOT_FOUND"
	Forbidden             Code = "FORBIDDEN"

	NotActive       Code = "NOT_ACTIVE"
	AlreadyReturned Code = "ALREADY_RETURNED"
	AlreadySettled  Code = "ALREADY_SETTLED"
	HasOpenLoans    Code = "HAS_OPEN_LOANS"
)

type codedError struct{ code Code }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() Code    { return e.code }

func New(c Code) error { return codedError{code: c} }

// CodeOf extracts the error code, or "" for uncoded errors.
func CodeOf(err error) Code {
	var ce interface{ Code() Code }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, c Code) bool { return CodeOf(err) == c }
