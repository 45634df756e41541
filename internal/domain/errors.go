package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the payout and refund sagas. Handlers map these to
// HTTP statuses; the saga wraps step errors with the matching sentinel so
// callers can branch with errors.Is.
var (
	ErrValidation        = errors.New("invalid payout request")
	ErrVendorNotFound    = errors.New("vendor account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountResolution = errors.New("account resolution failed")
	ErrIdentityMismatch  = errors.New("account name does not match vendor name")
	ErrRecipientCreation = errors.New("recipient creation failed")
	ErrTransferFailed    = errors.New("transfer failed")

	// ErrAuditWrite is warning-class: the transfer committed, only the
	// audit record is missing. The payout is still reported successful.
	ErrAuditWrite = errors.New("audit write failed")

	ErrRefundRejected = errors.New("provider rejected refund")

	// ErrPostRefundReconciliation marks the window where the provider
	// refund succeeded but local order/counter bookkeeping did not.
	ErrPostRefundReconciliation = errors.New("post-refund reconciliation failed")
)

// CompensationFailedError is the one unrecoverable inconsistency the saga
// can produce: a step failed and the reserved funds could not be returned.
// It carries both the original step failure and the release failure;
// Unwrap exposes the original cause for errors.Is checks.
type CompensationFailedError struct {
	Cause      error
	ReleaseErr error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("compensation failed: funds not released (%v) after: %v", e.ReleaseErr, e.Cause)
}

func (e *CompensationFailedError) Unwrap() error { return e.Cause }
