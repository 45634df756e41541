package domain

import "time"

// VendorAccount represents a vendor's balance in the ledger.
// Balance is held in major currency units and never goes negative;
// it is mutated only through the ledger store's reserve/release operations.
type VendorAccount struct {
	VendorID  string    `json:"vendor_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// PayoutRequest is the validated input to the payout saga. VendorID is
// injected by the boundary layer after token verification, never read
// from the request body.
type PayoutRequest struct {
	VendorID      string `json:"vendor_id"`
	Amount        int64  `json:"amount"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	VendorName    string `json:"vendor_name"`
}

// ResolvedIdentity is the account identity the provider reports for an
// (account number, bank code) pair. Transient: used for the verification
// step and the audit record only.
type ResolvedIdentity struct {
	AccountName string `json:"account_name"`
	BankName    string `json:"bank_name"`
}

// TransferRecord is the provider's evidence that money moved.
type TransferRecord struct {
	AmountMinor       int64  `json:"amount_minor"`
	RecipientHandle   string `json:"recipient_handle"`
	ProviderReference string `json:"provider_reference"`
	Status            string `json:"status"`
}

// PayoutResult is returned to the boundary layer on a committed payout.
type PayoutResult struct {
	Reference   string           `json:"reference"`
	VendorID    string           `json:"vendor_id"`
	Amount      int64            `json:"amount"`
	Identity    ResolvedIdentity `json:"identity"`
	CommittedAt time.Time        `json:"committed_at"`
	// AuditPending is set when the transfer committed but the audit
	// record could not be written. The payout is still successful.
	AuditPending bool `json:"audit_pending,omitempty"`
}

// AuditEntry is the append-only record of a committed payout.
type AuditEntry struct {
	ID            string    `json:"id"`
	VendorID      string    `json:"vendor_id"`
	Amount        int64     `json:"amount"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	Reference     string    `json:"reference"`
	CreatedAt     time.Time `json:"created_at"`
}

// RefundRequest identifies a previously completed transfer to reverse.
// ActingPrincipal is the operator id resolved at the boundary; operator
// authorization is enforced there, not here.
type RefundRequest struct {
	ProviderReference string `json:"provider_reference"`
	ActingPrincipal   string `json:"acting_principal"`
}

// RefundResult reports what the refund saga touched locally.
type RefundResult struct {
	ProviderReference string    `json:"provider_reference"`
	OrdersRefunded    int       `json:"orders_refunded"`
	VendorsAdjusted   int       `json:"vendors_adjusted"`
	RefundedAt        time.Time `json:"refunded_at"`
}

// Order is a prior purchase record tied to a provider reference.
type Order struct {
	ID                string     `json:"id"`
	VendorID          string     `json:"vendor_id"`
	ProviderReference string     `json:"provider_reference"`
	Status            string     `json:"status"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
}

const (
	OrderStatusCompleted = "completed"
	OrderStatusRefunded  = "refunded"
)

// UserCounters holds the derived per-vendor counters the refund saga
// decrements. Both values are clamped at zero.
type UserCounters struct {
	VendorID    string `json:"vendor_id"`
	TotalOrders int64  `json:"total_orders"`
	OrderNumber int64  `json:"order_number"`
}
