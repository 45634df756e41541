package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endee416/vendorpay/internal/domain"
)

// AuditStore appends committed-payout records. Append-only: no update or
// delete path exists.
type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO payout_audit (id, vendor_id, amount, bank_name, account_number, account_name, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.VendorID, entry.Amount, entry.BankName,
		entry.AccountNumber, entry.AccountName, entry.Reference, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit insert failed: %w", err)
	}
	return nil
}
