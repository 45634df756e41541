package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endee416/vendorpay/internal/domain"
)

// LedgerStore mutates vendor balances. Reserve and Release are the only
// write paths; both run in a transaction holding a row lock on the vendor's
// account, so concurrent reservations against the same vendor serialize
// while different vendors never contend.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Balance(ctx context.Context, vendorID string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx,
		"SELECT balance FROM vendor_accounts WHERE vendor_id = $1", vendorID,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, domain.ErrVendorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance query failed: %w", err)
	}
	return balance, nil
}

// Reserve debits amount from the vendor's balance if and only if the
// current balance covers it. The read and the conditional write happen
// under one row lock.
func (s *LedgerStore) Reserve(ctx context.Context, vendorID string, amount int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx,
		"SELECT balance FROM vendor_accounts WHERE vendor_id = $1 FOR UPDATE", vendorID,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return domain.ErrVendorNotFound
	}
	if err != nil {
		return fmt.Errorf("lock acquisition failed: %w", err)
	}

	if balance < amount {
		return domain.ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		"UPDATE vendor_accounts SET balance = balance - $1 WHERE vendor_id = $2",
		amount, vendorID,
	)
	if err != nil {
		return fmt.Errorf("reserve update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

// Release credits a previously reserved amount back. Same transactional
// discipline as Reserve; it is the saga's compensation write.
func (s *LedgerStore) Release(ctx context.Context, vendorID string, amount int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx,
		"SELECT vendor_id FROM vendor_accounts WHERE vendor_id = $1 FOR UPDATE", vendorID,
	).Scan(&locked)
	if err == pgx.ErrNoRows {
		return domain.ErrVendorNotFound
	}
	if err != nil {
		return fmt.Errorf("lock acquisition failed: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE vendor_accounts SET balance = balance + $1 WHERE vendor_id = $2",
		amount, vendorID,
	)
	if err != nil {
		return fmt.Errorf("release update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}
