package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endee416/vendorpay/internal/domain"
)

// OrderStore reads orders by provider reference and applies the refund
// batch: mark matched orders refunded and decrement each distinct vendor's
// counters, all in one transaction.
type OrderStore struct {
	db *pgxpool.Pool
}

func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) OrdersByReference(ctx context.Context, providerReference string) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, vendor_id, provider_reference, status, refunded_at
		 FROM orders WHERE provider_reference = $1`,
		providerReference,
	)
	if err != nil {
		return nil, fmt.Errorf("order query failed: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.VendorID, &o.ProviderReference, &o.Status, &o.RefundedAt); err != nil {
			return nil, fmt.Errorf("order scan failed: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ApplyRefund marks every order under providerReference refunded and
// decrements counters once per vendor in vendorIDs, clamped at zero.
// All-or-nothing: any failure rolls the whole batch back.
func (s *OrderStore) ApplyRefund(ctx context.Context, providerReference string, vendorIDs []string, at time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"UPDATE orders SET status = $1, refunded_at = $2 WHERE provider_reference = $3",
		domain.OrderStatusRefunded, at, providerReference,
	)
	if err != nil {
		return fmt.Errorf("order update failed: %w", err)
	}

	for _, vendorID := range vendorIDs {
		_, err = tx.Exec(ctx,
			`UPDATE user_counters
			 SET total_orders = GREATEST(total_orders - 1, 0),
			     order_number = GREATEST(order_number - 1, 0)
			 WHERE vendor_id = $1`,
			vendorID,
		)
		if err != nil {
			return fmt.Errorf("counter update failed for vendor %s: %w", vendorID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}
