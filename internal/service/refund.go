package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/endee416/vendorpay/internal/domain"
	"github.com/endee416/vendorpay/internal/events"
)

// OrderStore is the order/counter bookkeeping the refund saga adjusts.
type OrderStore interface {
	OrdersByReference(ctx context.Context, providerReference string) ([]domain.Order, error)
	ApplyRefund(ctx context.Context, providerReference string, vendorIDs []string, at time.Time) error
}

// RefundService reverses a completed transfer: provider first, local
// bookkeeping second. If the provider rejects, nothing local is touched.
// If local bookkeeping fails after the provider refunded, the caller gets
// domain.ErrPostRefundReconciliation: an acknowledged inconsistency
// window, not a silent absorption.
type RefundService struct {
	gateway   Gateway
	orders    OrderStore
	publisher Publisher
	log       *zap.Logger
}

func NewRefundService(gw Gateway, orders OrderStore, log *zap.Logger) *RefundService {
	return &RefundService{gateway: gw, orders: orders, log: log}
}

func (s *RefundService) WithPublisher(p Publisher) *RefundService {
	s.publisher = p
	return s
}

func (s *RefundService) Execute(ctx context.Context, req domain.RefundRequest) (*domain.RefundResult, error) {
	if strings.TrimSpace(req.ProviderReference) == "" {
		refundOutcomes.WithLabelValues("validation_failed").Inc()
		return nil, fmt.Errorf("%w: provider reference is required", domain.ErrValidation)
	}

	log := s.log.With(
		zap.String("provider_reference", req.ProviderReference),
		zap.String("acting_principal", req.ActingPrincipal),
	)

	if err := s.gateway.Refund(ctx, req.ProviderReference); err != nil {
		refundOutcomes.WithLabelValues("provider_rejected").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrRefundRejected, err)
	}

	// From here the provider has refunded; every local failure is the
	// reconciliation gap, reported as such.
	orders, err := s.orders.OrdersByReference(ctx, req.ProviderReference)
	if err != nil {
		refundOutcomes.WithLabelValues("reconciliation_failed").Inc()
		log.Error("order lookup failed after provider refund", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrPostRefundReconciliation, err)
	}

	now := time.Now().UTC()
	vendors := distinctVendors(orders)
	if len(orders) > 0 {
		if err := s.orders.ApplyRefund(ctx, req.ProviderReference, vendors, now); err != nil {
			refundOutcomes.WithLabelValues("reconciliation_failed").Inc()
			log.Error("refund batch failed after provider refund", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrPostRefundReconciliation, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderRefunded(ctx, events.OrderRefunded{
			ProviderReference: req.ProviderReference,
			OrdersRefunded:    len(orders),
		}); err != nil {
			log.Warn("refund event publish failed", zap.Error(err))
		}
	}

	refundOutcomes.WithLabelValues("completed").Inc()
	log.Info("refund completed",
		zap.Int("orders_refunded", len(orders)),
		zap.Int("vendors_adjusted", len(vendors)),
	)
	return &domain.RefundResult{
		ProviderReference: req.ProviderReference,
		OrdersRefunded:    len(orders),
		VendorsAdjusted:   len(vendors),
		RefundedAt:        now,
	}, nil
}

// distinctVendors keeps one entry per vendor in the matched set. Counters
// move once per vendor regardless of how many of that vendor's orders
// matched; repeated refunds therefore cannot drive counters negative.
func distinctVendors(orders []domain.Order) []string {
	seen := make(map[string]struct{}, len(orders))
	var vendors []string
	for _, o := range orders {
		if _, ok := seen[o.VendorID]; ok {
			continue
		}
		seen[o.VendorID] = struct{}{}
		vendors = append(vendors, o.VendorID)
	}
	return vendors
}
