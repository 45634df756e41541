package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/endee416/vendorpay/internal/domain"
)

func refundFixture(orders []domain.Order, counters map[string]*domain.UserCounters) (*RefundService, *fakeGateway, *fakeOrders) {
	gw := &fakeGateway{}
	store := &fakeOrders{orders: orders, counters: counters}
	svc := NewRefundService(gw, store, zap.NewNop())
	return svc, gw, store
}

func TestRefundValidation(t *testing.T) {
	t.Parallel()

	svc, gw, _ := refundFixture(nil, nil)
	_, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: " "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if gw.refundCalls != 0 {
		t.Error("provider called for invalid request")
	}
}

func TestRefundProviderRejection(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{{ID: "o1", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted}}
	counters := map[string]*domain.UserCounters{"vendor-1": {VendorID: "vendor-1", TotalOrders: 3, OrderNumber: 3}}
	svc, gw, store := refundFixture(orders, counters)
	gw.refundErr = errors.New("transfer not reversible")

	_, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1"})
	if !errors.Is(err, domain.ErrRefundRejected) {
		t.Fatalf("want ErrRefundRejected, got %v", err)
	}
	// No local state touched on provider rejection.
	if store.batchCalls != 0 {
		t.Error("batch applied after provider rejection")
	}
	if counters["vendor-1"].TotalOrders != 3 {
		t.Error("counters mutated after provider rejection")
	}
}

func TestRefundTwoOrdersSameVendor(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{
		{ID: "o1", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted},
		{ID: "o2", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted},
		{ID: "o3", VendorID: "vendor-1", ProviderReference: "TRF_other", Status: domain.OrderStatusCompleted},
	}
	counters := map[string]*domain.UserCounters{"vendor-1": {VendorID: "vendor-1", TotalOrders: 5, OrderNumber: 5}}
	svc, _, store := refundFixture(orders, counters)

	res, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1", ActingPrincipal: "ops-1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OrdersRefunded != 2 || res.VendorsAdjusted != 1 {
		t.Errorf("result = %+v, want 2 orders / 1 vendor", res)
	}

	// Counters move once per distinct vendor in the matched set, not once
	// per order.
	if counters["vendor-1"].TotalOrders != 4 || counters["vendor-1"].OrderNumber != 4 {
		t.Errorf("counters = %+v, want 4/4", counters["vendor-1"])
	}
	for _, o := range store.orders {
		if o.ProviderReference == "TRF_1" && o.Status != domain.OrderStatusRefunded {
			t.Errorf("order %s not marked refunded", o.ID)
		}
		if o.ProviderReference == "TRF_other" && o.Status == domain.OrderStatusRefunded {
			t.Errorf("unrelated order %s marked refunded", o.ID)
		}
	}
}

func TestRefundCountersClampAtZero(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{
		{ID: "o1", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted},
		{ID: "o2", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted},
	}
	counters := map[string]*domain.UserCounters{"vendor-1": {VendorID: "vendor-1", TotalOrders: 0, OrderNumber: 1}}
	svc, _, _ := refundFixture(orders, counters)

	if _, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if counters["vendor-1"].TotalOrders != 0 || counters["vendor-1"].OrderNumber != 0 {
		t.Errorf("counters = %+v, want clamped at 0/0", counters["vendor-1"])
	}
}

func TestRefundRepeatedDoesNotCorruptCounters(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{{ID: "o1", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted}}
	counters := map[string]*domain.UserCounters{"vendor-1": {VendorID: "vendor-1", TotalOrders: 1, OrderNumber: 1}}
	svc, _, _ := refundFixture(orders, counters)

	for i := 0; i < 3; i++ {
		if _, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1"}); err != nil {
			t.Fatalf("Execute #%d: %v", i+1, err)
		}
	}
	if counters["vendor-1"].TotalOrders != 0 || counters["vendor-1"].OrderNumber != 0 {
		t.Errorf("counters = %+v, want 0/0 after repeated refunds", counters["vendor-1"])
	}
}

func TestRefundTwoVendors(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{
		{ID: "o1", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted},
		{ID: "o2", VendorID: "vendor-2", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted},
	}
	counters := map[string]*domain.UserCounters{
		"vendor-1": {VendorID: "vendor-1", TotalOrders: 2, OrderNumber: 2},
		"vendor-2": {VendorID: "vendor-2", TotalOrders: 7, OrderNumber: 7},
	}
	svc, _, _ := refundFixture(orders, counters)

	res, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.VendorsAdjusted != 2 {
		t.Errorf("vendors adjusted = %d, want 2", res.VendorsAdjusted)
	}
	if counters["vendor-1"].TotalOrders != 1 || counters["vendor-2"].TotalOrders != 6 {
		t.Errorf("counters = %+v / %+v", counters["vendor-1"], counters["vendor-2"])
	}
}

func TestRefundBatchFailureIsReconciliationError(t *testing.T) {
	t.Parallel()

	orders := []domain.Order{{ID: "o1", VendorID: "vendor-1", ProviderReference: "TRF_1", Status: domain.OrderStatusCompleted}}
	counters := map[string]*domain.UserCounters{"vendor-1": {VendorID: "vendor-1", TotalOrders: 1, OrderNumber: 1}}
	svc, gw, store := refundFixture(orders, counters)
	store.batchErr = errors.New("store unavailable")

	_, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1"})
	if !errors.Is(err, domain.ErrPostRefundReconciliation) {
		t.Fatalf("want ErrPostRefundReconciliation, got %v", err)
	}
	if gw.refundCalls != 1 {
		t.Errorf("provider refund calls = %d, want 1", gw.refundCalls)
	}
}

func TestRefundQueryFailureIsReconciliationError(t *testing.T) {
	t.Parallel()

	svc, _, store := refundFixture(nil, nil)
	store.queryErr = errors.New("store unavailable")

	_, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_1"})
	if !errors.Is(err, domain.ErrPostRefundReconciliation) {
		t.Fatalf("want ErrPostRefundReconciliation, got %v", err)
	}
}

func TestRefundNoMatchingOrders(t *testing.T) {
	t.Parallel()

	svc, _, store := refundFixture(nil, nil)
	pub := &fakePublisher{}
	svc.WithPublisher(pub)

	res, err := svc.Execute(context.Background(), domain.RefundRequest{ProviderReference: "TRF_unknown"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OrdersRefunded != 0 || res.VendorsAdjusted != 0 {
		t.Errorf("result = %+v, want zero adjustments", res)
	}
	if store.batchCalls != 0 {
		t.Error("batch applied with no matching orders")
	}
	if len(pub.refunds) != 1 {
		t.Errorf("published events = %d, want 1", len(pub.refunds))
	}
}
