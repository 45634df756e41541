package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/endee416/vendorpay/internal/domain"
	"github.com/endee416/vendorpay/internal/events"
)

// fakeLedger serializes reserve/release under one mutex, mirroring the
// row-lock discipline of the Postgres store.
type fakeLedger struct {
	mu         sync.Mutex
	balances   map[string]int64
	releaseErr error
	releases   int
}

func newFakeLedger(balances map[string]int64) *fakeLedger {
	return &fakeLedger{balances: balances}
}

func (l *fakeLedger) Balance(_ context.Context, vendorID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[vendorID]
	if !ok {
		return 0, domain.ErrVendorNotFound
	}
	return bal, nil
}

func (l *fakeLedger) Reserve(_ context.Context, vendorID string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[vendorID]
	if !ok {
		return domain.ErrVendorNotFound
	}
	if bal < amount {
		return domain.ErrInsufficientFunds
	}
	l.balances[vendorID] = bal - amount
	return nil
}

func (l *fakeLedger) Release(_ context.Context, vendorID string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.releaseErr != nil {
		return l.releaseErr
	}
	if _, ok := l.balances[vendorID]; !ok {
		return domain.ErrVendorNotFound
	}
	l.releases++
	l.balances[vendorID] += amount
	return nil
}

type fakeGateway struct {
	mu sync.Mutex

	resolveErr   error
	recipientErr error
	transferErr  error
	refundErr    error

	resolved  domain.ResolvedIdentity
	reference string

	resolveCalls   int
	recipientCalls int
	transferCalls  int
	refundCalls    int
}

func (g *fakeGateway) ResolveAccount(context.Context, string, string) (domain.ResolvedIdentity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveCalls++
	if g.resolveErr != nil {
		return domain.ResolvedIdentity{}, g.resolveErr
	}
	return g.resolved, nil
}

func (g *fakeGateway) CreateRecipient(context.Context, string, string, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recipientCalls++
	if g.recipientErr != nil {
		return "", g.recipientErr
	}
	return "RCP_test", nil
}

func (g *fakeGateway) InitiateTransfer(_ context.Context, amount int64, handle string) (domain.TransferRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transferCalls++
	if g.transferErr != nil {
		return domain.TransferRecord{}, g.transferErr
	}
	ref := g.reference
	if ref == "" {
		ref = "TRF_test"
	}
	return domain.TransferRecord{
		AmountMinor:       amount * 100,
		RecipientHandle:   handle,
		ProviderReference: ref,
		Status:            "success",
	}, nil
}

func (g *fakeGateway) Refund(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	return g.refundErr
}

type fakeAudit struct {
	err     error
	entries []domain.AuditEntry
}

func (a *fakeAudit) Append(_ context.Context, entry domain.AuditEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

// fakeOrders applies the refund batch against in-memory orders/counters
// with the same all-or-nothing and clamp-at-zero semantics as Postgres.
type fakeOrders struct {
	orders   []domain.Order
	counters map[string]*domain.UserCounters

	queryErr error
	batchErr error

	batchCalls int
}

func (o *fakeOrders) OrdersByReference(_ context.Context, ref string) ([]domain.Order, error) {
	if o.queryErr != nil {
		return nil, o.queryErr
	}
	var matched []domain.Order
	for _, ord := range o.orders {
		if ord.ProviderReference == ref {
			matched = append(matched, ord)
		}
	}
	return matched, nil
}

func (o *fakeOrders) ApplyRefund(_ context.Context, ref string, vendorIDs []string, at time.Time) error {
	o.batchCalls++
	if o.batchErr != nil {
		return o.batchErr
	}
	for i := range o.orders {
		if o.orders[i].ProviderReference == ref {
			o.orders[i].Status = domain.OrderStatusRefunded
			t := at
			o.orders[i].RefundedAt = &t
		}
	}
	for _, v := range vendorIDs {
		c, ok := o.counters[v]
		if !ok {
			continue
		}
		if c.TotalOrders > 0 {
			c.TotalOrders--
		}
		if c.OrderNumber > 0 {
			c.OrderNumber--
		}
	}
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.ResolvedIdentity
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.ResolvedIdentity)}
}

func (c *fakeCache) Get(_ context.Context, accountNumber, bankCode string) (domain.ResolvedIdentity, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return domain.ResolvedIdentity{}, false, c.getErr
	}
	id, ok := c.entries[bankCode+":"+accountNumber]
	return id, ok, nil
}

func (c *fakeCache) Set(_ context.Context, accountNumber, bankCode string, id domain.ResolvedIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[bankCode+":"+accountNumber] = id
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	payouts []events.PayoutCompleted
	refunds []events.OrderRefunded
	fail    bool
}

func (p *fakePublisher) PublishPayoutCompleted(_ context.Context, e events.PayoutCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.payouts = append(p.payouts, e)
	return nil
}

func (p *fakePublisher) PublishOrderRefunded(_ context.Context, e events.OrderRefunded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.refunds = append(p.refunds, e)
	return nil
}
