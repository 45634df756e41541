package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/endee416/vendorpay/internal/domain"
	"github.com/endee416/vendorpay/internal/events"
	"github.com/endee416/vendorpay/internal/identity"
)

// Ledger is the transactional balance store the saga reserves against.
type Ledger interface {
	Balance(ctx context.Context, vendorID string) (int64, error)
	Reserve(ctx context.Context, vendorID string, amount int64) error
	Release(ctx context.Context, vendorID string, amount int64) error
}

// Gateway is the payout provider. Each call is one unlocked network round
// trip, attempted exactly once per saga execution.
type Gateway interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (domain.ResolvedIdentity, error)
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	InitiateTransfer(ctx context.Context, amount int64, recipientHandle string) (domain.TransferRecord, error)
	Refund(ctx context.Context, providerReference string) error
}

// AuditRecorder persists committed payouts.
type AuditRecorder interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}

// ResolutionCache fronts the gateway resolve call. Optional.
type ResolutionCache interface {
	Get(ctx context.Context, accountNumber, bankCode string) (domain.ResolvedIdentity, bool, error)
	Set(ctx context.Context, accountNumber, bankCode string, id domain.ResolvedIdentity) error
}

// Publisher emits lifecycle events after local state is settled. Optional.
type Publisher interface {
	PublishPayoutCompleted(ctx context.Context, e events.PayoutCompleted) error
	PublishOrderRefunded(ctx context.Context, e events.OrderRefunded) error
}

// PayoutService drives the payout saga:
//
//	Validated → Reserved → Resolved → Verified → RecipientCreated → Transferred → Committed
//
// Any failure from Reserved onward releases the reservation back to the
// ledger exactly once. A failed release escalates to
// domain.CompensationFailedError carrying both failures.
type PayoutService struct {
	ledger      Ledger
	gateway     Gateway
	audit       AuditRecorder
	matcher     identity.Matcher
	resolutions ResolutionCache
	publisher   Publisher
	log         *zap.Logger
}

func NewPayoutService(ledger Ledger, gw Gateway, audit AuditRecorder, matcher identity.Matcher, log *zap.Logger) *PayoutService {
	return &PayoutService{
		ledger:  ledger,
		gateway: gw,
		audit:   audit,
		matcher: matcher,
		log:     log,
	}
}

// WithResolutionCache enables best-effort caching of account resolutions.
func (s *PayoutService) WithResolutionCache(c ResolutionCache) *PayoutService {
	s.resolutions = c
	return s
}

// WithPublisher enables best-effort lifecycle events.
func (s *PayoutService) WithPublisher(p Publisher) *PayoutService {
	s.publisher = p
	return s
}

// Execute runs one payout attempt end to end. Steps are strictly
// sequential; no gateway call is retried.
func (s *PayoutService) Execute(ctx context.Context, req domain.PayoutRequest) (*domain.PayoutResult, error) {
	if err := validate(req); err != nil {
		payoutOutcomes.WithLabelValues("validation_failed").Inc()
		return nil, err
	}

	log := s.log.With(zap.String("vendor_id", req.VendorID), zap.Int64("amount", req.Amount))

	// Reserve: the only local state change before the provider is involved.
	if err := s.ledger.Reserve(ctx, req.VendorID, req.Amount); err != nil {
		payoutOutcomes.WithLabelValues("reserve_failed").Inc()
		return nil, err
	}

	resolved, err := s.resolve(ctx, req.AccountNumber, req.BankCode)
	if err != nil {
		payoutOutcomes.WithLabelValues("resolve_failed").Inc()
		return nil, s.compensate(ctx, req, fmt.Errorf("%w: %v", domain.ErrAccountResolution, err))
	}

	if !s.matcher.Match(req.VendorName, resolved.AccountName) {
		payoutOutcomes.WithLabelValues("identity_mismatch").Inc()
		log.Warn("claimed name rejected against resolved account",
			zap.String("resolved_name", resolved.AccountName))
		return nil, s.compensate(ctx, req, domain.ErrIdentityMismatch)
	}

	recipient, err := s.gateway.CreateRecipient(ctx, req.VendorName, req.AccountNumber, req.BankCode)
	if err != nil {
		payoutOutcomes.WithLabelValues("recipient_failed").Inc()
		return nil, s.compensate(ctx, req, fmt.Errorf("%w: %v", domain.ErrRecipientCreation, err))
	}

	record, err := s.gateway.InitiateTransfer(ctx, req.Amount, recipient)
	if err != nil {
		// The provider may have executed the transfer despite the failed
		// call (timeout without response). Compensation here is a
		// best-effort balance correction, not proof that no money moved;
		// the log line is the operator's handle for manual reconciliation.
		payoutOutcomes.WithLabelValues("transfer_failed").Inc()
		log.Error("transfer step failed; provider-side outcome unknown",
			zap.String("recipient_handle", recipient), zap.Error(err))
		return nil, s.compensate(ctx, req, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err))
	}

	// Committed: the debit is final, the reservation is never reversed
	// from here on.
	now := time.Now().UTC()
	result := &domain.PayoutResult{
		Reference:   record.ProviderReference,
		VendorID:    req.VendorID,
		Amount:      req.Amount,
		Identity:    resolved,
		CommittedAt: now,
	}

	entry := domain.AuditEntry{
		ID:            uuid.NewString(),
		VendorID:      req.VendorID,
		Amount:        req.Amount,
		BankName:      resolved.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   resolved.AccountName,
		Reference:     record.ProviderReference,
		CreatedAt:     now,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		// Money already moved; surface as warning-class, keep the payout
		// successful.
		auditFailures.Inc()
		log.Warn("audit write failed after committed transfer",
			zap.String("reference", record.ProviderReference), zap.Error(err))
		result.AuditPending = true
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPayoutCompleted(ctx, events.PayoutCompleted{
			Reference:   record.ProviderReference,
			VendorID:    req.VendorID,
			Amount:      req.Amount,
			AccountName: resolved.AccountName,
			BankName:    resolved.BankName,
		}); err != nil {
			log.Warn("payout event publish failed", zap.Error(err))
		}
	}

	payoutOutcomes.WithLabelValues("committed").Inc()
	log.Info("payout committed", zap.String("reference", record.ProviderReference))
	return result, nil
}

// resolve consults the cache before the provider; cache failures degrade
// to a provider call, never to a saga failure.
func (s *PayoutService) resolve(ctx context.Context, accountNumber, bankCode string) (domain.ResolvedIdentity, error) {
	if s.resolutions != nil {
		if id, ok, err := s.resolutions.Get(ctx, accountNumber, bankCode); err != nil {
			s.log.Warn("resolution cache read failed", zap.Error(err))
		} else if ok {
			return id, nil
		}
	}

	id, err := s.gateway.ResolveAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return domain.ResolvedIdentity{}, err
	}

	if s.resolutions != nil {
		if err := s.resolutions.Set(ctx, accountNumber, bankCode, id); err != nil {
			s.log.Warn("resolution cache write failed", zap.Error(err))
		}
	}
	return id, nil
}

// compensate returns the reserved amount to the vendor. It runs exactly
// once per failed saga; if the release itself fails the caller gets the
// alarm-state error carrying both causes.
func (s *PayoutService) compensate(ctx context.Context, req domain.PayoutRequest, cause error) error {
	if err := s.ledger.Release(ctx, req.VendorID, req.Amount); err != nil {
		compensationFailures.Inc()
		s.log.Error("compensation failed: reserved funds not released",
			zap.String("vendor_id", req.VendorID),
			zap.Int64("amount", req.Amount),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return &domain.CompensationFailedError{Cause: cause, ReleaseErr: err}
	}
	return cause
}

func validate(req domain.PayoutRequest) error {
	switch {
	case strings.TrimSpace(req.VendorID) == "":
		return fmt.Errorf("%w: vendor id is required", domain.ErrValidation)
	case req.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	case strings.TrimSpace(req.AccountNumber) == "":
		return fmt.Errorf("%w: account number is required", domain.ErrValidation)
	case strings.TrimSpace(req.BankCode) == "":
		return fmt.Errorf("%w: bank code is required", domain.ErrValidation)
	case strings.TrimSpace(req.VendorName) == "":
		return fmt.Errorf("%w: vendor name is required", domain.ErrValidation)
	}
	return nil
}
