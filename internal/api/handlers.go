package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/endee416/vendorpay/internal/domain"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorpay_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendorpay_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

// PayoutExecutor runs the payout saga.
type PayoutExecutor interface {
	Execute(ctx context.Context, req domain.PayoutRequest) (*domain.PayoutResult, error)
}

// RefundExecutor runs the refund saga.
type RefundExecutor interface {
	Execute(ctx context.Context, req domain.RefundRequest) (*domain.RefundResult, error)
}

// BalanceReader reads a vendor's current ledger balance.
type BalanceReader interface {
	Balance(ctx context.Context, vendorID string) (int64, error)
}

type Handler struct {
	payouts PayoutExecutor
	refunds RefundExecutor
	ledger  BalanceReader
	log     *zap.Logger
}

func NewHandler(payouts PayoutExecutor, refunds RefundExecutor, ledger BalanceReader, log *zap.Logger) *Handler {
	return &Handler{payouts: payouts, refunds: refunds, ledger: ledger, log: log}
}

type payoutBody struct {
	Amount        int64  `json:"amount"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	VendorName    string `json:"vendor_name"`
}

type refundBody struct {
	ProviderReference string `json:"provider_reference"`
}

// response is the envelope every endpoint returns.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, response{Success: true, Message: "ok"})
}

func (h *Handler) CreatePayoutHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/payouts"))
	defer timer.ObserveDuration()

	principal, ok := principalFrom(r.Context())
	if !ok {
		h.respond(w, http.StatusUnauthorized, "POST", "/payouts", response{Success: false, Error: "Unauthorized"})
		return
	}

	var body payoutBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respond(w, http.StatusBadRequest, "POST", "/payouts", response{Success: false, Error: "Malformed JSON body"})
		return
	}

	req := domain.PayoutRequest{
		VendorID:      principal.VendorID,
		Amount:        body.Amount,
		AccountNumber: body.AccountNumber,
		BankCode:      body.BankCode,
		VendorName:    body.VendorName,
	}

	result, err := h.payouts.Execute(r.Context(), req)
	if err != nil {
		status, msg := payoutStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("payout failed", zap.String("vendor_id", principal.VendorID), zap.Error(err))
		}
		h.respond(w, status, "POST", "/payouts", response{Success: false, Error: msg})
		return
	}

	resp := response{Success: true, Data: result}
	if result.AuditPending {
		resp.Message = "payout completed; audit record pending"
	}
	h.respond(w, http.StatusCreated, "POST", "/payouts", resp)
}

func (h *Handler) CreateRefundHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/refunds"))
	defer timer.ObserveDuration()

	principal, _ := principalFrom(r.Context())

	var body refundBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respond(w, http.StatusBadRequest, "POST", "/refunds", response{Success: false, Error: "Malformed JSON body"})
		return
	}

	result, err := h.refunds.Execute(r.Context(), domain.RefundRequest{
		ProviderReference: body.ProviderReference,
		ActingPrincipal:   principal.VendorID,
	})
	if err != nil {
		status, msg := refundStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("refund failed", zap.String("provider_reference", body.ProviderReference), zap.Error(err))
		}
		h.respond(w, status, "POST", "/refunds", response{Success: false, Error: msg})
		return
	}

	h.respond(w, http.StatusOK, "POST", "/refunds", response{Success: true, Data: result})
}

func (h *Handler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	vendorID := mux.Vars(r)["id"]

	principal, _ := principalFrom(r.Context())
	if principal.VendorID != vendorID && principal.Role != RoleOperator {
		h.respond(w, http.StatusForbidden, "GET", "/vendors/{id}/balance", response{Success: false, Error: "Insufficient privileges"})
		return
	}

	balance, err := h.ledger.Balance(r.Context(), vendorID)
	if err != nil {
		if errors.Is(err, domain.ErrVendorNotFound) {
			h.respond(w, http.StatusNotFound, "GET", "/vendors/{id}/balance", response{Success: false, Error: "Vendor not found"})
			return
		}
		h.log.Error("balance lookup failed", zap.String("vendor_id", vendorID), zap.Error(err))
		h.respond(w, http.StatusInternalServerError, "GET", "/vendors/{id}/balance", response{Success: false, Error: "Internal server error"})
		return
	}

	h.respond(w, http.StatusOK, "GET", "/vendors/{id}/balance", response{
		Success: true,
		Data:    domain.VendorAccount{VendorID: vendorID, Balance: balance},
	})
}

// payoutStatus maps the saga taxonomy onto HTTP. Validation, insufficient
// funds, identity mismatch, and gateway rejections are caller-visible
// 400-class; compensation failure and anything unexpected are 500-class.
func payoutStatus(err error) (int, string) {
	var compErr *domain.CompensationFailedError
	if errors.As(err, &compErr) {
		return http.StatusInternalServerError, "Payout failed and funds could not be returned; contact support"
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, "Insufficient funds"
	case errors.Is(err, domain.ErrVendorNotFound):
		return http.StatusNotFound, "Vendor account not found"
	case errors.Is(err, domain.ErrAccountResolution):
		return http.StatusBadRequest, "Could not resolve bank account"
	case errors.Is(err, domain.ErrIdentityMismatch):
		return http.StatusBadRequest, "Account name does not match vendor name"
	case errors.Is(err, domain.ErrRecipientCreation):
		return http.StatusBadRequest, "Could not register recipient with provider"
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadRequest, "Transfer was not completed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func refundStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrRefundRejected):
		return http.StatusBadRequest, "Provider rejected the refund"
	case errors.Is(err, domain.ErrPostRefundReconciliation):
		return http.StatusInternalServerError, "Refund completed at provider but local records were not updated; contact support"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) respond(w http.ResponseWriter, code int, method, endpoint string, payload response) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, response{Success: false, Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
