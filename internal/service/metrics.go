package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	payoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorpay_payouts_total",
		Help: "Payout saga executions by terminal outcome",
	}, []string{"outcome"})

	refundOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorpay_refunds_total",
		Help: "Refund saga executions by terminal outcome",
	}, []string{"outcome"})

	compensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendorpay_compensation_failures_total",
		Help: "Reservations that could not be released after a failed payout",
	})

	auditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendorpay_audit_write_failures_total",
		Help: "Audit entries that failed to persist after a committed transfer",
	})
)
