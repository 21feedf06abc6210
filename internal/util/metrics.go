package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_listings_created_total",
		Help: "Total number of listings created",
	})

	ListingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_listings_cancelled_total",
		Help: "Total number of listings cancelled",
	})

	ListingsRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_listings_restored_total",
		Help: "Total number of sold listings restored by admins",
	})

	PurchasesSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_purchases_settled_total",
		Help: "Total number of purchases settled immediately (offline buyer)",
	})

	PurchasesPendingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_purchases_pending_total",
		Help: "Total number of purchases reserved pending NPC payment (online buyer)",
	})

	PurchasesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_purchases_failed_total",
		Help: "Total number of failed purchase attempts",
	}, []string{"reason"})

	PendingPaymentsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_pending_payments_completed_total",
		Help: "Total number of pending transactions completed via the broker NPC",
	})

	EarningsClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_earnings_claimed_total",
		Help: "Total number of earnings claim operations",
	})

	EarningsClaimedCopper = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_earnings_claimed_copper_total",
		Help: "Total copper paid out through earnings claims",
	})

	SettlementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketplace_settlement_latency_seconds",
		Help:    "Latency of purchase settlement transactions",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
