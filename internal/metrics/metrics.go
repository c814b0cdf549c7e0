// Package metrics provides Prometheus metrics for the karma engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision metrics
var (
	// DecisionsTotal counts evaluate calls by terminal status.
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "decisions_total",
		Help:      "Total reward decisions by terminal status.",
	}, []string{"status"})

	// DecisionDuration tracks end-to-end evaluate latency.
	DecisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "karma",
		Name:      "decision_duration_seconds",
		Help:      "Reward decision latency in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// RewardsTotal counts delivered rewards by category and rarity.
	RewardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "rewards_total",
		Help:      "Total rewards delivered by category and rarity.",
	}, []string{"category", "rarity"})

	// KarmaGranted totals karma points handed out.
	KarmaGranted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "points_granted_total",
		Help:      "Total karma points granted across all rewards.",
	})

	// RulesLoaded tracks the active rule catalog size.
	RulesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "karma",
		Name:      "rules_loaded",
		Help:      "Number of rules in the active catalog.",
	})
)

// Ledger metrics
var (
	// LedgerConflicts counts insert races lost to an earlier award.
	LedgerConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "ledger_conflicts_total",
		Help:      "Total ledger inserts that lost to an existing award.",
	})

	// LedgerSweepDeleted counts rows removed by the retention sweeper.
	LedgerSweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "ledger_sweep_deleted_total",
		Help:      "Total ledger rows deleted by retention sweeps.",
	})
)

// Cache metrics
var (
	// CacheHits counts repeat checks answered from the award cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "cache_hits_total",
		Help:      "Total award cache hits.",
	})
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "karma",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "karma",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "karma",
		Name:      "http_requests_in_flight",
		Help:      "Current number of HTTP requests being served.",
	})
)
