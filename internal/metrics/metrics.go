// Package metrics exposes prometheus collectors for the GDPR service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConsentGrants counts consent grants by consent type
	ConsentGrants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_consent_grants_total",
		Help: "Total number of consent grants, by consent type.",
	}, []string{"consent_type"})

	// ConsentWithdrawals counts consent withdrawals by consent type
	ConsentWithdrawals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_consent_withdrawals_total",
		Help: "Total number of consent withdrawals, by consent type.",
	}, []string{"consent_type"})

	// ConsentChecks counts consent decision lookups by consent type and outcome
	ConsentChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_consent_checks_total",
		Help: "Total number of consent decision checks, by consent type and result.",
	}, []string{"consent_type", "result"})

	// ConsentCacheHits counts consent cache hits and misses
	ConsentCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_consent_cache_lookups_total",
		Help: "Total number of consent cache lookups, by outcome.",
	}, []string{"outcome"})

	// ExportsRequested counts data export requests by format
	ExportsRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_exports_requested_total",
		Help: "Total number of data export requests, by format.",
	}, []string{"format"})

	// ExportsProcessed counts completed export jobs by format and outcome
	ExportsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_exports_processed_total",
		Help: "Total number of processed export jobs, by format and outcome.",
	}, []string{"format", "outcome"})

	// ExportDuration observes export processing time in seconds
	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gdpr_export_duration_seconds",
		Help:    "Time spent producing a data export, by format.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"format"})

	// RestrictionsActive tracks the number of active processing restrictions
	RestrictionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gdpr_restrictions_active",
		Help: "Number of currently active processing restrictions.",
	})

	// RestrictionChecks counts processing-allowed queries by outcome
	RestrictionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdpr_restriction_checks_total",
		Help: "Total number of processing restriction checks, by outcome.",
	}, []string{"outcome"})
)

// CheckResult converts a boolean decision to a metric label value
func CheckResult(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}
