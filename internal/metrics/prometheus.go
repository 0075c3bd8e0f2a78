package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Resolution metrics
	ResolvesTotal   *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	ResolveErrors   *prometheus.CounterVec

	// Remote call metrics
	RemoteCalls *prometheus.CounterVec

	// Provisioning metrics
	GroupsCreated      prometheus.Counter
	CollectionsCreated prometheus.Counter
	DashboardsCopied   prometheus.Counter
	OrphanedCopies     prometheus.Counter
	CloneOutcomes      *prometheus.CounterVec

	// Token metrics
	TokensIssued prometheus.Counter

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ResolvesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_resolves_total",
				Help: "Total number of dashboard resolutions",
			},
			[]string{"module", "outcome"},
		),

		ResolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provisioner_resolve_duration_seconds",
				Help:    "Duration of dashboard resolutions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"module"},
		),

		ResolveErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_resolve_errors_total",
				Help: "Total number of resolution errors",
			},
			[]string{"module", "error_type"},
		),

		RemoteCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_metabase_calls_total",
				Help: "Total number of Metabase API calls",
			},
			[]string{"method", "status"},
		),

		GroupsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "provisioner_groups_created_total",
				Help: "Total number of tenant permission groups created",
			},
		),

		CollectionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "provisioner_collections_created_total",
				Help: "Total number of tenant collections created",
			},
		),

		DashboardsCopied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "provisioner_dashboards_copied_total",
				Help: "Total number of dashboard copies requested",
			},
		),

		OrphanedCopies: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "provisioner_orphaned_copies_total",
				Help: "Dashboard copies abandoned after losing a provisioning race",
			},
		),

		CloneOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_permission_clones_total",
				Help: "Outcomes of template permission cloning sub-steps",
			},
			[]string{"step", "outcome"},
		),

		TokensIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "provisioner_tokens_issued_total",
				Help: "Total number of embed tokens issued",
			},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),

		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}
}

// All record helpers tolerate a nil receiver so tests can run services
// without registering collectors.

// RecordResolve records a resolution attempt
func (m *Metrics) RecordResolve(module, outcome string, duration float64) {
	if m == nil {
		return
	}
	m.ResolvesTotal.WithLabelValues(module, outcome).Inc()
	m.ResolveDuration.WithLabelValues(module).Observe(duration)
}

// RecordResolveError records a resolution error
func (m *Metrics) RecordResolveError(module, errorType string) {
	if m == nil {
		return
	}
	m.ResolveErrors.WithLabelValues(module, errorType).Inc()
}

// RecordRemoteCall records one Metabase API call
func (m *Metrics) RecordRemoteCall(method, status string) {
	if m == nil {
		return
	}
	m.RemoteCalls.WithLabelValues(method, status).Inc()
}

// RecordCloneOutcome records the outcome of a permission clone sub-step
func (m *Metrics) RecordCloneOutcome(step, outcome string) {
	if m == nil {
		return
	}
	m.CloneOutcomes.WithLabelValues(step, outcome).Inc()
}

// RecordGroupCreated records a created tenant group
func (m *Metrics) RecordGroupCreated() {
	if m == nil {
		return
	}
	m.GroupsCreated.Inc()
}

// RecordCollectionCreated records a created tenant collection
func (m *Metrics) RecordCollectionCreated() {
	if m == nil {
		return
	}
	m.CollectionsCreated.Inc()
}

// RecordDashboardCopied records a requested dashboard copy
func (m *Metrics) RecordDashboardCopied() {
	if m == nil {
		return
	}
	m.DashboardsCopied.Inc()
}

// RecordOrphanedCopy records a dashboard copy abandoned after a lost race
func (m *Metrics) RecordOrphanedCopy() {
	if m == nil {
		return
	}
	m.OrphanedCopies.Inc()
}

// RecordTokenIssued records an issued embed token
func (m *Metrics) RecordTokenIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cacheType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cacheType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}
