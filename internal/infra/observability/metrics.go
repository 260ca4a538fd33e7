package observability

import (
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the portfolio service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	receipts          *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	portfolioValue    *prometheus.GaugeVec
	portfolioCount    *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carteira_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carteira_store_errors_total",
				Help: "Total failed store calls by action.",
			},
			[]string{"action"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carteira_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carteira_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		receipts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carteira_receipts_total",
				Help: "Receipts processed by kind (settlement, extension, reversal).",
			},
			[]string{"kind"},
		),
		statusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carteira_status_transitions_total",
				Help: "Operation status changes applied.",
			},
			[]string{"from", "to"},
		),
		portfolioValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "carteira_portfolio_value_brl",
				Help: "Portfolio totals from the last computed snapshot.",
			},
			[]string{"metric"},
		),
		portfolioCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "carteira_portfolio_operations",
				Help: "Operations per effective status in the last computed snapshot.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(action string) {
	m.storeErrors.WithLabelValues(action).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReceipt counts a processed receipt of the given kind.
func (m *Metrics) IncrReceipt(kind string) {
	m.receipts.WithLabelValues(kind).Inc()
}

// IncrStatusTransition counts an applied status change.
func (m *Metrics) IncrStatusTransition(from, to domain.Status) {
	m.statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveSnapshot exports the totals of a freshly computed snapshot as gauges.
func (m *Metrics) ObserveSnapshot(s domain.Snapshot) {
	m.portfolioValue.WithLabelValues("active_capital").Set(s.ActiveCapital.Float64())
	m.portfolioValue.WithLabelValues("interest_to_receive").Set(s.InterestToReceive.Float64())
	m.portfolioValue.WithLabelValues("total_receivables").Set(s.TotalReceivables.Float64())
	m.portfolioValue.WithLabelValues("delinquency").Set(s.DelinquencyValue.Float64())
	for _, d := range s.Distribution {
		m.portfolioCount.WithLabelValues(string(d.Status)).Set(float64(d.Count))
	}
}

// transitionPairs are the status changes reported by GetCarteiraSnapshot.
var transitionPairs = [][2]domain.Status{
	{domain.StatusAberto, domain.StatusPago},
	{domain.StatusAtrasado, domain.StatusPago},
	{domain.StatusAtrasado, domain.StatusAberto},
	{domain.StatusPago, domain.StatusAberto},
	{domain.StatusPago, domain.StatusAtrasado},
}

// GetCarteiraSnapshot returns a summary of the counters suitable for the
// GET /v1/metrics/carteira endpoint.
func (m *Metrics) GetCarteiraSnapshot() *domain.CarteiraMetrics {
	transitions := make(map[string]int64, len(transitionPairs))
	for _, p := range transitionPairs {
		v := getCounterValue(m.statusTransitions, string(p[0]), string(p[1]))
		if v > 0 {
			transitions[string(p[0])+"->"+string(p[1])] = int64(v)
		}
	}

	hits := getCounterValue(m.cacheHits, "snapshot")
	misses := getCounterValue(m.cacheMisses, "snapshot")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.CarteiraMetrics{
		ReceiptsApplied:    int64(getCounterValue(m.receipts, "settlement")),
		ExtensionsApplied:  int64(getCounterValue(m.receipts, "extension")),
		ReceiptsReversed:   int64(getCounterValue(m.receipts, "reversal")),
		StatusTransitions:  transitions,
		StoreErrors:        int64(sumCounter(m.storeErrors)),
		SnapshotCacheRatio: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()
	total := 0.0
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
