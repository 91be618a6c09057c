package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot aggregates lightweight counters for API consumption.
type MetricsSnapshot struct {
	RequestCount        uint64  `json:"request_count"`
	AvgRequestMillis    float64 `json:"avg_request_ms"`
	CacheHitRatio       float64 `json:"cache_hit_ratio"`
	BidsSubmitted       uint64  `json:"bids_submitted"`
	BidsAutoAccepted    uint64  `json:"bids_auto_accepted"`
	CapacityRejections  uint64  `json:"capacity_rejections"`
	RequestsExpired     uint64  `json:"requests_expired"`
	PaymentsFailed      uint64  `json:"payments_failed"`
}

// MetricsService encapsulates Prometheus instrumentation for the booking
// engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	bidsSubmitted      prometheus.Counter
	bidsAutoAccepted   prometheus.Counter
	capacityRejections prometheus.Counter
	requestsExpired    prometheus.Counter
	paymentsFailed     prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	bidCount             uint64
	autoAcceptCount      uint64
	capacityRejectCount  uint64
	expiredCount         uint64
	paymentFailCount     uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	bidsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bids_submitted_total",
		Help: "Total booking requests submitted",
	})

	bidsAutoAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bids_auto_accepted_total",
		Help: "Total booking requests auto-accepted by price rules",
	})

	capacityRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_rejections_total",
		Help: "Total reservations refused because a slot was at capacity",
	})

	requestsExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "requests_expired_total",
		Help: "Total pending booking requests expired by the sweep",
	})

	paymentsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total payment failures or timeouts reported by the provider",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio,
		cacheHits, cacheMisses, bidsSubmitted, bidsAutoAccepted, capacityRejections, requestsExpired,
		paymentsFailed, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		bidsSubmitted:      bidsSubmitted,
		bidsAutoAccepted:   bidsAutoAccepted,
		capacityRejections: capacityRejections,
		requestsExpired:    requestsExpired,
		paymentsFailed:     paymentsFailed,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordBidSubmitted counts an incoming booking request.
func (m *MetricsService) RecordBidSubmitted() {
	if m == nil {
		return
	}
	m.bidsSubmitted.Inc()
	atomic.AddUint64(&m.bidCount, 1)
}

// RecordAutoAccept counts a price-rule auto-acceptance.
func (m *MetricsService) RecordAutoAccept() {
	if m == nil {
		return
	}
	m.bidsAutoAccepted.Inc()
	atomic.AddUint64(&m.autoAcceptCount, 1)
}

// RecordCapacityRejection counts a reservation refused at capacity.
func (m *MetricsService) RecordCapacityRejection() {
	if m == nil {
		return
	}
	m.capacityRejections.Inc()
	atomic.AddUint64(&m.capacityRejectCount, 1)
}

// RecordExpired counts requests expired by the sweep.
func (m *MetricsService) RecordExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.requestsExpired.Add(float64(n))
	atomic.AddUint64(&m.expiredCount, uint64(n))
}

// RecordPaymentFailure counts a failed or timed-out payment.
func (m *MetricsService) RecordPaymentFailure() {
	if m == nil {
		return
	}
	m.paymentsFailed.Inc()
	atomic.AddUint64(&m.paymentFailCount, 1)
}

// Snapshot returns aggregated metrics suitable for API consumption.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestCount:       requests,
		AvgRequestMillis:   avgRequestMs,
		CacheHitRatio:      cacheRatio,
		BidsSubmitted:      atomic.LoadUint64(&m.bidCount),
		BidsAutoAccepted:   atomic.LoadUint64(&m.autoAcceptCount),
		CapacityRejections: atomic.LoadUint64(&m.capacityRejectCount),
		RequestsExpired:    atomic.LoadUint64(&m.expiredCount),
		PaymentsFailed:     atomic.LoadUint64(&m.paymentFailCount),
	}
}
