package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	lookupsTotal       *prometheus.CounterVec
	cacheHitsTotal     *prometheus.CounterVec
	ratelimitHitsTotal *prometheus.CounterVec
	indexFilesTotal    *prometheus.CounterVec
	indexProblemsTotal *prometheus.CounterVec
	lookupDuration     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "metapath_lookups_total", Help: "Total lookups"},
			[]string{"library", "status"},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "metapath_cache_hits_total", Help: "Total lookups served from cache"},
			[]string{"library"},
		),
		ratelimitHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "metapath_ratelimit_hits_total", Help: "Total rate limited requests"},
			[]string{"library"},
		),
		indexFilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "metapath_index_files_total", Help: "Total meta files indexed"},
			[]string{"library"},
		),
		indexProblemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "metapath_index_problems_total", Help: "Total meta files that failed to index"},
			[]string{"library"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metapath_lookup_duration_seconds",
				Help:    "Lookup duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"library"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.lookupsTotal,
		m.cacheHitsTotal,
		m.ratelimitHitsTotal,
		m.indexFilesTotal,
		m.indexProblemsTotal,
		m.lookupDuration,
	)

	return m
}

// Handler serves the metrics of reg, or of the default registry when reg
// is nil.
func Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLookup(library string, status int, cacheHit bool, took time.Duration) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(library, strconv.Itoa(status)).Inc()
	m.lookupDuration.WithLabelValues(library).Observe(took.Seconds())
	if cacheHit {
		m.cacheHitsTotal.WithLabelValues(library).Inc()
	}
}

func (m *Metrics) ObserveRateLimited(library string) {
	if m == nil {
		return
	}
	m.ratelimitHitsTotal.WithLabelValues(library).Inc()
}

func (m *Metrics) ObserveIndex(library string, files, problems int) {
	if m == nil {
		return
	}
	m.indexFilesTotal.WithLabelValues(library).Add(float64(files))
	m.indexProblemsTotal.WithLabelValues(library).Add(float64(problems))
}
