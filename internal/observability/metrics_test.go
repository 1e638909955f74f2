package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.ObserveLookup("music", 200, true, 12*time.Millisecond)
	metrics.ObserveLookup("music", 404, false, 3*time.Millisecond)
	metrics.ObserveRateLimited("music")
	metrics.ObserveIndex("music", 7, 2)

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("expected metrics gather to succeed: %v", err)
	}
	if got := testutil.ToFloat64(metrics.lookupsTotal.WithLabelValues("music", "200")); got != 1 {
		t.Fatalf("expected 1 ok lookup, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.cacheHitsTotal.WithLabelValues("music")); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.indexFilesTotal.WithLabelValues("music")); got != 7 {
		t.Fatalf("expected 7 indexed files, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.indexProblemsTotal.WithLabelValues("music")); got != 2 {
		t.Fatalf("expected 2 problems, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveLookup("music", 200, false, time.Millisecond)
	metrics.ObserveRateLimited("music")
	metrics.ObserveIndex("music", 1, 0)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg).ObserveRateLimited("books")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `metapath_ratelimit_hits_total{library="books"} 1`) {
		t.Fatalf("expected rate limit counter in output, got:\n%s", body)
	}
}
