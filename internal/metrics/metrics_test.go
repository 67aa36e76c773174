// ABOUTME: Tests for store metrics.
// ABOUTME: Validates counters, histograms, nil safety, and the HTTP handler.
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	m := New()

	m.RecordOperation("create_study", "ok", 5*time.Millisecond)
	m.RecordOperation("create_study", "ok", 5*time.Millisecond)
	m.RecordOperation("create_study", "conflict", time.Millisecond)

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_study", "ok")); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_study", "conflict")); got != 1 {
		t.Errorf("conflict count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.OperationDuration); n != 1 {
		t.Errorf("expected 1 histogram series, got %d", n)
	}
}

func TestRecordDataPointWrite(t *testing.T) {
	m := New()
	m.RecordDataPointWrite("insert")
	m.RecordDataPointWrite("upsert")
	m.RecordDataPointWrite("upsert")

	if got := testutil.ToFloat64(m.DataPointWritesTotal.WithLabelValues("upsert")); got != 2 {
		t.Errorf("upsert count = %v, want 2", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordOperation("x", "ok", time.Second)
	m.RecordDataPointWrite("insert")
	m.RecordProvision()
	m.RecordDeprovision()
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()
	a.RecordProvision()

	if got := testutil.ToFloat64(b.StudiesProvisioned); got != 0 {
		t.Errorf("registries should be independent, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordOperation("list_studies", "ok", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "commonspace_store_operations_total") {
		t.Error("expected operations counter in exposition output")
	}

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", health.StatusCode)
	}
}
