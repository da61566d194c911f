package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	m.ObserveCacheHit()
	m.ObserveDownload(10)
	m.ObserveCopy(10)
	m.ObserveStage(StageCopy, 0.5)
	m.IncFailure(StageRetrieve)
	m.MarkSuccess()

	if err := m.Push(context.Background(), "http://unused", "job"); err != nil {
		t.Errorf("Push on nil metrics = %v, want nil", err)
	}
	if m.Registry() != nil {
		t.Error("Registry on nil metrics should be nil")
	}
}

func TestCounters(t *testing.T) {
	m := New("test")

	m.ObserveCacheHit()
	m.ObserveDownload(100)
	m.ObserveDownload(50)
	m.ObserveCopy(150)
	m.ObserveCopy(20)
	m.IncFailure(StageRetrieve)

	if got := testutil.ToFloat64(m.CacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BytesDownloaded); got != 150 {
		t.Errorf("bytes downloaded = %v, want 150", got)
	}
	if got := testutil.ToFloat64(m.FilesFetched); got != 2 {
		t.Errorf("files fetched = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.BytesCopied); got != 170 {
		t.Errorf("bytes copied = %v, want 170", got)
	}
	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues(StageRetrieve)); got != 1 {
		t.Errorf("retrieve failures = %v, want 1", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	a := New("dup")
	b := New("dup")
	a.ObserveCopy(1)

	if got := testutil.ToFloat64(b.FilesFetched); got != 0 {
		t.Errorf("second instance shares state: files fetched = %v", got)
	}
}

func TestPush(t *testing.T) {
	var (
		mu     sync.Mutex
		path   string
		body   string
		method string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, method, body = r.URL.Path, r.Method, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New("test")
	m.ObserveCopy(42)

	if err := m.Push(context.Background(), srv.URL, "econ_job"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if !strings.HasPrefix(path, "/metrics/job/econ_job") {
		t.Errorf("path = %s, want /metrics/job/econ_job prefix", path)
	}
	if body == "" {
		t.Error("push body should not be empty")
	}
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := New("test")
	if err := m.Push(context.Background(), srv.URL, "job"); err == nil {
		t.Error("expected error from failing gateway")
	}
}
