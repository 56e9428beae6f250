package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/countd/pkg/config"
	"github.com/hyp3rd/countd/pkg/server"
	"github.com/hyp3rd/countd/pkg/store"
)

// stubStore lets each test script the storage outcome.
type stubStore struct {
	count        int64
	currentErr   error
	incrementErr error
}

func (s *stubStore) Current(context.Context) (int64, error) {
	return s.count, s.currentErr
}

func (s *stubStore) Increment(context.Context) (int64, error) {
	if s.incrementErr != nil {
		return 0, s.incrementErr
	}

	s.count++

	return s.count, nil
}

func (s *stubStore) Probe(context.Context) error { return nil }

func (s *stubStore) Close() error { return nil }

type stubHealth struct {
	healthy bool
}

func (h stubHealth) Healthy() bool { return h.healthy }

func newTestServer(counter store.Store, health server.HealthReporter) *server.Server {
	cfg := config.DefaultConfig()
	cfg.Service.Version = "test"

	return server.New(cfg, counter, health, nil)
}

func do(t *testing.T, handler http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var body map[string]any

	err := json.Unmarshal(rr.Body.Bytes(), &body)
	if err != nil {
		t.Fatalf("response body is not valid JSON: %v (%q)", err, rr.Body.String())
	}

	return rr, body
}

func TestCounterReadAndIncrement(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{}, stubHealth{healthy: true})
	handler := srv.Handler()

	rr, body := do(t, handler, http.MethodGet, "/")
	if rr.Code != http.StatusOK || body["count"] != float64(0) {
		t.Fatalf("fresh read: status %d body %v", rr.Code, body)
	}

	for want := 1; want <= 3; want++ {
		rr, body = do(t, handler, http.MethodPost, "/")
		if rr.Code != http.StatusOK || body["count"] != float64(want) {
			t.Fatalf("increment %d: status %d body %v", want, rr.Code, body)
		}
	}

	rr, body = do(t, handler, http.MethodGet, "/")
	if rr.Code != http.StatusOK || body["count"] != float64(3) {
		t.Fatalf("read after increments: status %d body %v", rr.Code, body)
	}
}

func TestIncrementLockTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{count: 7, incrementErr: store.ErrLockTimeout}, nil)

	rr, body := do(t, srv.Handler(), http.MethodPost, "/")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("lock timeout should map to 503, got %d", rr.Code)
	}

	if body["error"] == nil || body["count"] != nil {
		t.Fatalf("expected error body without a count, got %v", body)
	}
}

func TestStorageFailureMapsTo500(t *testing.T) {
	t.Parallel()

	ioErr := ewrap.New("disk exploded: /data/counter.json")
	srv := newTestServer(&stubStore{currentErr: ioErr, incrementErr: ioErr}, nil)
	handler := srv.Handler()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr, body := do(t, handler, method, "/")
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s storage failure should map to 500, got %d", method, rr.Code)
		}

		// Raw error text must never leak to callers.
		if body["error"] == "disk exploded: /data/counter.json" {
			t.Fatalf("raw storage error leaked to the caller: %v", body)
		}
	}
}

func TestCorruptStateMapsTo503(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{currentErr: store.ErrCorruptState, incrementErr: store.ErrCorruptState}, nil)
	handler := srv.Handler()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr, _ := do(t, handler, method, "/")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s on corrupt state should map to 503, got %d", method, rr.Code)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{}, stubHealth{healthy: true})

	rr, body := do(t, srv.Handler(), http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthy: status %d body %v", rr.Code, body)
	}

	srv = newTestServer(&stubStore{}, stubHealth{healthy: false})

	rr, body = do(t, srv.Handler(), http.MethodGet, "/healthz")
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Fatalf("unhealthy: status %d body %v", rr.Code, body)
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{currentErr: store.ErrCorruptState}, stubHealth{healthy: false})

	// Version is served even when storage is down.
	rr, body := do(t, srv.Handler(), http.MethodGet, "/version")
	if rr.Code != http.StatusOK || body["version"] != "test" {
		t.Fatalf("version: status %d body %v", rr.Code, body)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{count: 5}, nil)

	rr, body := do(t, srv.Handler(), http.MethodGet, "/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	if body["count"] != nil {
		t.Fatalf("unknown path must not serve the counter: %v", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStore{}, nil)

	rr, _ := do(t, srv.Handler(), http.MethodDelete, "/")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
