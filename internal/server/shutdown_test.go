package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestServe_StopsOnContextAndClosesInReverse(t *testing.T) {
	m := NewManager(Config{Timeout: time.Second}, nil)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		m.RegisterFunc(name, func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, srv, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if len(order) != 3 || order[0] != "third" || order[2] != "first" {
		t.Errorf("close order = %v", order)
	}
	if !m.ShuttingDown() {
		t.Error("manager should report shutdown")
	}
}

func TestMiddleware_RejectsDuringShutdown(t *testing.T) {
	m := NewManager(Config{}, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.InFlight() != 1 {
			t.Errorf("in-flight = %d during request", m.InFlight())
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d before shutdown", rec.Code)
	}
	if m.InFlight() != 0 {
		t.Errorf("in-flight = %d after request", m.InFlight())
	}

	if err := m.Shutdown(context.Background(), nil); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d after shutdown", rec.Code)
	}
}

func TestShutdown_CollectsErrorsOnce(t *testing.T) {
	m := NewManager(Config{}, nil)
	boom := errors.New("boom")
	calls := 0
	m.RegisterFunc("db", func() error { calls++; return boom })
	m.RegisterFunc("cache", func() error { calls++; return nil })

	err := m.Shutdown(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if again := m.Shutdown(context.Background(), nil); !errors.Is(again, boom) {
		t.Errorf("second call returned %v", again)
	}
	if calls != 2 {
		t.Errorf("closers ran %d times", calls)
	}
}
