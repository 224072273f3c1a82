package server

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HandleHealth(context.Background()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != `{"status": "ok"}` {
		t.Fatalf("got %q", got)
	}
}

func TestServeHTTPStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv, err := New("0")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ServeHTTP(ctx, &http.Server{Handler: HandleHealth(ctx)})
	}()

	resp, err := http.Get("http://127.0.0.1:" + srv.Port() + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := ioutil.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		t.Fatalf("got %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
