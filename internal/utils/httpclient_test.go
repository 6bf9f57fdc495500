package utils

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient() *HTTPClient {
	c := NewHTTPClient("test", 2*time.Second)
	c.retryDelay = 0
	return c
}

func TestPostJSONRetriesTransientOnce(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{name: "success", statuses: []int{200}, wantCalls: 1},
		{name: "503 then success", statuses: []int{503, 200}, wantCalls: 2},
		{name: "429 then success", statuses: []int{429, 200}, wantCalls: 2},
		{name: "two failures", statuses: []int{500, 502}, wantCalls: 2, wantErr: true},
		{name: "client error not retried", statuses: []int{400}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"ok":true}`))
			}))
			defer srv.Close()

			var out struct {
				OK bool `json:"ok"`
			}
			err := newTestClient().PostJSON(context.Background(), srv.URL, nil, map[string]string{"q": "x"}, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PostJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if !tt.wantErr && !out.OK {
				t.Error("response not decoded")
			}
		})
	}
}

func TestPostJSONGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"value":42}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	if err := newTestClient().PostJSON(context.Background(), srv.URL, nil, struct{}{}, &out); err != nil {
		t.Fatal(err)
	}
	if out.Value != 42 {
		t.Errorf("Value = %d, want 42", out.Value)
	}
}

func TestPostJSONBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient()
	var out map[string]interface{}
	for i := 0; i < 5; i++ {
		_ = c.PostJSON(context.Background(), srv.URL, nil, struct{}{}, &out)
	}

	err := c.PostJSON(context.Background(), srv.URL, nil, struct{}{}, &out)
	if !IsBreakerOpen(err) {
		t.Errorf("error after repeated failures = %v, want breaker open", err)
	}
}

func TestPostJSONCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]interface{}
	err := newTestClient().PostJSON(ctx, srv.URL, nil, struct{}{}, &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if IsTransient(err) {
		t.Error("canceled request must not be transient")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "500", err: &HTTPStatusError{StatusCode: 500}, want: true},
		{name: "429", err: &HTTPStatusError{StatusCode: 429}, want: true},
		{name: "404", err: &HTTPStatusError{StatusCode: 404}, want: false},
		{name: "network", err: &transportError{err: errors.New("connection refused")}, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
