package azrest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type widget struct {
	Count int      `json:"count"`
	Data  []string `json:"data"`
}

func newTestClient(t *testing.T, retries int, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-token",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.httpClient.RetryMax = retries
	return c, srv
}

func writeAzureError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":"transient failure"}}`, code)
}

func TestDo_RetrySuccessAfterTwoErrors(t *testing.T) {
	var attempts int32
	c, _ := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n <= 2 {
			writeAzureError(w, http.StatusInternalServerError, "BadThings")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"count":10,"data":[]}`)
	})

	req := Get[widget]("GetWidget", "/widget")
	got, err := Do(context.Background(), c, req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got.Count != 10 {
		t.Errorf("Count = %d, want 10", got.Count)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestDo_RetryExhaustion(t *testing.T) {
	var attempts int32
	c, _ := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeAzureError(w, http.StatusInternalServerError, "BadThings")
	})

	req := Get[widget]("GetWidget", "/widget")
	_, err := Do(context.Background(), c, req)
	if !IsAzureError(err) {
		t.Fatalf("expected AzureError, got %v", err)
	}
	if n := atomic.LoadInt32(&attempts); n != 6 {
		t.Errorf("attempts = %d, want 6", n)
	}
}

func TestDo_HTTPErrorWithoutEnvelopeIsFatal(t *testing.T) {
	var attempts int32
	c, _ := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "upstream on fire")
	})

	req := Get[widget]("GetWidget", "/widget")
	_, err := Do(context.Background(), c, req)
	var httpErr *HTTPError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asHTTPError(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("attempts = %d, want 1 (non-envelope errors are not retried)", n)
	}
}

func asHTTPError(err error, target **HTTPError) bool {
	he, ok := err.(*HTTPError)
	if ok {
		*target = he
	}
	return ok
}

func TestReq_AddParamsAndAPIVersion(t *testing.T) {
	req := Get[widget]("r", "/x").WithAPIVersion("2021-01-01").AddParams(map[string]string{"a": "1"})
	if req.APIVersion() != "2021-01-01" {
		t.Errorf("APIVersion = %q", req.APIVersion())
	}
	if req.Params()["a"] != "1" {
		t.Errorf("Params = %v", req.Params())
	}

	req2 := req.AddParams(map[string]string{"a": "2", "b": "3"})
	if req2.Params()["a"] != "2" || req2.Params()["b"] != "3" {
		t.Errorf("Params = %v", req2.Params())
	}
	// Original is unmodified (non-mutating combinator).
	if req.Params()["a"] != "1" {
		t.Errorf("original req mutated: %v", req.Params())
	}
}
