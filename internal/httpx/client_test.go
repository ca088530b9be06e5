package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	var out struct {
		Status string `json:"status"`
	}
	if err := c.PostJSON(context.Background(), srv.URL, map[string]string{"id": "a"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.Status != "ok" {
		t.Fatalf("expected status ok, got %q", out.Status)
	}
}

func TestPostJSONNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	if err := c.PostJSON(context.Background(), srv.URL, nil, nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"role":"slave"}`))
	}))
	defer srv.Close()

	c := New(time.Second)
	var out struct {
		Role string `json:"role"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Role != "slave" {
		t.Fatalf("expected role slave, got %q", out.Role)
	}
}
