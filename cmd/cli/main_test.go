package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPush(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotKey = r.URL.EscapedPath(), r.Header.Get("X-API-Key")
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := push(context.Background(), srv.Client(), srv.URL+"/", "pub", "nightly backup"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if gotPath != "/api/heartbeat/nightly%20backup" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "pub" {
		t.Fatalf("api key not sent, got %q", gotKey)
	}
}

func TestPush_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"heartbeat monitor not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	err := push(context.Background(), srv.Client(), srv.URL, "", "missing")
	if err == nil || !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("want 404 error with body, got %v", err)
	}
}
