package rpcclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExplorerGetBlockByHeightNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	exp := NewExplorer(srv.URL, time.Second)
	_, err := exp.GetBlockByHeight(context.Background(), 100)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected ClassNotFound, got %v", err)
	}
}

func TestExplorerGetBlockByHeightOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/block/100" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"height":100,"hash":"abc"}`))
	}))
	defer srv.Close()

	exp := NewExplorer(srv.URL, time.Second)
	raw, err := exp.GetBlockByHeight(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected non-empty payload")
	}
}

func TestExplorerServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	exp := NewExplorer(srv.URL, time.Second)
	_, err := exp.GetTx(context.Background(), "deadbeef")
	var rerr *RpcError
	if !asRpcError(err, &rerr) {
		t.Fatalf("expected RpcError, got %v", err)
	}
	if rerr.Class != ClassTransient {
		t.Fatalf("expected ClassTransient, got %v", rerr.Class)
	}
}
