package rpcclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSelectorsMatchKnownERC20Values(t *testing.T) {
	// Well-known 4-byte selectors, verifiable against any ERC-20 ABI tool.
	if hex.EncodeToString(Erc20Selectors.Name[:]) != "06fdde03" {
		t.Errorf("name() selector = %x, want 06fdde03", Erc20Selectors.Name)
	}
	if hex.EncodeToString(Erc20Selectors.Symbol[:]) != "95d89b41" {
		t.Errorf("symbol() selector = %x, want 95d89b41", Erc20Selectors.Symbol)
	}
	if hex.EncodeToString(Erc20Selectors.TotalSupply[:]) != "18160ddd" {
		t.Errorf("totalSupply() selector = %x, want 18160ddd", Erc20Selectors.TotalSupply)
	}
	if hex.EncodeToString(Erc20Selectors.Decimals[:]) != "313ce567" {
		t.Errorf("decimals() selector = %x, want 313ce567", Erc20Selectors.Decimals)
	}
}

func TestNodeGetBlockCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getblockcount" {
			t.Fatalf("unexpected method %s", req.Method)
		}
		json.NewEncoder(w).Encode(rpcResponse{Result: json.RawMessage(`160388`)})
	}))
	defer srv.Close()

	n := NewNode(srv.URL, time.Second)
	h, err := n.GetBlockCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 160388 {
		t.Fatalf("got %d, want 160388", h)
	}
}

func TestNodeRpcErrorClassifiedValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rpcResponse{Error: &struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}{Code: -5, Message: "bad address"}})
	}))
	defer srv.Close()

	n := NewNode(srv.URL, time.Second)
	_, err := n.ValidateAddress(context.Background(), "not-an-address")
	var rerr *RpcError
	if !asRpcError(err, &rerr) {
		t.Fatalf("expected RpcError, got %v", err)
	}
	if rerr.Class != ClassValidation {
		t.Fatalf("expected ClassValidation, got %v", rerr.Class)
	}
}
