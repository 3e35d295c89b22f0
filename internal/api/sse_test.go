package api

import (
	"net/http/httptest"
	"testing"
)

func TestClaimantForQueryParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/sse/block?claimant=worker-1", nil)
	if got := claimantFor(r); got != "worker-1" {
		t.Errorf("claimantFor = %q, want worker-1", got)
	}
}

func TestClaimantForFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/sse/block", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	if got := claimantFor(r); got != "10.0.0.5:4321" {
		t.Errorf("claimantFor = %q, want 10.0.0.5:4321", got)
	}
}
