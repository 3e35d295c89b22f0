package ingest

import (
	"errors"
	"net/http"
	"testing"

	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
)

func TestClassifyDelayNotFoundIsShort(t *testing.T) {
	err := &rpcclient.RpcError{Status: http.StatusNotFound, Class: rpcclient.ClassNotFound}
	if got := classifyDelay(err); got != retryNotIndexed {
		t.Fatalf("classifyDelay(not found) = %v, want %v", got, retryNotIndexed)
	}
}

func TestClassifyDelayOtherRpcErrorIsLonger(t *testing.T) {
	err := &rpcclient.RpcError{Status: http.StatusInternalServerError, Class: rpcclient.ClassTransient}
	if got := classifyDelay(err); got != retryRPC {
		t.Fatalf("classifyDelay(transient) = %v, want %v", got, retryRPC)
	}
}

func TestClassifyDelayNonRpcErrorFallsBackToRPC(t *testing.T) {
	if got := classifyDelay(errors.New("boom")); got != retryRPC {
		t.Fatalf("classifyDelay(plain error) = %v, want %v", got, retryRPC)
	}
}

func TestMustMarshalBlockInfoRoundTrips(t *testing.T) {
	p := &explorerBlockPayload{Miner: "QMiner", Time: 1234}
	j := mustMarshalBlockInfo(p)
	if j.Raw() == nil {
		t.Fatal("expected non-nil marshalled payload")
	}
	var got model.BlockInfo
	if err := j.Clone(&got); err != nil {
		t.Fatalf("decode marshalled payload: %v", err)
	}
	if got.Miner != "QMiner" || got.Time != 1234 {
		t.Fatalf("round trip = %+v, want Miner QMiner, Time 1234", got)
	}
}
