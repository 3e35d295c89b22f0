package events

import (
	"context"
	"testing"
	"time"
)

func TestNewGateStartsSignalled(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait on a fresh gate: %v", err)
	}
}

func TestGateCoalescesSignals(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("drain initial signal: %v", err)
	}

	g.Signal()
	g.Signal()
	g.Signal()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait after signals: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if err := g.Wait(ctx2); err == nil {
		t.Fatal("expected Wait to block after a single drain of coalesced signals")
	}
}

func TestGateWaitRespectsCancellation(t *testing.T) {
	g := &Gate{ch: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err == nil {
		t.Fatal("expected Wait to return the context error on an unsignalled gate")
	}
}
