package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hydraverse/hyvedb/internal/events"
	"github.com/hydraverse/hyvedb/internal/metrics"
	"github.com/hydraverse/hyvedb/internal/model"
)

const sseClaimBatchSize = 50

// handleSSETrigger backs GET /sse/block/{block_pk}/{create|mature} (spec
// §6): an internal re-enqueue endpoint, independent of the ingestion
// pipeline's own EnqueueBlockEvent, used to replay an already-stored block's
// event from persisted state (e.g. after a manual fix-up).
func (s *Server) handleSSETrigger(w http.ResponseWriter, r *http.Request) {
	blockID, ok := parseID(w, chi.URLParam(r, "block_pk"))
	if !ok {
		return
	}

	var sseEvent model.BlockSSEEvent
	switch chi.URLParam(r, "kind") {
	case "create":
		sseEvent = model.SSECreate
	case "mature":
		sseEvent = model.SSEMature
	default:
		badRequest(w, "kind must be create or mature")
		return
	}

	result, err := buildBlockSSEResult(r.Context(), s.Store, blockID, sseEvent)
	if err != nil {
		httpError(w, err)
		return
	}

	payload, err := model.MarshalValue(result)
	if err != nil {
		httpError(w, err)
		return
	}

	e, err := s.Events.Append(r.Context(), model.EventBlockCreate, payload)
	if err != nil {
		httpError(w, err)
		return
	}

	// The payload was marshalled before the row existed, so result.ID is
	// still zero; patch in the real, server-assigned id now (mirrors
	// ingest.EnqueueBlockEvent).
	result.ID = e.ID
	finalPayload, err := model.MarshalValue(result)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := s.Events.SetPayload(r.Context(), e.ID, finalPayload); err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, struct {
		ID int64 `json:"id"`
	}{ID: e.ID})
}

// handleSSEStream returns the handler for GET /sse/block (limit 0, runs
// until the client disconnects) and GET /sse/block/next (limit 1, closes
// after the first delivered event) — spec §4.6's gated claim loop.
func (s *Server) handleSSEStream(limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()
		claimant := claimantFor(r)

		gate := events.NewGate()
		wake := make(chan model.EventKind, 1)
		sub := s.Events.Subscribe(wake)
		defer sub.Unsubscribe()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-wake:
					gate.Signal()
				case <-sub.Err():
					return
				}
			}
		}()

		metrics.SSEConnections.Inc()
		defer metrics.SSEConnections.Dec()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sent := 0
		for {
			if err := gate.Wait(ctx); err != nil {
				return
			}

			batch, err := s.Events.ClaimBatch(ctx, model.EventBlockCreate, claimant, sseClaimBatchSize)
			if err != nil {
				s.Logger.WithError(err).Warn("api: sse claim batch failed")
				continue
			}

			for _, e := range batch {
				fmt.Fprintf(w, "event: block\nretry: 30000\ndata: %s\n\n", e.Payload.Raw())
				flusher.Flush()
				sent++
				if limit > 0 && sent >= limit {
					return
				}
			}

			if ctx.Err() != nil {
				return
			}
		}
	}
}

// claimantFor derives the event-claim identity for an SSE connection: an
// explicit ?claimant= query param, else the caller's remote address.
func claimantFor(r *http.Request) string {
	if c := r.URL.Query().Get("claimant"); c != "" {
		return c
	}
	return r.RemoteAddr
}
