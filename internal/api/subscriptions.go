package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/store"
)

const defaultSubHistLimit = 100

// handleListSubs backs GET /u/{pk}/a/ (spec §4.8 expansion), paginated by
// a trailing `after` id (rows with a larger id, ascending) and `limit`.
func (s *Server) handleListSubs(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}
	after := parseAfter(r)
	limit := parseLimit(r, defaultSubHistLimit)

	subs, err := s.Store.UserAddr.ListByUser(r.Context(), userID, after, limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, subs)
}

// handleGetSub backs GET /u/{pk}/a/{addr}, looked up by address (hex or
// base-36), not by subscription id.
func (s *Server) handleGetSub(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}
	raw := chi.URLParam(r, "addr")

	a, err := s.Registry.Get(r.Context(), raw, 0, false)
	if err != nil {
		httpError(w, err)
		return
	}
	if a == nil {
		notFound(w, "address")
		return
	}

	sub, found, err := s.Store.UserAddr.GetByUserAndAddr(r.Context(), userID, a.ID)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "subscription")
		return
	}
	writeJSON(w, sub)
}

// handleAddSub backs POST /u/{pk}/a/: {"addr": "...", "name": "...",
// "info": {...}}. A subscription left unnamed gets a generated placeholder
// (spec §3 UserAddr.Name has no default; the CLI/API boundary supplies one).
func (s *Server) handleAddSub(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}

	var body struct {
		Addr string         `json:"addr"`
		Name string         `json:"name"`
		Info map[string]any `json:"info"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.Addr == "" {
		badRequest(w, "addr is required")
		return
	}

	if body.Name == "" {
		body.Name = "sub" + uuid.New().String()[:8]
	}
	if !validName(body.Name) {
		badRequest(w, "name must be at least 5 printable, non-punctuation characters")
		return
	}

	a, err := s.Registry.Get(r.Context(), body.Addr, 0, true)
	if err != nil {
		httpError(w, err)
		return
	}

	sub, err := s.Store.UserAddr.Create(r.Context(), userID, a.ID, body.Name)
	if err != nil {
		httpError(w, err)
		return
	}

	if body.Info != nil {
		j, err := model.MarshalValue(body.Info)
		if err != nil {
			httpError(w, err)
			return
		}
		if err := s.Store.UserAddr.Update(r.Context(), sub.ID, nil, &j, nil); err != nil {
			httpError(w, err)
			return
		}
		sub.Info = j
	}

	writeJSON(w, sub)
}

// handlePatchSub backs PATCH /u/{pk}/a/{ua}: any of name/info/data.
func (s *Server) handlePatchSub(w http.ResponseWriter, r *http.Request) {
	uaID, ok := parseID(w, chi.URLParam(r, "ua"))
	if !ok {
		return
	}

	var body struct {
		Name *string        `json:"name"`
		Info map[string]any `json:"info"`
		Data map[string]any `json:"data"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.Name != nil && !validName(*body.Name) {
		badRequest(w, "name must be at least 5 printable, non-punctuation characters")
		return
	}

	var infoPtr, dataPtr *model.JSON
	if body.Info != nil {
		j, err := model.MarshalValue(body.Info)
		if err != nil {
			httpError(w, err)
			return
		}
		infoPtr = &j
	}
	if body.Data != nil {
		j, err := model.MarshalValue(body.Data)
		if err != nil {
			httpError(w, err)
			return
		}
		dataPtr = &j
	}

	if err := s.Store.UserAddr.Update(r.Context(), uaID, body.Name, infoPtr, dataPtr); err != nil {
		httpError(w, err)
		return
	}

	sub, found, err := s.Store.UserAddr.GetByID(r.Context(), uaID)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "subscription")
		return
	}
	writeJSON(w, sub)
}

// handleDeleteSub backs DELETE /u/{pk}/a/{ua}. Removing the last subscriber
// of an address orphans it: cascade-delete its histories and any now-empty
// matured blocks (spec §3 ownership note).
func (s *Server) handleDeleteSub(w http.ResponseWriter, r *http.Request) {
	uaID, ok := parseID(w, chi.URLParam(r, "ua"))
	if !ok {
		return
	}

	sub, found, err := s.Store.UserAddr.GetByID(r.Context(), uaID)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "subscription")
		return
	}

	if err := s.Store.UserAddr.Delete(r.Context(), uaID); err != nil {
		httpError(w, err)
		return
	}

	n, err := s.Store.Addr.SubscriberCount(r.Context(), sub.AddrID)
	if err != nil {
		s.Logger.WithError(err).Warn("api: subscriber count check after delete failed")
	} else if n == 0 {
		if err := store.CascadeOrphanAddress(r.Context(), s.Store, sub.AddrID); err != nil {
			s.Logger.WithError(err).Warn("api: cascade orphan address failed")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListSubHist backs GET /u/{pk}/a/{ua}/h (spec §4.8 expansion):
// paginated UserAddrHist checkpoints for one subscription.
func (s *Server) handleListSubHist(w http.ResponseWriter, r *http.Request) {
	uaID, ok := parseID(w, chi.URLParam(r, "ua"))
	if !ok {
		return
	}
	after := parseAfter(r)
	limit := parseLimit(r, defaultSubHistLimit)

	hist, err := s.Store.Hist.Paginated(r.Context(), uaID, after, limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, hist)
}

// handleAddToken backs POST /u/{pk}/a/{ua}/t: {"addr": "..."}.
func (s *Server) handleAddToken(w http.ResponseWriter, r *http.Request) {
	uaID, ok := parseID(w, chi.URLParam(r, "ua"))
	if !ok {
		return
	}
	var body struct {
		Addr string `json:"addr"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Addr == "" {
		badRequest(w, "addr is required")
		return
	}

	a, err := s.Registry.Get(r.Context(), body.Addr, 0, true)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := s.Store.UserAddr.AddWatchedToken(r.Context(), uaID, a.Hex); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveToken backs DELETE /u/{pk}/a/{ua}/t/{addr}.
func (s *Server) handleRemoveToken(w http.ResponseWriter, r *http.Request) {
	uaID, ok := parseID(w, chi.URLParam(r, "ua"))
	if !ok {
		return
	}
	raw := chi.URLParam(r, "addr")

	a, err := s.Registry.Get(r.Context(), raw, 0, false)
	if err != nil {
		httpError(w, err)
		return
	}
	if a == nil {
		notFound(w, "address")
		return
	}
	if err := s.Store.UserAddr.RemoveWatchedToken(r.Context(), uaID, a.Hex); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseAfter(r *http.Request) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseLimit(r *http.Request, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
