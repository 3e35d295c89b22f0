package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hydraverse/hyvedb/internal/model"
)

// handleCreateUser backs POST /u/ (spec §6): {"handle": "..."} -> User.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Handle string `json:"handle"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.Handle == "" {
		badRequest(w, "handle is required")
		return
	}

	u, err := s.Store.User.Create(r.Context(), body.Handle)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, u)
}

// handleGetUser backs GET /u/{pk}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}
	u, found, err := s.Store.User.GetByID(r.Context(), id)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "user")
		return
	}
	writeJSON(w, u)
}

// handleGetUserByHandle backs GET /u/tg/{tgid}.
func (s *Server) handleGetUserByHandle(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "tgid")
	u, found, err := s.Store.User.GetByHandle(r.Context(), handle)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "user")
		return
	}
	writeJSON(w, u)
}

// handleDeleteUser backs DELETE /u/{pk}.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}
	if err := s.Store.User.Delete(r.Context(), id); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePutUserInfo backs PUT /u/{pk}/info. The `over` query flag selects
// whether the posted object overwrites the stored info blob wholesale or is
// shallow-merged into it (spec §6 "info/data update semantics").
func (s *Server) handlePutUserInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}

	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid body")
		return
	}

	u, found, err := s.Store.User.GetByID(r.Context(), id)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "user")
		return
	}

	merged := patch
	if r.URL.Query().Get("over") != "1" {
		var existing map[string]any
		if err := u.Info.Clone(&existing); err != nil {
			httpError(w, err)
			return
		}
		if existing == nil {
			existing = map[string]any{}
		}
		for k, v := range patch {
			existing[k] = v
		}
		merged = existing
	}

	j, err := model.MarshalValue(merged)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := s.Store.User.UpdateInfo(r.Context(), id, j); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, merged)
}

// handlePutUserData backs PUT /u/{pk}/data (spec §4.8 expansion): the
// caller-opaque data blob, always overwritten wholesale (no merge semantics,
// since it is never read or interpreted by the service).
func (s *Server) handlePutUserData(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "pk"))
	if !ok {
		return
	}

	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		badRequest(w, "invalid body")
		return
	}
	j, err := model.MarshalValue(raw)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := s.Store.User.UpdateData(r.Context(), id, j); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, raw)
}
