package api

import "net/http"

// handleServerInfo backs GET /server/info (spec §6): {mainnet: bool}.
func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Mainnet bool `json:"mainnet"`
	}{Mainnet: s.Mainnet})
}

// handleStats backs GET /stats (spec §6): the latest chain-wide snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stat, found, err := s.Store.Stat.Latest(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		notFound(w, "stats")
		return
	}
	writeJSON(w, stat)
}
