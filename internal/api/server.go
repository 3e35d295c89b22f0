// Package api implements the HTTP request surface described in spec §6:
// thin CRUD over the subscription model, the aggregate stats endpoint, the
// internal event-enqueue trigger, and the SSE broadcaster (spec §4.6).
// Routing follows github.com/go-chi/chi/v5, already a direct teacher
// dependency reserved for this layer; error mapping follows the teacher's
// http.Error(w, err.Error(), code) idiom used throughout
// cmd/xchainserver/walletserver.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/addr"
	"github.com/hydraverse/hyvedb/internal/events"
	"github.com/hydraverse/hyvedb/internal/store"
)

// Server wires the HTTP surface against the shared store, address registry
// and event queue. One Server is created per process, shared by cmd/hyved's
// http.Server and any tests that drive it with httptest.
type Server struct {
	Store    *store.Store
	Registry *addr.Registry
	Events   *events.Queue
	Mainnet  bool
	Logger   *logrus.Logger
}

// NewServer wires a Server. lg may be nil, in which case the standard
// logrus logger is used (matching the teacher's NewX(...) constructor
// idiom throughout core/ and internal/store).
func NewServer(st *store.Store, reg *addr.Registry, evq *events.Queue, mainnet bool, lg *logrus.Logger) *Server {
	if lg == nil {
		lg = logrus.StandardLogger()
	}
	return &Server{Store: st, Registry: reg, Events: evq, Mainnet: mainnet, Logger: lg}
}

// Router builds the chi.Mux exposing every endpoint in spec §6 plus the
// §4.8 expansion additions.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/server/info", s.handleServerInfo)
	r.Get("/stats", s.handleStats)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/sse/block/{block_pk}/{kind}", s.handleSSETrigger)
	r.Get("/sse/block", s.handleSSEStream(0))
	r.Get("/sse/block/next", s.handleSSEStream(1))

	r.Route("/u", func(r chi.Router) {
		r.Post("/", s.handleCreateUser)
		r.Get("/{pk}", s.handleGetUser)
		r.Get("/tg/{tgid}", s.handleGetUserByHandle)
		r.Delete("/{pk}", s.handleDeleteUser)
		r.Put("/{pk}/info", s.handlePutUserInfo)
		r.Put("/{pk}/data", s.handlePutUserData)

		r.Get("/{pk}/a/", s.handleListSubs)
		r.Get("/{pk}/a/{addr}", s.handleGetSub)
		r.Post("/{pk}/a/", s.handleAddSub)
		r.Patch("/{pk}/a/{ua}", s.handlePatchSub)
		r.Delete("/{pk}/a/{ua}", s.handleDeleteSub)
		r.Get("/{pk}/a/{ua}/h", s.handleListSubHist)

		r.Post("/{pk}/a/{ua}/t", s.handleAddToken)
		r.Delete("/{pk}/a/{ua}/t/{addr}", s.handleRemoveToken)
	})

	return r
}
