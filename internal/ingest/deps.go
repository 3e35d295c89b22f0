package ingest

import (
	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/addr"
	"github.com/hydraverse/hyvedb/internal/events"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
	"github.com/hydraverse/hyvedb/internal/store"
)

// Deps bundles MakeBlock's collaborators so the function signature stays
// stable as the Poller and the Confirmation Tracker's fork-replay path both
// need to invoke it (spec §4.3, §4.4 case 1).
type Deps struct {
	Node     rpcclient.Node
	Explorer rpcclient.Explorer
	Registry *addr.Registry
	Store    *store.Store
	Events   *events.Queue
	Logger   *logrus.Logger
}
