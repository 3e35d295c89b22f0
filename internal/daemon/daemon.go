// Package daemon wires the indexing and notification service's long-running
// components (spec §2, §5): the store, the block poller, the confirmation
// tracker, the event queue's purge ticker, and the HTTP+SSE server. It is
// the shared body behind both cmd/hyved (runs it directly) and cmd/hyveadm's
// `serve` subcommand (runs it under operator tooling).
package daemon

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/addr"
	"github.com/hydraverse/hyvedb/internal/api"
	"github.com/hydraverse/hyvedb/internal/config"
	"github.com/hydraverse/hyvedb/internal/confirm"
	"github.com/hydraverse/hyvedb/internal/events"
	"github.com/hydraverse/hyvedb/internal/ingest"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
	"github.com/hydraverse/hyvedb/internal/store"
	"github.com/hydraverse/hyvedb/pkg/utils"
)

const rpcTimeout = 30 * time.Second

// Run loads cfgPath, wires every component and blocks until ctx is
// cancelled, then drains everything under a bounded shutdown grace period.
// Grounded on the teacher's SyncManager quit-channel idiom: one manual
// sync.WaitGroup around the purge ticker and the HTTP server (the poller
// runs the confirmation sweep inline on its own goroutine, see below)
// rather than golang.org/x/sync/errgroup, which the teacher and the rest
// of the pack never import for this kind of top-level supervision
// (spec §5 expansion).
func Run(ctx context.Context, cfgPath string, logger *logrus.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	st, err := store.NewStore(ctx, cfg.DB.URL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(cfg.DB.URL); err != nil {
		return err
	}

	node := rpcclient.NewNode(cfg.HydraRPC.URL, rpcTimeout)
	explorer := rpcclient.NewExplorer(cfg.HyDbClient.URL, rpcTimeout)

	registry, err := addr.NewRegistry(st.Addr, node, explorer, addr.Config{})
	if err != nil {
		return err
	}

	evq := events.NewQueue(st.Event)
	tracker := confirm.New(node, explorer, registry, st, evq, logger)

	// Sweep runs on the poller's own goroutine, synchronously, at the end of
	// PollOnce (spec §5: "the confirmation tracker runs only after an
	// ingestion pass completes and shares the same serialisable isolation" —
	// "No two ingestion operations run concurrently"). Node/Explorer are
	// shared, unsynchronized clients (internal/rpcclient), so the tracker's
	// MakeBlock re-entry during fork replay must never overlap a poll tick.
	poller := ingest.NewPoller(node, explorer, registry, st, evq, tracker.Sweep, logger)
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	mainnet := true
	if v, err := strconv.ParseBool(os.Getenv("HYVED_MAINNET")); err == nil {
		mainnet = v
	}

	srv := api.NewServer(st, registry, evq, mainnet, logger)
	httpServer := &http.Server{
		Addr:    listenAddr(),
		Handler: srv.Router(),
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := evq.PurgeExpired(ctx); err != nil {
					logger.WithError(err).Warn("daemon: event purge failed")
				} else if n > 0 {
					logger.WithField("purged", n).Info("daemon: purged expired events")
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.WithField("addr", httpServer.Addr).Info("daemon: http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("daemon: http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("daemon: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	wg.Wait()
	return nil
}

func listenAddr() string {
	return utils.EnvOrDefault("HYVED_LISTEN", ":8080")
}
