// Command hyved is the indexing and notification daemon (spec §2, §5).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/daemon"
)

func main() {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Best-effort: a .env file is a convenience for local/dev runs, not a
	// requirement, matching joho/godotenv's own Load() semantics.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := daemon.Run(ctx, os.Getenv("HYVED_CONFIG"), logger); err != nil {
		logger.WithError(err).Error("hyved: fatal")
		os.Exit(-1)
	}
}
