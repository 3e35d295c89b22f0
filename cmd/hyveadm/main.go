// Command hyveadm is the operator CLI (spec §2 expansion): migrate, serve
// and dump-config, sharing internal/config and internal/store with the
// daemon. Grounded on cmd/synnergy/main.go's Cobra root command pattern.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hydraverse/hyvedb/internal/config"
	"github.com/hydraverse/hyvedb/internal/daemon"
	"github.com/hydraverse/hyvedb/internal/store"
)

func main() {
	rootCmd := &cobra.Command{Use: "hyveadm"}

	var cfgPath string
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to db.yml (defaults to $HYVE_HOME/.local/hyve/db.yml)")

	rootCmd.AddCommand(migrateCmd(&cfgPath))
	rootCmd.AddCommand(serveCmd(&cfgPath))
	rootCmd.AddCommand(dumpConfigCmd(&cfgPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.NewStore(cmd.Context(), cfg.DB.URL)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Migrate(cfg.DB.URL)
		},
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the daemon in the foreground using this config",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.StandardLogger()
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return daemon.Run(ctx, *cfgPath, logger)
		},
	}
}

func dumpConfigCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-config",
		Short: "load and print the resolved configuration in db.yml form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			// Secrets are already decrypted in-memory by config.Load; redact
			// them here so dump-config never prints plaintext credentials.
			redacted := *cfg
			redacted.DB.Passphrase = redactIfSet(redacted.DB.Passphrase)
			redacted.DB.PrivKey = redactIfSet(redacted.DB.PrivKey)
			redacted.DB.Wallet = redactIfSet(redacted.DB.Wallet)
			redacted.DB.Fernet = redactIfSet(redacted.DB.Fernet)

			out, err := yaml.Marshal(redacted)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func redactIfSet(s string) string {
	if s == "" {
		return ""
	}
	return "<redacted>"
}
