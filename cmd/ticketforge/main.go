// Command ticketforge runs the TicketForge triage service and its
// operator tooling.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfhttp "github.com/Strob0t/TicketForge/internal/adapter/http"
	"github.com/Strob0t/TicketForge/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "ticketforge",
		Short:         "Customer support triage pipeline",
		Version:       cfhttp.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "path to the YAML config file")

	load := func() (*config.Config, error) {
		return config.LoadFrom(configPath)
	}
	root.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		runCmd(load),
		knowledgeCmd(load),
		hashKeyCmd(),
	)
	return root
}

// configLoader defers config loading until a subcommand runs so flags are parsed.
type configLoader func() (*config.Config, error)
