package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations, health and metrics over HTTP",
	Args:  cobra.NoArgs,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer app.Close()

	slog.Info("Curator started", "config", cfgPath, "port", cfg.Server.Port)
	if err := app.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		app.Close()
		os.Exit(1)
	}
	slog.Info("Curator stopped gracefully")
}
