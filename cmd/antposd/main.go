// Antposd serves the station antenna registry over HTTP.
//
// It loads configuration, builds the registry from the configured dataset,
// and starts the HTTP/WebSocket server. The dataset can be reloaded at run
// time through POST /api/reload. Shutdown is handled gracefully on SIGINT or
// SIGTERM.
//
// With --export-csv or --export-sqlite it instead writes the configured
// dataset in the requested form and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/antpos/internal/app"
	"github.com/large-farva/antpos/internal/config"
	"github.com/large-farva/antpos/internal/dataset"
	"github.com/large-farva/antpos/internal/logging"
)

func main() {
	var (
		configPath   = pflag.StringP("config", "c", "", "Path to config TOML (defaults apply when empty)")
		bind         = pflag.String("bind", "", "HTTP bind address (overrides [server] bind)")
		exportCSV    = pflag.String("export-csv", "", "Write the configured dataset as CSV files into this directory and exit")
		exportSQLite = pflag.String("export-sqlite", "", "Write the configured dataset to this SQLite file and exit")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "antposd: config load failed: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format).With("component", "antposd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *exportCSV != "" || *exportSQLite != "" {
		if err := export(ctx, logger, cfg, *exportCSV, *exportSQLite); err != nil {
			logger.Error("export failed", "err", err)
			os.Exit(1)
		}
		return
	}

	a := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		ConfigPath: *configPath,
		Bind:       *bind,
	})

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("antposd failed", "err", err)
		os.Exit(1)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}

// export validates the configured dataset and writes it out.
func export(ctx context.Context, logger *slog.Logger, cfg config.Config, csvDir, sqlitePath string) error {
	tables, origin, err := dataset.Load(ctx, cfg.Data)
	if err != nil {
		return err
	}
	if origin.FallbackReason != "" {
		logger.Warn("configured dataset unavailable, exporting embedded set", "reason", origin.FallbackReason)
	}
	if csvDir != "" {
		if err := dataset.WriteCSV(csvDir, tables); err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		logger.Info("dataset exported", "format", "csv", "dir", csvDir, "origin", origin.String())
	}
	if sqlitePath != "" {
		if err := dataset.WriteSQLite(ctx, sqlitePath, tables); err != nil {
			return fmt.Errorf("sqlite export: %w", err)
		}
		logger.Info("dataset exported", "format", "sqlite", "path", sqlitePath, "origin", origin.String())
	}
	return nil
}
