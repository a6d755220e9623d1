// Command web runs the JSON-to-Excel converter HTTP service.
package main

import (
	"context"
	"log/slog"
	"os"

	"upixl/internal/app"
	"upixl/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
