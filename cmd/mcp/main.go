package main

import (
	"context"
	"os"

	mcpadapter "github.com/junozone1110/faqbot-1/internal/adapters/mcp"
	"github.com/junozone1110/faqbot-1/internal/bootstrap"
	"github.com/junozone1110/faqbot-1/internal/config"
	"github.com/junozone1110/faqbot-1/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "mcp", Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go bootstrap.RunSweeper(ctx, app.Engine, cfg.SessionSweepInterval, logger)

	if err := mcpadapter.NewServer(app.Engine, app.Catalog, logger).ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
