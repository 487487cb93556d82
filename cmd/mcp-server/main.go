// Command mcp-server is the thin launcher: env-driven config, logs to
// stderr, no file logging or version stamping. The root binary carries
// those.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/app"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/config"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	httpAddr := flag.String("http", cfg.HTTPAddr, "MCP HTTP listen address (e.g., :3333)")
	flag.Parse()
	cfg.HTTPAddr = *httpAddr

	logger, err := logging.Stderr("mcp-server", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil {
		log.Fatalf("mcp server: %v", err)
	}
}
