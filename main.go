package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/app"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/config"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/logging"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	httpAddr := flag.String("http", cfg.HTTPAddr, "MCP HTTP listen address (e.g., :3333)")
	flag.Parse()
	cfg.HTTPAddr = *httpAddr

	logger, cleanup, err := logging.New("mcp-server", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info := version.Get()
	logger.WithFields(logrus.Fields{
		"version": info.Version,
		"commit":  info.Commit,
		"addr":    cfg.HTTPAddr,
	}).Infof("starting %s", version.Name)

	if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server exited")
	}
	logger.Info("server stopped")
}
