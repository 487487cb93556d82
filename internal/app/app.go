package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/activity"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/config"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/mcp"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/prompts"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/resources"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/sampling"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/telemetry"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/tools"
)

// Components is the assembled server with everything it owns.
type Components struct {
	Store  store.Store
	Feed   *activity.Feed
	Bridge *sampling.Bridge
	Tools  *tools.Registry
	Server *mcp.Server

	closeStore func() error
}

// Close releases resources held by the components.
func (c *Components) Close() error {
	if c.closeStore != nil {
		return c.closeStore()
	}
	return nil
}

// Build assembles the full server from configuration: store, registries,
// sampling bridge and dispatcher.
func Build(cfg config.Config, log *logrus.Entry) (*Components, error) {
	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	feed := activity.NewFeed(cfg.ActivitySize)

	// The global meter provider is a no-op unless the operator installs an
	// SDK; instruments still exist either way.
	metrics, err := telemetry.NewMetrics(otel.Meter("supplychain-mcp"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	bridge := sampling.New(log, metrics)
	if cfg.SamplingConfigured() {
		transport := sampling.NewOpenAITransport(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err := bridge.Register(transport); err != nil {
			return nil, fmt.Errorf("register sampling transport: %w", err)
		}
		log.WithField("model", cfg.OpenAIModel).Info("sampling transport registered")
	} else {
		log.Info("no sampling transport, generative tools use deterministic fallbacks")
	}

	reg := tools.NewRegistry(log, feed, metrics)
	for _, group := range [][]tools.Tool{
		tools.FacilityTools(st),
		tools.ShipmentTools(st),
		tools.ContractTools(st),
		tools.AnalysisTools(st, bridge),
	} {
		if err := reg.Add(group...); err != nil {
			return nil, fmt.Errorf("register tools: %w", err)
		}
	}

	server := mcp.NewServer(mcp.Options{
		Tools:     reg,
		Prompts:   prompts.NewRegistry(),
		Resources: resources.NewRegistry(st, feed),
		Feed:      feed,
		Metrics:   metrics,
		Log:       log,
	})

	return &Components{
		Store:      st,
		Feed:       feed,
		Bridge:     bridge,
		Tools:      reg,
		Server:     server,
		closeStore: closeStore,
	}, nil
}

// Run builds the server and serves MCP over HTTP until ctx is canceled.
func Run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	c, err := Build(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return mcp.RunHTTP(ctx, c.Server, cfg.HTTPAddr)
}

func openStore(cfg config.Config, log *logrus.Entry) (store.Store, func() error, error) {
	if cfg.StoreDSN == "" {
		log.Info("using in-memory entity store")
		return store.NewMemory(), nil, nil
	}

	sq, err := store.NewSQLite(cfg.StoreDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	log.WithField("dsn", cfg.StoreDSN).Info("using sqlite entity store")
	return sq, sq.Close, nil
}
