// Command manifestgen writes a JSON manifest of the MCP surface: every tool,
// prompt and static resource the server advertises. Integrators can review
// the surface without running a server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/app"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/config"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/prompts"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/version"
)

// Manifest is the generated description of the server surface.
type Manifest struct {
	Name            string                        `json:"name"`
	Version         string                        `json:"version"`
	ProtocolVersion string                        `json:"protocolVersion"`
	GeneratedAt     time.Time                     `json:"generatedAt"`
	Tools           []protocol.ToolDescriptor     `json:"tools"`
	Prompts         []protocol.PromptDescriptor   `json:"prompts"`
	Resources       []protocol.ResourceDescriptor `json:"resources"`
}

func main() {
	outDir := flag.String("output_dir", ".", "output directory for manifest.json")
	flag.Parse()

	raw, err := Generate(*outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("manifest written to %s (%d bytes)\n", filepath.Join(*outDir, "manifest.json"), len(raw))
}

// Generate assembles a throwaway server on an empty in-memory store and
// writes its advertised surface to manifest.json. The raw bytes written are
// returned.
func Generate(outputDir string) ([]byte, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c, err := app.Build(config.Config{ActivitySize: 10}, logrus.NewEntry(logger))
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}
	defer func() { _ = c.Close() }()

	// An empty store lists only the static resources, which is exactly the
	// stable part of the surface.
	resources, err := listStaticResources(c)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		Name:            version.Name,
		Version:         version.Get().Version,
		ProtocolVersion: protocol.Version,
		GeneratedAt:     time.Now().UTC(),
		Tools:           c.Tools.Describe(),
		Prompts:         prompts.NewRegistry().List(),
		Resources:       resources,
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	raw = append(raw, '\n')

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "manifest.json"), raw, 0o644); err != nil {
		return nil, err
	}
	return raw, nil
}

func listStaticResources(c *app.Components) ([]protocol.ResourceDescriptor, error) {
	resp := c.Server.Handle(context.Background(), protocol.Request{
		JSONRPC: "2.0", ID: "manifest", Method: "resources/list",
	})
	if resp.Error != nil {
		return nil, fmt.Errorf("list resources: %s", resp.Error.Message)
	}
	result, ok := resp.Result.(protocol.ListResourcesResult)
	if !ok {
		return nil, fmt.Errorf("unexpected resources/list result %T", resp.Result)
	}
	return result.Resources, nil
}
