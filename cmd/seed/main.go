// Command seed loads a small demo network into a running MCP server through
// its own tool surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/client"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3333/", "MCP server base URL")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, client.New(*serverURL)); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(ctx context.Context, c *client.Client) error {
	if err := c.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	hub, err := createEntity(ctx, c, "create_facility", map[string]any{
		"name": "Rotterdam Hub", "kind": "warehouse", "location": "Rotterdam, NL", "capacity": 52000,
	})
	if err != nil {
		return err
	}
	port, err := createEntity(ctx, c, "create_facility", map[string]any{
		"name": "Hamburg Port", "kind": "port", "location": "Hamburg, DE", "capacity": 80000,
	})
	if err != nil {
		return err
	}
	depot, err := createEntity(ctx, c, "create_facility", map[string]any{
		"name": "Lyon Depot", "kind": "depot", "location": "Lyon, FR", "capacity": 12000,
	})
	if err != nil {
		return err
	}

	first, err := createEntity(ctx, c, "create_shipment", map[string]any{
		"reference": "SHP-1001", "origin_id": hub, "destination_id": port,
		"carrier": "Atlas Freight", "contents": "machine parts", "weight_kg": 18400, "eta_days": 4,
	})
	if err != nil {
		return err
	}
	if _, err := createEntity(ctx, c, "create_shipment", map[string]any{
		"reference": "SHP-1002", "origin_id": port, "destination_id": depot,
		"carrier": "Borealis", "contents": "packaging film", "weight_kg": 6200, "eta_days": 9,
	}); err != nil {
		return err
	}

	// One delayed lane makes the risk and analysis tools interesting.
	if err := callOK(ctx, c, "update_shipment_status", map[string]any{
		"id": first, "status": "delayed", "eta_days": 12,
	}); err != nil {
		return err
	}

	for _, contract := range []map[string]any{
		{"carrier": "Atlas Freight", "facility_id": hub, "rate_per_kg": 0.82, "duration_months": 12},
		{"carrier": "Borealis", "facility_id": port, "rate_per_kg": 0.57, "duration_months": 6},
	} {
		if _, err := createEntity(ctx, c, "create_contract", contract); err != nil {
			return err
		}
	}

	log.Printf("seeded 3 facilities, 2 shipments, 2 contracts")
	return nil
}

// callOK invokes a tool and treats a domain error as a failure.
func callOK(ctx context.Context, c *client.Client, tool string, args map[string]any) error {
	res, err := c.CallTool(ctx, tool, args)
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	if res.IsError {
		return fmt.Errorf("%s: %s", tool, res.Content[0].Text)
	}
	return nil
}

// createEntity calls a create_* tool and extracts the new entity id from the
// JSON payload embedded in the reply.
func createEntity(ctx context.Context, c *client.Client, tool string, args map[string]any) (string, error) {
	res, err := c.CallTool(ctx, tool, args)
	if err != nil {
		return "", fmt.Errorf("%s: %w", tool, err)
	}
	if res.IsError || len(res.Content) == 0 {
		return "", fmt.Errorf("%s: %s", tool, firstText(res))
	}

	text := res.Content[0].Text
	idx := strings.Index(text, "{")
	if idx < 0 {
		return "", fmt.Errorf("%s: no entity payload in %q", tool, text)
	}
	var entity struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(text[idx:]), &entity); err != nil {
		return "", fmt.Errorf("%s: decode payload: %w", tool, err)
	}
	return entity.ID, nil
}

func firstText(res protocol.CallResult) string {
	if len(res.Content) == 0 {
		return "(empty result)"
	}
	return res.Content[0].Text
}
