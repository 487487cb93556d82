package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/sampling"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
)

// scriptedTransport returns a fixed reply and keeps every request it saw.
type scriptedTransport struct {
	mu       sync.Mutex
	reply    string
	requests []sampling.Request
}

func (s *scriptedTransport) CreateMessage(_ context.Context, req sampling.Request) (protocol.CreateMessageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return protocol.CreateMessageResult{
		Role:       "assistant",
		Content:    protocol.ContentPart{Type: "text", Text: s.reply},
		Model:      "scripted",
		StopReason: "endTurn",
	}, nil
}

func (s *scriptedTransport) lastPrompt(t *testing.T) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("transport never called")
	}
	req := s.requests[len(s.requests)-1]
	if len(req.Params.Messages) == 0 {
		t.Fatal("request carried no messages")
	}
	return req.Params.Messages[0].Content.Text
}

func seedLane(t *testing.T, r *Registry) (store.Facility, store.Facility, store.Shipment) {
	t.Helper()
	origin := createTestFacility(t, r, "Hub Alpha")
	dest := createTestFacility(t, r, "Port Beta")
	out := mustCall(t, r, "create_shipment", fmt.Sprintf(
		`{"reference":"SHP-7","origin_id":%q,"destination_id":%q,"carrier":"Atlas Freight","contents":"electronics","weight_kg":800}`,
		origin.ID, dest.ID))
	return origin, dest, decodeTrailer[store.Shipment](t, out)
}

func TestAnalyzeSupplyChainFallsBackWithoutTransport(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	seedLane(t, r)

	out := mustCall(t, r, "analyze_supply_chain", "")
	if !strings.HasPrefix(out, "Deterministic summary (sampling unavailable):") {
		t.Fatalf("expected deterministic fallback, got %q", out)
	}
	if !strings.Contains(out, "2 facilities, 2 operational") || !strings.Contains(out, "1 open shipments") {
		t.Fatalf("fallback misses network counts: %q", out)
	}
}

func TestAnalyzeSupplyChainUsesBridge(t *testing.T) {
	r, bridge, _ := newDomainRegistry(t)
	seedLane(t, r)

	tr := &scriptedTransport{reply: "All lanes nominal."}
	if err := bridge.Register(tr); err != nil {
		t.Fatalf("register transport: %v", err)
	}

	out := mustCall(t, r, "analyze_supply_chain", `{"question":"Anything stuck in transit?"}`)
	if out != "Analysis:\nAll lanes nominal." {
		t.Fatalf("unexpected reply: %q", out)
	}

	prompt := tr.lastPrompt(t)
	if !strings.Contains(prompt, "Anything stuck in transit?") {
		t.Fatalf("question not forwarded verbatim: %q", prompt)
	}
	if !strings.Contains(prompt, "Context:") || !strings.Contains(prompt, `"facilities"`) {
		t.Fatalf("snapshot not attached to prompt: %q", prompt)
	}
}

func TestAssessShipmentRiskFallsBackWithoutTransport(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	_, _, sh := seedLane(t, r)
	mustCall(t, r, "update_shipment_status", fmt.Sprintf(`{"id":%q,"status":"delayed"}`, sh.ID))

	out := mustCall(t, r, "assess_shipment_risk", fmt.Sprintf(`{"id":%q}`, sh.ID))
	if !strings.HasPrefix(out, "Risk score: 70/100 (sampling unavailable)") {
		t.Fatalf("expected rule-based delayed score, got %q", out)
	}
	if !strings.Contains(out, "rule-based: status delayed") {
		t.Fatalf("expected rule factors in reasoning, got %q", out)
	}
}

func TestAssessShipmentRiskUsesBridge(t *testing.T) {
	r, bridge, _ := newDomainRegistry(t)
	_, _, sh := seedLane(t, r)

	tr := &scriptedTransport{reply: `{"score": 82, "reasoning": "weather on route"}`}
	if err := bridge.Register(tr); err != nil {
		t.Fatalf("register transport: %v", err)
	}

	out := mustCall(t, r, "assess_shipment_risk", fmt.Sprintf(`{"id":%q}`, sh.ID))
	if out != "Risk score: 82/100\nReasoning: weather on route" {
		t.Fatalf("unexpected reply: %q", out)
	}

	prompt := tr.lastPrompt(t)
	if !strings.Contains(prompt, "SHP-7") {
		t.Fatalf("shipment detail missing from prompt: %q", prompt)
	}
}

func TestAssessShipmentRiskUnknownShipment(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	msg := mustFail(t, r, "assess_shipment_risk", fmt.Sprintf(`{"id":%q}`, store.NewID()))
	if !strings.Contains(msg, "not found") {
		t.Fatalf("expected not-found error, got %q", msg)
	}
}

func TestRecommendCarrierFallsBackWithoutTransport(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	origin, _, _ := seedLane(t, r)
	mustCall(t, r, "create_contract", fmt.Sprintf(
		`{"carrier":"Atlas Freight","facility_id":%q,"rate_per_kg":0.8}`, origin.ID))
	mustCall(t, r, "create_contract", fmt.Sprintf(
		`{"carrier":"Borealis","facility_id":%q,"rate_per_kg":0.5}`, origin.ID))

	out := mustCall(t, r, "recommend_carrier", "")
	if !strings.HasPrefix(out, "Recommended carrier: Borealis (sampling unavailable)") {
		t.Fatalf("expected cheapest contracted carrier, got %q", out)
	}
	if !strings.Contains(out, "lowest average rate 0.500/kg over 1 active contracts") {
		t.Fatalf("expected rate basis, got %q", out)
	}
}

func TestRecommendCarrierUsesBridge(t *testing.T) {
	r, bridge, _ := newDomainRegistry(t)
	origin, _, _ := seedLane(t, r)
	mustCall(t, r, "create_contract", fmt.Sprintf(
		`{"carrier":"Atlas Freight","facility_id":%q,"rate_per_kg":0.8}`, origin.ID))
	mustCall(t, r, "create_contract", fmt.Sprintf(
		`{"carrier":"Borealis","facility_id":%q,"rate_per_kg":0.5}`, origin.ID))

	tr := &scriptedTransport{reply: "B is the stronger pick given current rates."}
	if err := bridge.Register(tr); err != nil {
		t.Fatalf("register transport: %v", err)
	}

	out := mustCall(t, r, "recommend_carrier", "")
	if !strings.HasPrefix(out, "Recommended carrier: Borealis") {
		t.Fatalf("expected the lettered pick, got %q", out)
	}
	if !strings.Contains(out, "Rationale: B is the stronger pick given current rates.") {
		t.Fatalf("expected verbatim rationale, got %q", out)
	}

	prompt := tr.lastPrompt(t)
	if !strings.Contains(prompt, "A. Atlas Freight") || !strings.Contains(prompt, "B. Borealis") {
		t.Fatalf("options not lettered in prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "Carrier records:") {
		t.Fatalf("carrier profiles missing from prompt: %q", prompt)
	}
}

func TestRecommendCarrierRequiresData(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	msg := mustFail(t, r, "recommend_carrier", "")
	if !strings.Contains(msg, "no carriers on file") {
		t.Fatalf("expected empty-network refusal, got %q", msg)
	}
}

func TestRecommendCarrierScopedToFacility(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	hub := createTestFacility(t, r, "Hub Alpha")
	depot := createTestFacility(t, r, "Depot Gamma")
	mustCall(t, r, "create_contract", fmt.Sprintf(
		`{"carrier":"Atlas Freight","facility_id":%q,"rate_per_kg":0.8}`, hub.ID))
	mustCall(t, r, "create_contract", fmt.Sprintf(
		`{"carrier":"Borealis","facility_id":%q,"rate_per_kg":0.5}`, depot.ID))

	out := mustCall(t, r, "recommend_carrier", fmt.Sprintf(`{"facility_id":%q}`, hub.ID))
	if !strings.HasPrefix(out, "Recommended carrier: Atlas Freight") {
		t.Fatalf("expected the hub's only carrier, got %q", out)
	}
	if strings.Contains(out, "Borealis") {
		t.Fatalf("out-of-scope carrier leaked into reply: %q", out)
	}
}
