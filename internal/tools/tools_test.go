package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/sampling"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
)

// newDomainRegistry wires every production tool against a fresh in-memory
// store. The bridge has no transport unless the test registers one.
func newDomainRegistry(t *testing.T) (*Registry, *sampling.Bridge, store.Store) {
	t.Helper()
	st := store.NewMemory()
	bridge := sampling.New(discardLog(), nil)
	r := NewRegistry(discardLog(), nil, nil)
	for _, group := range [][]Tool{
		FacilityTools(st),
		ShipmentTools(st),
		ContractTools(st),
		AnalysisTools(st, bridge),
	} {
		if err := r.Add(group...); err != nil {
			t.Fatalf("register tools: %v", err)
		}
	}
	return r, bridge, st
}

func call(t *testing.T, r *Registry, name, args string) protocol.CallResult {
	t.Helper()
	var raw json.RawMessage
	if args != "" {
		raw = json.RawMessage(args)
	}
	res := r.Call(context.Background(), name, raw)
	if len(res.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	return res
}

func mustCall(t *testing.T, r *Registry, name, args string) string {
	t.Helper()
	res := call(t, r, name, args)
	if res.IsError {
		t.Fatalf("%s failed: %s", name, res.Content[0].Text)
	}
	return res.Content[0].Text
}

func mustFail(t *testing.T, r *Registry, name, args string) string {
	t.Helper()
	res := call(t, r, name, args)
	if !res.IsError {
		t.Fatalf("%s unexpectedly succeeded: %s", name, res.Content[0].Text)
	}
	return res.Content[0].Text
}

// decodeTrailer unmarshals the JSON block that ends a tool reply.
func decodeTrailer[T any](t *testing.T, text string) T {
	t.Helper()
	idx := strings.Index(text, "{")
	if arr := strings.Index(text, "["); idx < 0 || (arr >= 0 && arr < idx) {
		idx = arr
	}
	if idx < 0 {
		t.Fatalf("no JSON block in %q", text)
	}
	var v T
	if err := json.Unmarshal([]byte(text[idx:]), &v); err != nil {
		t.Fatalf("decode trailing JSON: %v\nreply was:\n%s", err, text)
	}
	return v
}

func createTestFacility(t *testing.T, r *Registry, name string) store.Facility {
	t.Helper()
	out := mustCall(t, r, "create_facility",
		`{"name":`+strconv.Quote(name)+`,"kind":"warehouse","location":"Rotterdam, NL","capacity":1000}`)
	return decodeTrailer[store.Facility](t, out)
}

func TestEveryToolSurvivesGarbageArguments(t *testing.T) {
	r, _, _ := newDomainRegistry(t)
	if r.Len() != 15 {
		t.Fatalf("expected 15 registered tools, got %d", r.Len())
	}

	garbage := []string{"", "{}", `{"unexpected":true}`, `{"id":42}`, `{"id":`}
	for _, d := range r.Describe() {
		for _, args := range garbage {
			res := r.Call(context.Background(), d.Name, json.RawMessage(args))
			if len(res.Content) == 0 {
				t.Fatalf("%s with args %q returned no content", d.Name, args)
			}
		}
	}
}
