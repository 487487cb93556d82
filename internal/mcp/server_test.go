package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/activity"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/prompts"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/resources"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/sampling"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/tools"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/version"
)

func newTestServer(t *testing.T) (*Server, store.Store, *activity.Feed) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	st := store.NewMemory()
	feed := activity.NewFeed(50)
	bridge := sampling.New(log, nil)

	reg := tools.NewRegistry(log, feed, nil)
	for _, group := range [][]tools.Tool{
		tools.FacilityTools(st),
		tools.ShipmentTools(st),
		tools.ContractTools(st),
		tools.AnalysisTools(st, bridge),
	} {
		if err := reg.Add(group...); err != nil {
			t.Fatalf("register tools: %v", err)
		}
	}

	srv := NewServer(Options{
		Tools:     reg,
		Prompts:   prompts.NewRegistry(),
		Resources: resources.NewRegistry(st, feed),
		Feed:      feed,
		Log:       log,
	})
	return srv, st, feed
}

func handle(t *testing.T, s *Server, raw string) protocol.Response {
	t.Helper()
	var req protocol.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("bad test request: %v", err)
	}
	return s.Handle(context.Background(), req)
}

func TestInitializeAdvertisesCapabilities(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.ID != float64(1) {
		t.Fatalf("id not echoed: %v", resp.ID)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result["protocolVersion"] != protocol.Version {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	caps, ok := result["capabilities"].(map[string]any)
	if !ok {
		t.Fatalf("capabilities missing: %+v", result)
	}
	for _, key := range []string{"tools", "prompts", "resources", "sampling"} {
		if _, ok := caps[key]; !ok {
			t.Fatalf("capability %q not advertised: %+v", key, caps)
		}
	}
	info, ok := result["serverInfo"].(map[string]string)
	if !ok || info["name"] != version.Name {
		t.Fatalf("unexpected server info: %+v", result["serverInfo"])
	}
}

func TestResponseEchoesIDVerbatim(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":"req-9","method":"tools/list"}`)
	if resp.ID != "req-9" {
		t.Fatalf("string id not echoed: %v", resp.ID)
	}

	resp = handle(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`)
	if resp.ID != float64(7) {
		t.Fatalf("numeric id not echoed: %v", resp.ID)
	}

	resp = handle(t, s, `{"jsonrpc":"2.0","id":null,"method":"tools/list"}`)
	if resp.ID != nil {
		t.Fatalf("null id must stay null, got %v", resp.ID)
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(encoded), `"id":null`) {
		t.Fatalf("null id lost in encoding: %s", encoded)
	}
}

func TestRejectsWrongProtocolVersion(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, raw := range []string{
		`{"jsonrpc":"1.0","id":1,"method":"tools/list"}`,
		`{"id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0.1","id":1,"method":"tools/list"}`,
	} {
		resp := handle(t, s, raw)
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
			t.Fatalf("expected -32600 for %s, got %+v", raw, resp.Error)
		}
	}
}

func TestUnknownMethodsAreTotal(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, method := range []string{"tools/destroy", "ping", "resources/write", "initialize2", ""} {
		resp := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"`+method+`"}`)
		if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
			t.Fatalf("expected -32601 for %q, got %+v", method, resp.Error)
		}
		if resp.ID != float64(3) {
			t.Fatalf("error response must still echo the id, got %v", resp.ID)
		}
	}
}

func TestToolsListKeepsRegistrationOrder(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	result, ok := resp.Result.(protocol.ListToolsResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(result.Tools) != 15 {
		t.Fatalf("expected 15 tools, got %d", len(result.Tools))
	}
	if result.Tools[0].Name != "create_facility" || result.Tools[1].Name != "get_facility" {
		t.Fatalf("registration order lost: %s, %s", result.Tools[0].Name, result.Tools[1].Name)
	}
}

func TestToolsCallUnknownToolIsDomainError(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"warp_drive"}}`)
	if resp.Error != nil {
		t.Fatalf("unknown tool must not be a protocol error: %+v", resp.Error)
	}
	result, ok := resp.Result.(protocol.CallResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if !result.IsError || !strings.Contains(result.Content[0].Text, "Unknown tool: warp_drive") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestToolsCallParamValidation(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602 for missing name, got %+v", resp.Error)
	}

	resp = handle(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":5}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602 for non-object params, got %+v", resp.Error)
	}
}

func TestToolsCallDispatchesArguments(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"create_facility","arguments":{"name":"Hub","kind":"warehouse","location":"Rotterdam, NL"}}}`)
	result, ok := resp.Result.(protocol.CallResult)
	if !ok || result.IsError {
		t.Fatalf("create_facility failed: %+v", resp.Result)
	}
	if !strings.Contains(result.Content[0].Text, "Facility created:") {
		t.Fatalf("unexpected reply: %q", result.Content[0].Text)
	}

	// Omitted arguments default to an empty object.
	resp = handle(t, s, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"list_contracts"}}`)
	result, ok = resp.Result.(protocol.CallResult)
	if !ok || result.IsError {
		t.Fatalf("list_contracts with no arguments failed: %+v", resp.Result)
	}
	if result.Content[0].Text != "No contracts found." {
		t.Fatalf("unexpected reply: %q", result.Content[0].Text)
	}
}

func TestPromptsListAndGet(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	list, ok := resp.Result.(protocol.ListPromptsResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(list.Prompts) != 3 || list.Prompts[0].Name != "facility-briefing" {
		t.Fatalf("unexpected prompt list: %+v", list.Prompts)
	}

	// Omitting the optional focus argument falls back to its default.
	resp = handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"facility-briefing","arguments":{"facility_id":"aaaaaaaaaaaaaaaaaaaaaaaa"}}}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(protocol.GetPromptResult)
	if !ok || len(result.Messages) == 0 {
		t.Fatalf("expected rendered messages, got %+v", resp.Result)
	}
	text := result.Messages[0].Content.Text
	if result.Messages[0].Role != "user" || !strings.Contains(text, "operations") {
		t.Fatalf("default argument missing from rendered prompt: %q", text)
	}
	if !strings.Contains(text, "aaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Fatalf("supplied argument missing from rendered prompt: %q", text)
	}
}

func TestPromptsGetErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"mystery-prompt"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602 for unknown prompt, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Message, "mystery-prompt") {
		t.Fatalf("error should name the prompt: %q", resp.Error.Message)
	}

	resp = handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"facility-briefing"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602 for missing required argument, got %+v", resp.Error)
	}

	resp = handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602 for missing prompt name, got %+v", resp.Error)
	}
}

func TestResourcesListAndRead(t *testing.T) {
	s, st, feed := newTestServer(t)

	f, err := st.CreateFacility(context.Background(), store.Facility{
		Name: "Hub", Kind: "warehouse", Location: "Rotterdam, NL", Status: store.FacilityOperational,
	})
	if err != nil {
		t.Fatalf("seed facility: %v", err)
	}

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	list, ok := resp.Result.(protocol.ListResourcesResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	uris := make(map[string]bool, len(list.Resources))
	for _, d := range list.Resources {
		uris[d.URI] = true
	}
	if !uris["supplychain://overview"] || !uris["facility://"+f.ID] {
		t.Fatalf("expected overview and facility resources, got %v", uris)
	}

	resp = handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"facility://`+f.ID+`"}}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(protocol.ReadResourceResult)
	if !ok || len(result.Contents) != 1 {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}
	if result.Contents[0].URI != "facility://"+f.ID {
		t.Fatalf("uri not echoed: %q", result.Contents[0].URI)
	}
	if !json.Valid([]byte(result.Contents[0].Text)) {
		t.Fatalf("payload is not JSON: %q", result.Contents[0].Text)
	}

	tail := feed.Tail(10)
	if len(tail) != 1 || tail[0].Kind != "resource" || tail[0].Message != "facility://"+f.ID {
		t.Fatalf("read not recorded in activity feed: %+v", tail)
	}
}

func TestResourcesReadErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, uri := range []string{
		"warehouse://overview",
		"facility://nothex",
		"facility://" + store.NewID(),
	} {
		resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"`+uri+`"}}`)
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
			t.Fatalf("expected -32602 for %q, got %+v", uri, resp.Error)
		}
	}

	resp := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602 for missing uri, got %+v", resp.Error)
	}
}
