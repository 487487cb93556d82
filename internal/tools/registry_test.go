package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/activity"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/telemetry"
)

func discardLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func stub(name string, invoke func(ctx context.Context, args json.RawMessage) (protocol.CallResult, error)) Tool {
	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        name,
			Description: "stub",
			InputSchema: &protocol.JSONSchema{Type: "object"},
		},
		invoke: invoke,
	}
}

func okStub(name, reply string) Tool {
	return stub(name, func(context.Context, json.RawMessage) (protocol.CallResult, error) {
		return textResult(reply), nil
	})
}

func TestDescribePreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)
	if err := r.Add(okStub("a", "first"), okStub("b", "second")); err != nil {
		t.Fatalf("add: %v", err)
	}

	descriptors := r.Describe()
	if len(descriptors) != 2 || descriptors[0].Name != "a" || descriptors[1].Name != "b" {
		t.Fatalf("unexpected order: %+v", descriptors)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 tools, got %d", r.Len())
	}
}

func TestAddRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)
	if err := r.Add(okStub("inventory", "x")); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := r.Add(okStub("inventory", "y"))
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}
	if dup.Name != "inventory" {
		t.Fatalf("unexpected name in error: %q", dup.Name)
	}
}

func TestCallUnknownToolIsDomainError(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)

	res := r.Call(context.Background(), "ghost_tool", nil)
	if !res.IsError {
		t.Fatal("expected isError result")
	}
	if len(res.Content) != 1 || !strings.Contains(res.Content[0].Text, "Unknown tool: ghost_tool") {
		t.Fatalf("unexpected content: %+v", res.Content)
	}
}

func TestCallConvertsHandlerErrors(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)
	failing := stub("broken", func(context.Context, json.RawMessage) (protocol.CallResult, error) {
		return protocol.CallResult{}, errors.New("backend unreachable")
	})
	if err := r.Add(failing); err != nil {
		t.Fatalf("add: %v", err)
	}

	res := r.Call(context.Background(), "broken", nil)
	if !res.IsError {
		t.Fatal("expected isError result")
	}
	if got := res.Content[0].Text; got != "broken: backend unreachable" {
		t.Fatalf("expected tool-prefixed message, got %q", got)
	}
}

func TestCallRecoversPanics(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)
	panicking := stub("volatile", func(context.Context, json.RawMessage) (protocol.CallResult, error) {
		panic("nil map write")
	})
	if err := r.Add(panicking); err != nil {
		t.Fatalf("add: %v", err)
	}

	res := r.Call(context.Background(), "volatile", nil)
	if !res.IsError {
		t.Fatal("expected isError result")
	}
	if got := res.Content[0].Text; !strings.Contains(got, "volatile:") || !strings.Contains(got, "nil map write") {
		t.Fatalf("unexpected panic conversion: %q", got)
	}
}

func TestCallChecksArgumentSchema(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)
	strict := tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "strict",
			Description: "requires a name",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"name": {Type: "string"},
				},
				Required: []string{"name"},
			},
		},
		invoke: func(context.Context, json.RawMessage) (protocol.CallResult, error) {
			return textResult("ok"), nil
		},
	}
	if err := r.Add(strict); err != nil {
		t.Fatalf("add: %v", err)
	}

	res := r.Call(context.Background(), "strict", json.RawMessage(`{}`))
	if !res.IsError {
		t.Fatal("expected schema violation to be a domain error")
	}
	if !strings.HasPrefix(res.Content[0].Text, "strict: ") {
		t.Fatalf("expected tool prefix on validation message, got %q", res.Content[0].Text)
	}

	res = r.Call(context.Background(), "strict", json.RawMessage(`{"name":"ok"}`))
	if res.IsError {
		t.Fatalf("expected valid arguments to pass, got %q", res.Content[0].Text)
	}

	res = r.Call(context.Background(), "strict", json.RawMessage(`{"name":`))
	if !res.IsError {
		t.Fatal("expected malformed JSON to be a domain error")
	}
}

func TestCallRecordsActivityAndMetrics(t *testing.T) {
	feed := activity.NewFeed(10)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	r := NewRegistry(discardLog(), feed, metrics)
	if err := r.Add(okStub("steady", "fine")); err != nil {
		t.Fatalf("add: %v", err)
	}

	r.Call(context.Background(), "steady", nil)
	r.Call(context.Background(), "missing_tool", nil)

	tail := feed.Tail(10)
	if len(tail) != 2 {
		t.Fatalf("expected 2 feed entries, got %d", len(tail))
	}
	if tail[0].Message != "steady ok" || tail[1].Message != "missing_tool failed" {
		t.Fatalf("unexpected feed entries: %+v", tail)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var calls, failures int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "mcp.tool.calls":
					calls += dp.Value
				case "mcp.tool.failures":
					failures += dp.Value
				}
			}
		}
	}
	if calls != 2 || failures != 1 {
		t.Fatalf("expected 2 calls and 1 failure, got %d and %d", calls, failures)
	}
}

func TestCallPropagatesContextCancellation(t *testing.T) {
	r := NewRegistry(discardLog(), nil, nil)
	slow := stub("slowish", func(ctx context.Context, _ json.RawMessage) (protocol.CallResult, error) {
		select {
		case <-ctx.Done():
			return protocol.CallResult{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return textResult("done"), nil
		}
	})
	if err := r.Add(slow); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Call(ctx, "slowish", nil)
	if !res.IsError {
		t.Fatal("expected canceled context to surface as a domain error")
	}
}
