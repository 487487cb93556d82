// Package tools implements the server's invokable capabilities. Domain
// modules contribute disjoint tool sets merged into one registry at startup;
// invocation failures of any origin surface as domain errors in the result,
// never as protocol errors.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/activity"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/telemetry"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/validate"
)

// Tool is one invokable capability. Invoke may return an error; the
// registry converts it into the domain-error result shape.
type Tool interface {
	Descriptor() protocol.ToolDescriptor
	Invoke(ctx context.Context, args json.RawMessage) (protocol.CallResult, error)
}

// DuplicateToolError reports two modules registering the same name. Startup
// stops on it; a silent overwrite would hide one module's tools entirely.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q registered twice", e.Name)
}

type registered struct {
	tool   Tool
	schema *validate.Schema
}

// Registry holds immutable tool entries in registration order.
type Registry struct {
	order   []string
	entries map[string]registered

	log     *logrus.Entry
	feed    *activity.Feed
	metrics *telemetry.Metrics
}

// NewRegistry returns an empty registry. feed and metrics may be nil.
func NewRegistry(log *logrus.Entry, feed *activity.Feed, metrics *telemetry.Metrics) *Registry {
	return &Registry{
		entries: map[string]registered{},
		log:     log,
		feed:    feed,
		metrics: metrics,
	}
}

// Add registers tools in order. Input schemas are compiled once here so a
// malformed schema is a startup failure, not a per-call one.
func (r *Registry) Add(tools ...Tool) error {
	for _, t := range tools {
		desc := t.Descriptor()
		if desc.Name == "" {
			return fmt.Errorf("tool with empty name")
		}
		if _, exists := r.entries[desc.Name]; exists {
			return &DuplicateToolError{Name: desc.Name}
		}

		schema, err := validate.Compile(desc.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %s: %w", desc.Name, err)
		}

		r.order = append(r.order, desc.Name)
		r.entries[desc.Name] = registered{tool: t, schema: schema}
	}
	return nil
}

// Describe returns every descriptor in registration order.
func (r *Registry) Describe() []protocol.ToolDescriptor {
	out := make([]protocol.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].tool.Descriptor())
	}
	return out
}

// Len reports how many tools are registered.
func (r *Registry) Len() int { return len(r.order) }

// Call invokes a tool by name. It never fails: unknown names, invalid
// arguments, handler errors and panics all come back as a result with the
// domain-error flag set.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (result protocol.CallResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			if r.log != nil {
				r.log.WithField("tool", name).Errorf("tool panicked: %v", rec)
			}
			result = errorResult(fmt.Sprintf("%s: %v", name, rec))
		}
		r.record(ctx, name, start, result)
	}()

	entry, ok := r.entries[name]
	if !ok {
		return errorResult("Unknown tool: " + name)
	}

	if err := entry.schema.Check(args); err != nil {
		return errorResult(fmt.Sprintf("%s: %v", name, err))
	}

	res, err := entry.tool.Invoke(ctx, args)
	if err != nil {
		return errorResult(fmt.Sprintf("%s: %v", name, err))
	}
	return res
}

func (r *Registry) record(ctx context.Context, name string, start time.Time, result protocol.CallResult) {
	outcome := "ok"
	if result.IsError {
		outcome = "failed"
	}
	if r.feed != nil {
		r.feed.Record("tool", name+" "+outcome)
	}
	r.metrics.RecordToolCall(ctx, name, time.Since(start), result.IsError)
}

func textResult(text string) protocol.CallResult {
	return protocol.CallResult{Content: []protocol.ContentPart{{Type: "text", Text: text}}}
}

func errorResult(text string) protocol.CallResult {
	return protocol.CallResult{
		Content: []protocol.ContentPart{{Type: "text", Text: text}},
		IsError: true,
	}
}

// jsonBlock pretty-prints a payload for inclusion in tool output.
func jsonBlock(v any) string {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("(unencodable: %v)", err)
	}
	return string(pretty)
}

// tool adapts a descriptor and a handler func into a Tool.
type tool struct {
	descriptor protocol.ToolDescriptor
	invoke     func(ctx context.Context, args json.RawMessage) (protocol.CallResult, error)
}

func (t tool) Descriptor() protocol.ToolDescriptor { return t.descriptor }

func (t tool) Invoke(ctx context.Context, args json.RawMessage) (protocol.CallResult, error) {
	return t.invoke(ctx, args)
}
