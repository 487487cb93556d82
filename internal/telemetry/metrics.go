// Package telemetry records OpenTelemetry metrics for the MCP server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the server's instruments. A nil *Metrics is valid and
// records nothing, so callers never need to branch on whether telemetry
// is wired.
type Metrics struct {
	requests      metric.Int64Counter
	requestErrors metric.Int64Counter
	toolCalls     metric.Int64Counter
	toolFailures  metric.Int64Counter
	toolDuration  metric.Float64Histogram
	samplingCalls metric.Int64Counter
}

// NewMetrics creates the server instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter("mcp.requests",
		metric.WithDescription("Number of JSON-RPC requests handled"),
	)
	if err != nil {
		return nil, err
	}

	requestErrors, err := meter.Int64Counter("mcp.request.errors",
		metric.WithDescription("Number of JSON-RPC requests answered with a protocol error"),
	)
	if err != nil {
		return nil, err
	}

	toolCalls, err := meter.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	toolFailures, err := meter.Int64Counter("mcp.tool.failures",
		metric.WithDescription("Number of tool invocations that produced a domain error"),
	)
	if err != nil {
		return nil, err
	}

	toolDuration, err := meter.Float64Histogram("mcp.tool.duration",
		metric.WithDescription("Duration of tool invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	samplingCalls, err := meter.Int64Counter("mcp.sampling.calls",
		metric.WithDescription("Number of sampling requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requests:      requests,
		requestErrors: requestErrors,
		toolCalls:     toolCalls,
		toolFailures:  toolFailures,
		toolDuration:  toolDuration,
		samplingCalls: samplingCalls,
	}, nil
}

// RecordRequest counts one handled request by method.
func (m *Metrics) RecordRequest(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordRequestError counts one protocol-error response by method and code.
func (m *Metrics) RecordRequestError(ctx context.Context, method string, code int) {
	if m == nil {
		return
	}
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("code", code),
	))
}

// RecordToolCall counts one tool invocation and its duration; failed marks
// invocations whose result carried the domain-error flag.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, elapsed.Seconds(), attrs)
	if failed {
		m.toolFailures.Add(ctx, 1, attrs)
	}
}

// RecordSampling counts one sampling request by outcome
// (ok, error, timeout, canceled, unavailable).
func (m *Metrics) RecordSampling(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.samplingCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
