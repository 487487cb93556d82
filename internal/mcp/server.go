package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/activity"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/prompts"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/resources"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/telemetry"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/tools"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/version"
)

// Options carries the collaborators a Server dispatches to. Feed, Metrics
// and Log may be nil.
type Options struct {
	Tools     *tools.Registry
	Prompts   *prompts.Registry
	Resources *resources.Registry
	Feed      *activity.Feed
	Metrics   *telemetry.Metrics
	Log       *logrus.Entry
}

// Server routes MCP JSON-RPC requests to the tool, prompt and resource
// registries.
type Server struct {
	tools     *tools.Registry
	prompts   *prompts.Registry
	resources *resources.Registry
	feed      *activity.Feed
	metrics   *telemetry.Metrics
	log       *logrus.Entry
}

// NewServer wires the registries into a dispatcher.
func NewServer(opts Options) *Server {
	return &Server{
		tools:     opts.Tools,
		prompts:   opts.Prompts,
		resources: opts.Resources,
		feed:      opts.Feed,
		metrics:   opts.Metrics,
		log:       opts.Log,
	}
}

// Handle routes a single request and always produces a response envelope.
// The response id mirrors the request id verbatim, null included.
func (s *Server) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	s.metrics.RecordRequest(ctx, req.Method)

	if req.JSONRPC != "2.0" {
		return s.fail(ctx, req, protocol.CodeInvalidRequest, "invalid jsonrpc version")
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return reply(req, protocol.ListToolsResult{Tools: s.tools.Describe()})
	case "tools/call":
		return s.handleToolCall(ctx, req)
	case "prompts/list":
		return reply(req, protocol.ListPromptsResult{Prompts: s.prompts.List()})
	case "prompts/get":
		return s.handlePromptGet(ctx, req)
	case "resources/list":
		return s.handleResourceList(ctx, req)
	case "resources/read":
		return s.handleResourceRead(ctx, req)
	default:
		return s.fail(ctx, req, protocol.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req protocol.Request) protocol.Response {
	return reply(req, map[string]any{
		"protocolVersion": protocol.Version,
		"serverInfo": map[string]string{
			"name":    version.Name,
			"version": version.Get().Version,
		},
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"prompts":   map[string]any{},
			"resources": map[string]any{},
			"sampling":  map[string]any{},
		},
	})
}

func (s *Server) handleToolCall(ctx context.Context, req protocol.Request) protocol.Response {
	var params protocol.CallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.fail(ctx, req, protocol.CodeInvalidParams, "invalid params: "+err.Error())
		}
	}
	if params.Name == "" {
		return s.fail(ctx, req, protocol.CodeInvalidParams, "tool name required")
	}

	// Call never fails at the protocol level; unknown tools and handler
	// failures come back inside the result with isError set.
	return reply(req, s.tools.Call(ctx, params.Name, params.Args))
}

func (s *Server) handlePromptGet(ctx context.Context, req protocol.Request) protocol.Response {
	var params protocol.GetPromptParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.fail(ctx, req, protocol.CodeInvalidParams, "invalid params: "+err.Error())
		}
	}
	if params.Name == "" {
		return s.fail(ctx, req, protocol.CodeInvalidParams, "prompt name required")
	}

	result, err := s.prompts.Generate(params.Name, params.Args)
	if err != nil {
		return s.fail(ctx, req, protocol.CodeInvalidParams, err.Error())
	}
	return reply(req, result)
}

func (s *Server) handleResourceList(ctx context.Context, req protocol.Request) protocol.Response {
	descriptors, err := s.resources.List(ctx)
	if err != nil {
		return s.fail(ctx, req, protocol.CodeInternalError, "list resources: "+err.Error())
	}
	return reply(req, protocol.ListResourcesResult{Resources: descriptors})
}

func (s *Server) handleResourceRead(ctx context.Context, req protocol.Request) protocol.Response {
	var params protocol.ReadResourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.fail(ctx, req, protocol.CodeInvalidParams, "invalid params: "+err.Error())
		}
	}
	if params.URI == "" {
		return s.fail(ctx, req, protocol.CodeInvalidParams, "resource uri required")
	}

	result, err := s.resources.Read(ctx, params.URI)
	if err != nil {
		var unknown *resources.UnknownResourceError
		var missing *resources.NotFoundError
		if errors.As(err, &unknown) || errors.As(err, &missing) {
			return s.fail(ctx, req, protocol.CodeInvalidParams, err.Error())
		}
		return s.fail(ctx, req, protocol.CodeInternalError, "read resource: "+err.Error())
	}

	if s.feed != nil {
		s.feed.Record("resource", params.URI)
	}
	return reply(req, result)
}

func (s *Server) fail(ctx context.Context, req protocol.Request, code int, message string) protocol.Response {
	s.metrics.RecordRequestError(ctx, req.Method, code)
	if s.log != nil {
		s.log.WithFields(logrus.Fields{"method": req.Method, "code": code}).Debug(message)
	}
	return protocol.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   &protocol.ResponseError{Code: code, Message: message},
	}
}

func reply(req protocol.Request, result any) protocol.Response {
	return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}
