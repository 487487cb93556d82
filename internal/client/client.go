// Package client is a minimal MCP HTTP client, used by the seed command and
// by integration tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

// Client issues JSON-RPC calls to a running MCP server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	counter    uint64
}

// New builds a client with a sane timeout.
func New(baseURL string) *Client {
	trimmed := baseURL
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	return &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) nextID() any {
	return atomic.AddUint64(&c.counter, 1)
}

func (c *Client) do(ctx context.Context, method string, params any) (protocol.Response, error) {
	var resp protocol.Response

	payload := protocol.Request{
		JSONRPC: "2.0",
		ID:      c.nextID(),
		Method:  method,
		Params:  mustRaw(params),
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return resp, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(buf))
	if err != nil {
		return resp, fmt.Errorf("build http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return resp, fmt.Errorf("call mcp server: %w", err)
	}
	defer httpResp.Body.Close()

	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}

	if resp.Error != nil {
		return resp, errors.New(resp.Error.Message)
	}

	return resp, nil
}

// Initialize performs the MCP handshake and discards the capabilities.
func (c *Client) Initialize(ctx context.Context) error {
	_, err := c.do(ctx, "initialize", nil)
	return err
}

// ListTools fetches the advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	resp, err := c.do(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	result, err := decodeResult[protocol.ListToolsResult](resp.Result)
	if err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool. Domain failures come back inside the result with
// IsError set; only protocol failures surface as errors.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (protocol.CallResult, error) {
	resp, err := c.do(ctx, "tools/call", protocol.CallParams{Name: name, Args: mustRaw(args)})
	if err != nil {
		return protocol.CallResult{}, err
	}
	return decodeResult[protocol.CallResult](resp.Result)
}

// GetPrompt renders a prompt template with the supplied arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (protocol.GetPromptResult, error) {
	resp, err := c.do(ctx, "prompts/get", protocol.GetPromptParams{Name: name, Args: args})
	if err != nil {
		return protocol.GetPromptResult{}, err
	}
	return decodeResult[protocol.GetPromptResult](resp.Result)
}

// ListResources fetches the advertised resources.
func (c *Client) ListResources(ctx context.Context) ([]protocol.ResourceDescriptor, error) {
	resp, err := c.do(ctx, "resources/list", nil)
	if err != nil {
		return nil, err
	}
	result, err := decodeResult[protocol.ListResourcesResult](resp.Result)
	if err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads one resource by uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (protocol.ReadResourceResult, error) {
	resp, err := c.do(ctx, "resources/read", protocol.ReadResourceParams{URI: uri})
	if err != nil {
		return protocol.ReadResourceResult{}, err
	}
	return decodeResult[protocol.ReadResourceResult](resp.Result)
}

// decodeResult re-marshals the loosely typed result field into its concrete
// shape.
func decodeResult[T any](result any) (T, error) {
	var out T
	buf, err := json.Marshal(result)
	if err != nil {
		return out, fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(buf, &out); err != nil {
		return out, fmt.Errorf("unmarshal result: %w", err)
	}
	return out, nil
}

func mustRaw(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return buf
}
