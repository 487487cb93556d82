package protocol

import "encoding/json"

// Version is the protocol revision advertised by initialize.
const Version = "2024-11-05"

// JSON-RPC error codes used across the server.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request represents a minimal JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response models a JSON-RPC 2.0 response. The ID always mirrors the
// request's, including null.
type Response struct {
	JSONRPC string         `json:"jsonrpc,omitempty"`
	ID      any            `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// ResponseError holds JSON-RPC error data.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ToolDescriptor describes a tool available from the MCP server.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema *JSONSchema `json:"inputSchema,omitempty"`
}

// JSONSchema is a minimal subset to describe tool input shapes.
type JSONSchema struct {
	Type                 string                `json:"type,omitempty"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	Description          string                `json:"description,omitempty"`
	AdditionalProperties any                   `json:"additionalProperties,omitempty"`
}

// ListToolsResult is the payload for tools/list.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallParams represents parameters for tools/call.
type CallParams struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"arguments,omitempty"`
}

// ContentPart is a single piece of tool output.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the payload for a tool invocation. IsError marks a
// domain-level failure carried inside a structurally successful response.
type CallResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// PromptArgument describes one argument a prompt template accepts. Default
// applies when the argument is optional and omitted by the caller.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     string `json:"default,omitempty"`
}

// PromptDescriptor describes a registered prompt template.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ListPromptsResult is the payload for prompts/list.
type ListPromptsResult struct {
	Prompts []PromptDescriptor `json:"prompts"`
}

// GetPromptParams represents parameters for prompts/get.
type GetPromptParams struct {
	Name string            `json:"name"`
	Args map[string]string `json:"arguments,omitempty"`
}

// PromptMessage is one rendered message of a prompt template.
type PromptMessage struct {
	Role    string      `json:"role"`
	Content ContentPart `json:"content"`
}

// GetPromptResult is the payload for prompts/get.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ResourceDescriptor describes a readable resource.
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult is the payload for resources/list.
type ListResourcesResult struct {
	Resources []ResourceDescriptor `json:"resources"`
}

// ReadResourceParams represents parameters for resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContents carries the payload of a single read resource.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// ReadResourceResult is the payload for resources/read.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

// SamplingMessage is one message of a sampling/createMessage conversation.
type SamplingMessage struct {
	Role    string      `json:"role"`
	Content ContentPart `json:"content"`
}

// ModelHint names a preferred model family for sampling.
type ModelHint struct {
	Name string `json:"name"`
}

// ModelPreferences carries advisory model-selection priorities. Clients may
// ignore them.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         *float64    `json:"costPriority,omitempty"`
	SpeedPriority        *float64    `json:"speedPriority,omitempty"`
	IntelligencePriority *float64    `json:"intelligencePriority,omitempty"`
}

// CreateMessageParams is the params shape of sampling/createMessage.
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	MaxTokens        int               `json:"maxTokens"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
}

// CreateMessageResult is the client's answer to sampling/createMessage.
type CreateMessageResult struct {
	Role       string      `json:"role"`
	Content    ContentPart `json:"content"`
	Model      string      `json:"model,omitempty"`
	StopReason string      `json:"stopReason,omitempty"`
}
