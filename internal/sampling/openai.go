package sampling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

// OpenAITransport answers sampling requests through a chat-completions style
// API (OpenAI-compatible). It stands in for a sampling-capable client when
// the server runs headless.
type OpenAITransport struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAITransport configures an OpenAI-compatible transport.
func NewOpenAITransport(apiKey, model, baseURL string) *OpenAITransport {
	url := strings.TrimRight(baseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	return &OpenAITransport{
		apiKey:  apiKey,
		model:   model,
		baseURL: url,
		httpClient: &http.Client{
			// Longer than the bridge deadline so the bridge, not the
			// HTTP client, decides when a request has taken too long.
			Timeout: 60 * time.Second,
		},
	}
}

// CreateMessage satisfies Transport by translating the sampling request into
// one chat-completions call.
func (c *OpenAITransport) CreateMessage(ctx context.Context, req Request) (protocol.CreateMessageResult, error) {
	var result protocol.CreateMessageResult

	if c.apiKey == "" {
		return result, errors.New("missing completion API key")
	}

	body := chatRequest{
		Model:       c.model,
		Temperature: 0.7,
		MaxTokens:   req.Params.MaxTokens,
		Stop:        req.Params.StopSequences,
	}
	if req.Params.Temperature != nil {
		body.Temperature = *req.Params.Temperature
	}
	if req.Params.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.Params.SystemPrompt})
	}
	for _, m := range req.Params.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content.Text})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return result, fmt.Errorf("encode completion request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return result, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return result, fmt.Errorf("decode completion response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return result, errors.New("completion endpoint returned no choices")
	}

	choice := chatResp.Choices[0]
	result.Role = "assistant"
	result.Content = protocol.ContentPart{Type: "text", Text: strings.TrimSpace(choice.Message.Content)}
	result.Model = chatResp.Model
	result.StopReason = stopReason(choice.FinishReason)
	return result, nil
}

func stopReason(finish string) string {
	switch finish {
	case "stop":
		return "endTurn"
	case "length":
		return "maxTokens"
	default:
		return finish
	}
}

// Minimal OpenAI-style request/response payloads

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

var _ Transport = (*OpenAITransport)(nil)
