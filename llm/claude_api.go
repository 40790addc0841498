package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	defaultModel        = "claude-sonnet-4-20250514"
)

// ClaudeAPI implements Provider using the Anthropic API directly, with
// server-sent-event streaming.
type ClaudeAPI struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewClaudeAPI creates a new Claude API provider.
// If apiKey is empty, it reads from ANTHROPIC_API_KEY environment variable.
func NewClaudeAPI(apiKey string) *ClaudeAPI {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &ClaudeAPI{
		apiKey:    apiKey,
		model:     defaultModel,
		maxTokens: 8192,
		client:    &http.Client{},
	}
}

// WithModel sets a specific model to use.
func (c *ClaudeAPI) WithModel(model string) *ClaudeAPI {
	if model != "" {
		c.model = model
	}
	return c
}

// WithMaxTokens sets the response token budget.
func (c *ClaudeAPI) WithMaxTokens(n int) *ClaudeAPI {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// Name returns the provider name.
func (c *ClaudeAPI) Name() string {
	return "claude-api"
}

// Available checks if an API key is configured.
func (c *ClaudeAPI) Available() bool {
	return c.apiKey != ""
}

// Stream sends a conversation to the Anthropic API with streaming enabled
// and forwards text deltas to onToken as they arrive. Whatever text had
// accumulated is returned alongside any error, including cancellation.
func (c *ClaudeAPI) Stream(ctx context.Context, system string, messages []Message, onToken func(string)) (string, error) {
	apiMsgs := make([]apiMessage, len(messages))
	for i, msg := range messages {
		apiMsgs[i] = apiMessage{Role: msg.Role, Content: msg.Content}
	}

	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  apiMsgs,
		Stream:    true,
	}
	if system != "" {
		reqBody.System = system
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicAPIURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr apiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return readEventStream(resp.Body, onToken)
}

// readEventStream consumes the SSE body, extracting text deltas. The scanner
// stops on read errors (including context cancellation severing the body);
// the text gathered so far is always returned.
func readEventStream(body io.Reader, onToken func(string)) (string, error) {
	var sb strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				sb.WriteString(ev.Delta.Text)
				if onToken != nil {
					onToken(ev.Delta.Text)
				}
			}
		case "error":
			return sb.String(), fmt.Errorf("stream error: %s", ev.Error.Message)
		case "message_stop":
			return sb.String(), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return sb.String(), fmt.Errorf("reading stream: %w", err)
	}
	return sb.String(), nil
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	Stream    bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
