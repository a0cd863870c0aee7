package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Message is one chat turn in a request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the generation knobs forwarded to the backend.
type Options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	MaxTokens     int     `json:"num_predict,omitempty"`
}

// ChatRequest is a chat-style completion request.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  Options   `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chunk is one streamed fragment of a completion.
type Chunk struct {
	Content string
	Done    bool
	Err     error
}

// Client talks to an Ollama-compatible completion backend. It supports
// non-streaming and token-streaming chat plus a liveness probe; failures are
// classified via Classify.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client. The HTTP client carries no overall
// timeout; per-call deadlines come from the caller's context so turns can be
// cancelled on session teardown.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Ping probes backend liveness. A negative probe means callers should
// short-circuit to their fallback path without attempting generation.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// ListModels returns the model names the backend advertises.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, Classify(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}
	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Chat issues a non-streaming completion and returns the final text.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	req.Stream = false
	resp, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Classify(err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}
	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// ChatStream issues a streaming completion. Chunks arrive on the returned
// channel until the backend reports done or the context is cancelled; the
// channel is always closed. A terminal decode failure is delivered as a chunk
// with Err set. Unparseable individual lines are skipped: the stream recovers
// by treating the remainder as plain content.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	req.Stream = true
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		sawContent := false
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var parsed chatResponse
			if err := json.Unmarshal(line, &parsed); err != nil {
				c.logger.Debug("skipping malformed stream line", zap.Error(err))
				continue
			}
			if parsed.Message.Content != "" {
				sawContent = true
				select {
				case out <- Chunk{Content: parsed.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if parsed.Done {
				select {
				case out <- Chunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- Chunk{Err: Classify(err)}:
			case <-ctx.Done():
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		// Stream ended without done:true. Recoverable when some content
		// arrived, otherwise the backend gave us nothing usable.
		if sawContent {
			select {
			case out <- Chunk{Done: true}:
			case <-ctx.Done():
			}
		} else {
			select {
			case out <- Chunk{Err: ErrEmptyResponse}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (c *Client) post(ctx context.Context, req *ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, Classify(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, Classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, body)
	}
	return resp, nil
}

// BaseURL exposes the configured backend address, mainly for health reporting.
func (c *Client) BaseURL() string { return c.baseURL }
