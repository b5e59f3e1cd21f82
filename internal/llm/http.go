package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calvaresi/intervista/internal/reliability"
)

const (
	httpMaxAttempts   = 3
	httpBackoffBase   = 200 * time.Millisecond
	httpBackoffCap    = 2 * time.Second
	httpErrBodySample = 4 << 10
)

// HTTPAdapter forwards requests to an OpenAI-style chat completions
// endpoint. Retryable upstream statuses are retried with capped backoff;
// everything else fails immediately.
type HTTPAdapter struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

func NewHTTPAdapter(cfg Config) *HTTPAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAdapter{
		url:    strings.TrimSpace(cfg.URL),
		model:  strings.TrimSpace(cfg.Model),
		apiKey: strings.TrimSpace(cfg.APIKey),
		client: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *HTTPAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(a.buildChatRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < httpMaxAttempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, httpBackoffBase, httpBackoffCap)
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, retryable, err := a.once(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return Response{}, lastErr
}

func (a *HTTPAdapter) once(ctx context.Context, payload []byte) (Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	res, err := a.client.Do(httpReq)
	if err != nil {
		// Transport failures (dial, timeout) are worth one more try.
		return Response{}, true, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, httpErrBodySample))
		return Response{}, reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("generation http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, true, fmt.Errorf("read response: %w", err)
	}

	text, err := extractCompletionText(body)
	if err != nil {
		return Response{}, false, err
	}
	return Response{Text: text}, false, nil
}

func (a *HTTPAdapter) buildChatRequest(req Request) chatRequest {
	out := chatRequest{Model: a.model}
	if strings.TrimSpace(req.System) != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func extractCompletionText(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Choices) > 0 {
		text := strings.TrimSpace(parsed.Choices[0].Message.Content)
		if text == "" {
			return "", ErrEmptyCompletion
		}
		return text, nil
	}

	// Some backends answer with a bare {"text": "..."} object.
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, k := range []string{"text", "output", "response"} {
			if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	}
	return "", fmt.Errorf("%w: unrecognized completion payload", ErrEmptyCompletion)
}
