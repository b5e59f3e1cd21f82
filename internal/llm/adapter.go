// Package llm abstracts the text-generation capability the interview engine
// depends on: a prompt goes in, text comes out, and the call may be slow or
// fail. Orchestration code never sees which backend is behind the Adapter.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Message is one conversational unit in a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized generation payload.
type Request struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

// Response is the completed generation output.
type Response struct {
	Text string `json:"text"`
}

// ErrEmptyCompletion reports a generation call that technically succeeded
// but produced no usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// Adapter bridges the interview engine with a text-generation backend.
type Adapter interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewFallbackAdapter(NewHTTPAdapter(cfg), NewMockAdapter()), nil
		}
		return NewMockAdapter(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("generation HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported generation adapter mode %q", cfg.Mode)
	}
}
