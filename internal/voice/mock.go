package voice

import (
	"context"
	"strings"
)

// MockProvider is a local fallback provider used when no speech backend is
// configured. Transcription yields a fixed candidate line; synthesis echoes
// the text bytes so round trips stay inspectable in tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if len(audio) == 0 {
		return "", ErrTranscription
	}
	// Non-empty text payloads pass through so tests can script answers.
	if text := strings.TrimSpace(string(audio)); text != "" && isPrintable(text) {
		return text, nil
	}
	return "simulated candidate answer", nil
}

func (p *MockProvider) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", nil
	}
	return []byte(text), "mock_text_bytes", nil
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}
	return true
}
