package voice

import (
	"context"
	"errors"
	"testing"
)

func TestMockTranscribePassesPrintableTextThrough(t *testing.T) {
	p := NewMockProvider()
	text, err := p.Transcribe(context.Background(), []byte("I led the migration project."))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "I led the migration project." {
		t.Fatalf("text = %q", text)
	}
}

func TestMockTranscribeBinaryAudio(t *testing.T) {
	p := NewMockProvider()
	text, err := p.Transcribe(context.Background(), []byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text == "" {
		t.Fatalf("binary audio should yield a simulated answer")
	}
}

func TestMockTranscribeEmptyAudio(t *testing.T) {
	p := NewMockProvider()
	if _, err := p.Transcribe(context.Background(), nil); !errors.Is(err, ErrTranscription) {
		t.Fatalf("err = %v, want ErrTranscription", err)
	}
}

func TestMockSynthesizeEchoesText(t *testing.T) {
	p := NewMockProvider()
	data, format, err := p.Synthesize(context.Background(), "hello candidate")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != "hello candidate" || format != "mock_text_bytes" {
		t.Fatalf("data = %q, format = %q", data, format)
	}

	data, _, err = p.Synthesize(context.Background(), "   ")
	if err != nil || data != nil {
		t.Fatalf("blank text: data = %v, err = %v", data, err)
	}
}

func TestMockRespectsCancelledContext(t *testing.T) {
	p := NewMockProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Transcribe(ctx, []byte("hi")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewProvidersModes(t *testing.T) {
	off, err := NewProviders("off", LocalConfig{})
	if err != nil {
		t.Fatalf("off mode: %v", err)
	}
	if off.Transcriber != nil || off.Mode != "off" {
		t.Fatalf("off providers = %+v", off)
	}

	mock, err := NewProviders("mock", LocalConfig{})
	if err != nil {
		t.Fatalf("mock mode: %v", err)
	}
	if mock.Transcriber == nil || mock.Synthesizer == nil || mock.Mode != "mock" {
		t.Fatalf("mock providers = %+v", mock)
	}

	if _, err := NewProviders("hologram", LocalConfig{}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}
