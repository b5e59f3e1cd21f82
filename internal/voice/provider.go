package voice

import (
	"fmt"
	"strings"
)

// Providers bundles the resolved speech capabilities. Either field may be
// nil: Transcriber nil means audio input is rejected with a text-input
// hint, Synthesizer nil means responses are text-only.
type Providers struct {
	Transcriber Transcriber
	Synthesizer Synthesizer
	Mode        string
}

// NewProviders resolves the voice provider mode: auto picks local whisper
// when available and otherwise disables audio input; mock wires the
// deterministic provider; off disables both capabilities.
func NewProviders(mode string, local LocalConfig) (Providers, error) {
	m := strings.ToLower(strings.TrimSpace(mode))
	if m == "" {
		m = "auto"
	}

	switch m {
	case "local":
		t, err := NewLocalTranscriber(local)
		if err != nil {
			return Providers{}, err
		}
		return Providers{Transcriber: t, Mode: "local"}, nil
	case "mock":
		p := NewMockProvider()
		return Providers{Transcriber: p, Synthesizer: p, Mode: "mock"}, nil
	case "off":
		return Providers{Mode: "off"}, nil
	case "auto":
		if t, err := NewLocalTranscriber(local); err == nil {
			return Providers{Transcriber: t, Mode: "local"}, nil
		}
		return Providers{Mode: "off"}, nil
	default:
		return Providers{}, fmt.Errorf("invalid voice provider %q (expected auto|local|mock|off)", mode)
	}
}
