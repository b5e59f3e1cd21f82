// Package voice models speech conversion as two independent, individually
// optional capabilities. Either may be absent without affecting interview
// semantics: the HTTP surface degrades to text-only.
package voice

import (
	"context"
	"errors"
)

// ErrTranscription reports unintelligible or empty audio. Callers surface
// it as "could not understand audio" and fall back to text input.
var ErrTranscription = errors.New("could not transcribe audio")

// Transcriber converts candidate audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts interviewer text into audio. A failure is non-fatal;
// the caller proceeds text-only.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (data []byte, format string, err error)
}
