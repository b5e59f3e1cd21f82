package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/calvaresi/intervista/internal/audio"
)

// LocalConfig configures the whisper.cpp CLI transcriber.
type LocalConfig struct {
	WhisperCLI       string
	WhisperModelPath string
	WhisperLanguage  string
	WhisperThreads   int
	SampleRate       int
}

// LocalTranscriber runs whisper-cli over a temporary WAV file per message.
// The interview exchanges whole utterances, so batch transcription is
// enough; no streaming session is kept open.
type LocalTranscriber struct {
	cfg LocalConfig
}

func NewLocalTranscriber(cfg LocalConfig) (*LocalTranscriber, error) {
	cli := strings.TrimSpace(cfg.WhisperCLI)
	if cli == "" {
		return nil, fmt.Errorf("whisper CLI path is empty")
	}
	if _, err := exec.LookPath(cli); err != nil {
		return nil, fmt.Errorf("whisper CLI %q not found: %w", cli, err)
	}
	if _, err := os.Stat(cfg.WhisperModelPath); err != nil {
		return nil, fmt.Errorf("whisper model %q: %w", cfg.WhisperModelPath, err)
	}
	if cfg.WhisperThreads <= 0 {
		cfg.WhisperThreads = runtime.NumCPU()
		if cfg.WhisperThreads > 4 {
			cfg.WhisperThreads = 4
		}
	}
	if cfg.WhisperLanguage == "" {
		cfg.WhisperLanguage = "en"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	return &LocalTranscriber{cfg: cfg}, nil
}

func (t *LocalTranscriber) Transcribe(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrTranscription
	}

	tmp, err := os.CreateTemp("", "intervista-stt-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp audio file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := audio.WriteWAVFile(tmpPath, data, t.cfg.SampleRate); err != nil {
		return "", fmt.Errorf("write temp audio file: %w", err)
	}

	args := []string{
		"-m", t.cfg.WhisperModelPath,
		"-l", t.cfg.WhisperLanguage,
		"-t", strconv.Itoa(t.cfg.WhisperThreads),
		"-np", "-nt",
		"-f", tmpPath,
	}
	cmd := exec.CommandContext(ctx, t.cfg.WhisperCLI, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper run failed: %w (%s)", err, tail(stderr.String(), 200))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", ErrTranscription
	}
	return text, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
