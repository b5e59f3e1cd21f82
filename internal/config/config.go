package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/calvaresi/intervista/internal/interview"
)

// Config contains all runtime settings for the interview service. It is
// read once at process start and treated as read-only afterwards.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SessionTTL  time.Duration
	DatabaseURL string

	LLMMode    string
	LLMURL     string
	LLMModel   string
	LLMAPIKey  string
	LLMTimeout time.Duration

	VoiceProvider    string
	WhisperCLI       string
	WhisperModelPath string
	WhisperLanguage  string
	WhisperThreads   int

	HistoryTurns    int
	HistoryMaxChars int

	IntroQuestions      int
	TechnicalQuestions  int
	BehavioralQuestions int
	IntroBudget         time.Duration
	TechnicalBudget     time.Duration
	BehavioralBudget    time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "intervista"),
		ShutdownTimeout:  15 * time.Second,
		SessionTTL:       30 * time.Minute,
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		LLMMode:          envOrDefault("LLM_ADAPTER_MODE", "auto"),
		LLMURL:           trimmedEnv("LLM_HTTP_URL"),
		LLMModel:         envOrDefault("LLM_MODEL", "gemini-2.0-flash"),
		LLMAPIKey:        trimmedEnv("LLM_API_KEY"),
		LLMTimeout:       30 * time.Second,
		VoiceProvider:    envOrDefault("VOICE_PROVIDER", "auto"),
		WhisperCLI:       envOrDefault("LOCAL_WHISPER_CLI", "whisper-cli"),
		WhisperModelPath: envOrDefault("LOCAL_WHISPER_MODEL_PATH", ".models/whisper/ggml-base.bin"),
		WhisperLanguage:  envOrDefault("LOCAL_WHISPER_LANGUAGE", "en"),
		WhisperThreads:   0,
		HistoryTurns:     10,
		HistoryMaxChars:  6000,

		IntroQuestions:      1,
		TechnicalQuestions:  3,
		BehavioralQuestions: 3,
		IntroBudget:         5 * time.Minute,
		TechnicalBudget:     10 * time.Minute,
		BehavioralBudget:    10 * time.Minute,
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationFromEnv("APP_SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin); err != nil {
		return Config{}, err
	}
	if cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout); err != nil {
		return Config{}, err
	}
	if cfg.WhisperThreads, err = intFromEnv("LOCAL_WHISPER_THREADS", cfg.WhisperThreads); err != nil {
		return Config{}, err
	}
	if cfg.HistoryTurns, err = intFromEnv("INTERVIEW_HISTORY_TURNS", cfg.HistoryTurns); err != nil {
		return Config{}, err
	}
	if cfg.HistoryMaxChars, err = intFromEnv("INTERVIEW_HISTORY_MAX_CHARS", cfg.HistoryMaxChars); err != nil {
		return Config{}, err
	}
	if cfg.IntroQuestions, err = intFromEnv("INTERVIEW_INTRO_QUESTIONS", cfg.IntroQuestions); err != nil {
		return Config{}, err
	}
	if cfg.TechnicalQuestions, err = intFromEnv("INTERVIEW_TECHNICAL_QUESTIONS", cfg.TechnicalQuestions); err != nil {
		return Config{}, err
	}
	if cfg.BehavioralQuestions, err = intFromEnv("INTERVIEW_BEHAVIORAL_QUESTIONS", cfg.BehavioralQuestions); err != nil {
		return Config{}, err
	}
	if cfg.IntroBudget, err = durationFromEnv("INTERVIEW_INTRO_BUDGET", cfg.IntroBudget); err != nil {
		return Config{}, err
	}
	if cfg.TechnicalBudget, err = durationFromEnv("INTERVIEW_TECHNICAL_BUDGET", cfg.TechnicalBudget); err != nil {
		return Config{}, err
	}
	if cfg.BehavioralBudget, err = durationFromEnv("INTERVIEW_BEHAVIORAL_BUDGET", cfg.BehavioralBudget); err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL < 30*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_TTL must be at least 30s")
	}
	if cfg.LLMTimeout < time.Second {
		return Config{}, fmt.Errorf("LLM_TIMEOUT must be at least 1s")
	}
	if cfg.WhisperThreads < 0 {
		return Config{}, fmt.Errorf("LOCAL_WHISPER_THREADS must be >= 0")
	}
	if cfg.HistoryTurns <= 0 {
		return Config{}, fmt.Errorf("INTERVIEW_HISTORY_TURNS must be positive")
	}
	if cfg.IntroQuestions <= 0 || cfg.TechnicalQuestions <= 0 || cfg.BehavioralQuestions <= 0 {
		return Config{}, fmt.Errorf("per-stage question caps must be positive")
	}

	return cfg, nil
}

// StagePlan maps the configured caps and budgets onto the stage machine.
func (c Config) StagePlan() interview.StagePlan {
	return interview.StagePlan{
		QuestionCaps: map[interview.Stage]int{
			interview.StageIntroduction: c.IntroQuestions,
			interview.StageTechnical:    c.TechnicalQuestions,
			interview.StageBehavioral:   c.BehavioralQuestions,
		},
		TimeBudgets: map[interview.Stage]time.Duration{
			interview.StageIntroduction: c.IntroBudget,
			interview.StageTechnical:    c.TechnicalBudget,
			interview.StageBehavioral:   c.BehavioralBudget,
		},
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
