package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/calvaresi/intervista/internal/config"
	"github.com/calvaresi/intervista/internal/observability"
	"github.com/calvaresi/intervista/internal/orchestrator"
	"github.com/calvaresi/intervista/internal/session"
	"github.com/calvaresi/intervista/internal/voice"
)

// Server is the transport adapter over the orchestration engine.
type Server struct {
	cfg      config.Config
	orch     *orchestrator.Orchestrator
	metrics  *observability.Metrics
	voice    voice.Providers
	upgrader websocket.Upgrader
}

func New(cfg config.Config, orch *orchestrator.Orchestrator, metrics *observability.Metrics, providers voice.Providers) *Server {
	return &Server{
		cfg:     cfg,
		orch:    orch,
		metrics: metrics,
		voice:   providers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser clients may drive a session
				// unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/turns", s.handlePerfTurns)

	r.Post("/v1/interview/session", s.handleStartSession)
	r.Get("/v1/interview/session/ws", s.handleSessionWS)
	r.Post("/v1/interview/session/{id}/answer", s.handleSubmitAnswer)
	r.Post("/v1/interview/session/{id}/voice", s.handleVoiceAnswer)
	r.Post("/v1/interview/session/{id}/end", s.handleEndSession)
	r.Get("/v1/interview/session/{id}/feedback", s.handleFeedback)
	r.Get("/v1/interview/session/{id}", s.handleGetSession)
	r.Delete("/v1/interview/session/{id}", s.handleDeleteSession)
	r.Get("/v1/interview/sessions/active", s.handleActiveSessions)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"voice_provider": s.voice.Mode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handlePerfTurns(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.Turns.Snapshot())
}

type startSessionRequest struct {
	Role            string `json:"role"`
	ExperienceLevel string `json:"experience_level"`
	CandidateName   string `json:"candidate_name"`
}

type startSessionResponse struct {
	SessionID     string `json:"session_id"`
	Role          string `json:"role"`
	Level         string `json:"experience_level"`
	Stage         string `json:"stage"`
	FirstQuestion string `json:"first_question"`
	QuestionCount int    `json:"question_number"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := s.orch.Start(r.Context(), req.Role, req.ExperienceLevel, req.CandidateName)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:     sess.ID,
		Role:          string(sess.Role),
		Level:         string(sess.Level),
		Stage:         string(sess.Stage),
		FirstQuestion: sess.Transcript[0].Text,
		QuestionCount: sess.QuestionCount,
	})
}

type submitAnswerRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req submitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.orch.SubmitAnswer(r.Context(), id, req.Text)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type voiceAnswerRequest struct {
	AudioBase64 string `json:"audio_base64"`
}

type voiceAnswerResponse struct {
	orchestrator.TurnResult
	TranscribedText string `json:"transcribed_text"`
	AudioBase64     string `json:"audio_base64,omitempty"`
	AudioFormat     string `json:"audio_format,omitempty"`
}

func (s *Server) handleVoiceAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.voice.Transcriber == nil {
		respondError(w, http.StatusNotImplemented, "voice_unavailable", "no speech-to-text backend configured; use the text endpoint")
		return
	}

	var req voiceAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	audio, err := decodeBase64Audio(req.AudioBase64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_audio", err.Error())
		return
	}

	text, err := s.voice.Transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		s.metrics.TranscriptionErrors.Inc()
		respondError(w, http.StatusBadRequest, "could_not_understand_audio", "could not understand audio; please repeat or type your answer")
		return
	}

	res, err := s.orch.SubmitAnswer(r.Context(), id, text)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	out := voiceAnswerResponse{TurnResult: res, TranscribedText: text}
	if s.voice.Synthesizer != nil {
		// Synthesis failure is non-fatal; the response stays text-only.
		if data, format, err := s.voice.Synthesizer.Synthesize(r.Context(), res.Response); err == nil && len(data) > 0 {
			out.AudioBase64 = encodeBase64Audio(data)
			out.AudioFormat = format
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.orch.End(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionSummary(sess))
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fb, err := s.orch.Feedback(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fb)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.orch.GetSession(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionSummary(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.orch.DeleteSession(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	active, err := s.orch.ActiveSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	summaries := make([]map[string]any, 0, len(active))
	for _, sess := range active {
		summaries = append(summaries, sessionSummary(sess))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_active_sessions": len(summaries),
		"sessions":              summaries,
	})
}

func sessionSummary(sess *session.Session) map[string]any {
	out := map[string]any{
		"session_id":       sess.ID,
		"role":             sess.Role,
		"experience_level": sess.Level,
		"stage":            sess.Stage,
		"question_number":  sess.QuestionCount,
		"started_at":       sess.StartedAt,
		"last_activity_at": sess.LastActivityAt,
	}
	if sess.CandidateName != "" {
		out["candidate_name"] = sess.CandidateName
	}
	if !sess.EndedAt.IsZero() {
		out["ended_at"] = sess.EndedAt
	}
	if sess.Feedback != nil {
		out["feedback"] = sess.Feedback
	}
	return out
}

func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidConfiguration):
		respondError(w, http.StatusBadRequest, "invalid_configuration", err.Error())
	case errors.Is(err, orchestrator.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "session not found or expired")
	case errors.Is(err, orchestrator.ErrSessionEnded):
		respondError(w, http.StatusConflict, "session_already_ended", err.Error())
	case errors.Is(err, orchestrator.ErrInterviewActive):
		respondError(w, http.StatusConflict, "interview_in_progress", "end the interview before requesting feedback")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
