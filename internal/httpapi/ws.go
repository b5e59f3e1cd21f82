package httpapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/calvaresi/intervista/internal/interview"
	"github.com/calvaresi/intervista/internal/orchestrator"
	"github.com/calvaresi/intervista/internal/protocol"
	"github.com/calvaresi/intervista/internal/session"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 1 << 20
)

// handleSessionWS runs a live interview over one websocket connection.
// Messages are handled strictly in arrival order: the per-session gate in
// the orchestrator already queues concurrent work, and a single read loop
// keeps writes single-threaded.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.orch.GetSession(r.Context(), sessionID); err != nil {
		s.respondDomainError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.CandidateAnswer:
			s.wsCandidateAnswer(r, conn, sessionID, msg)
		case protocol.ClientControl:
			s.wsControl(r, conn, sessionID, msg)
		}
	}
}

func (s *Server) wsCandidateAnswer(r *http.Request, conn *websocket.Conn, sessionID string, msg protocol.CandidateAnswer) {
	before, err := s.orch.GetSession(r.Context(), sessionID)
	if err != nil {
		s.writeWSError(conn, sessionID, err)
		return
	}

	res, err := s.orch.SubmitAnswer(r.Context(), sessionID, msg.Text)
	if err != nil {
		s.writeWSError(conn, sessionID, err)
		return
	}

	if res.Stage != before.Stage {
		s.writeWS(conn, protocol.StageChanged{
			Type:      protocol.TypeStageChanged,
			SessionID: sessionID,
			Stage:     res.Stage,
		})
	}
	s.writeWS(conn, protocol.InterviewerTurn{
		Type:           protocol.TypeInterviewerTurn,
		SessionID:      sessionID,
		Text:           res.Response,
		Stage:          res.Stage,
		QuestionNumber: res.QuestionNumber,
	})
}

func (s *Server) wsControl(r *http.Request, conn *websocket.Conn, sessionID string, msg protocol.ClientControl) {
	if msg.Action != protocol.ControlEnd {
		s.writeWS(conn, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "unknown_action",
			Detail:    fmt.Sprintf("unsupported control action %q", msg.Action),
		})
		return
	}

	sess, err := s.orch.End(r.Context(), sessionID)
	if err != nil {
		s.writeWSError(conn, sessionID, err)
		return
	}
	s.writeWS(conn, protocol.StageChanged{
		Type:      protocol.TypeStageChanged,
		SessionID: sessionID,
		Stage:     sess.Stage,
	})

	fb, err := s.orch.Feedback(r.Context(), sessionID)
	if err != nil {
		s.writeWSError(conn, sessionID, err)
		return
	}
	s.writeWS(conn, protocol.FeedbackReady{
		Type:      protocol.TypeFeedbackReady,
		SessionID: sessionID,
		Feedback:  fb,
	})
	s.writeWS(conn, protocol.StageChanged{
		Type:      protocol.TypeStageChanged,
		SessionID: sessionID,
		Stage:     interview.StageCompleted,
	})
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteJSON(msg)
}

func (s *Server) writeWSError(conn *websocket.Conn, sessionID string, err error) {
	code := "internal_error"
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = "session_not_found"
	case errors.Is(err, orchestrator.ErrSessionEnded):
		code = "session_already_ended"
	case errors.Is(err, orchestrator.ErrInvalidInput):
		code = "invalid_input"
	case errors.Is(err, orchestrator.ErrInterviewActive):
		code = "interview_in_progress"
	}
	s.writeWS(conn, protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      code,
		Retryable: false,
		Detail:    err.Error(),
	})
}

func decodeBase64Audio(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("audio payload is empty")
	}
	// Tolerate data URL prefixes from browser recorders.
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	return data, nil
}

func encodeBase64Audio(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
