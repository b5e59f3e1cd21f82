package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calvaresi/intervista/internal/interview"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeCandidateAnswer MessageType = "candidate_answer"
	TypeClientControl   MessageType = "client_control"
	TypeInterviewerTurn MessageType = "interviewer_turn"
	TypeStageChanged    MessageType = "stage_changed"
	TypeFeedbackReady   MessageType = "feedback_ready"
	TypeErrorEvent      MessageType = "error_event"
)

// ControlEnd asks the server to end the interview immediately.
const ControlEnd = "end"

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// CandidateAnswer carries one candidate utterance, already text.
type CandidateAnswer struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

// ClientControl carries session-level commands, currently only "end".
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// InterviewerTurn is the interviewer's next line.
type InterviewerTurn struct {
	Type           MessageType     `json:"type"`
	SessionID      string          `json:"session_id"`
	Text           string          `json:"text"`
	Stage          interview.Stage `json:"stage"`
	QuestionNumber int             `json:"question_number"`
}

// StageChanged announces a stage transition.
type StageChanged struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id"`
	Stage     interview.Stage `json:"stage"`
}

// FeedbackReady delivers the final report over the live channel.
type FeedbackReady struct {
	Type      MessageType        `json:"type"`
	SessionID string             `json:"session_id"`
	Feedback  interview.Feedback `json:"feedback"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound client message.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeCandidateAnswer:
		var msg CandidateAnswer
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid candidate_answer")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
