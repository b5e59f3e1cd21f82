package session

import (
	"time"

	"github.com/calvaresi/intervista/internal/interview"
)

// Session is the unit of state for one interview. The store owns all
// Session values; callers only ever see copies.
type Session struct {
	ID             string              `json:"session_id"`
	Role           interview.Role      `json:"role"`
	Level          interview.Level     `json:"experience_level"`
	CandidateName  string              `json:"candidate_name,omitempty"`
	Stage          interview.Stage     `json:"stage"`
	QuestionCount  int                 `json:"question_count"`
	Transcript     []interview.Turn    `json:"transcript"`
	Feedback       *interview.Feedback `json:"feedback,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	EndedAt        time.Time           `json:"ended_at,omitzero"`
	LastActivityAt time.Time           `json:"last_activity_at"`

	// StageEnteredAt and QuestionsInStage feed the stage machine's
	// time-budget and question-cap signals.
	StageEnteredAt   time.Time `json:"stage_entered_at"`
	QuestionsInStage int       `json:"questions_in_stage"`
}

// NextSequence returns the sequence number for the next appended turn.
func (s *Session) NextSequence() int { return len(s.Transcript) }

// AppendTurn records one immutable turn and keeps the question counters in
// step with the transcript.
func (s *Session) AppendTurn(speaker interview.Speaker, text string, stage interview.Stage, at time.Time) interview.Turn {
	t := interview.Turn{
		Sequence:  s.NextSequence(),
		Speaker:   speaker,
		Text:      text,
		Stage:     stage,
		Timestamp: at,
	}
	s.Transcript = append(s.Transcript, t)
	if speaker == interview.SpeakerInterviewer {
		s.QuestionCount++
		s.QuestionsInStage++
	}
	return t
}

// EnterStage moves the session into stage and resets the per-stage counters.
func (s *Session) EnterStage(stage interview.Stage, at time.Time) {
	if stage == s.Stage {
		return
	}
	s.Stage = stage
	s.StageEnteredAt = at
	s.QuestionsInStage = 0
	if stage.Terminal() {
		s.EndedAt = at
	}
}

// Clone returns a deep copy safe to hand outside the store.
func (s *Session) Clone() *Session {
	c := *s
	if s.Transcript != nil {
		c.Transcript = make([]interview.Turn, len(s.Transcript))
		copy(c.Transcript, s.Transcript)
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		fb.Strengths = append([]string(nil), s.Feedback.Strengths...)
		fb.AreasForImprovement = append([]string(nil), s.Feedback.AreasForImprovement...)
		fb.Recommendations = append([]string(nil), s.Feedback.Recommendations...)
		c.Feedback = &fb
	}
	return &c
}
