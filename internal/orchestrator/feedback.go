package orchestrator

import (
	"context"
	"log"
	"strings"

	"github.com/calvaresi/intervista/internal/interview"
	"github.com/calvaresi/intervista/internal/session"
)

// Feedback synthesizes the end-of-interview report. The first call runs the
// evaluation and atomically records the report while flipping the stage to
// completed; later calls return the recorded report unchanged.
func (o *Orchestrator) Feedback(ctx context.Context, id string) (interview.Feedback, error) {
	gate := o.gate(id)
	gate.Lock()
	defer gate.Unlock()

	snap, err := o.store.Get(ctx, id)
	if err != nil {
		return interview.Feedback{}, err
	}
	if snap.Feedback != nil {
		return *snap.Feedback, nil
	}
	if snap.Stage != interview.StageWrapUp && !snap.Stage.Terminal() {
		return interview.Feedback{}, ErrInterviewActive
	}

	// Evaluation blocks on the generation capability; no store lock held.
	report := o.synthesize(ctx, snap)

	updated, err := o.store.Update(ctx, id, func(s *session.Session) error {
		if s.Feedback != nil {
			// Another path recorded feedback while we were evaluating.
			return nil
		}
		now := o.now()
		s.Feedback = &report
		s.EnterStage(interview.NextStage(o.plan, s.Stage, interview.Signals{FeedbackRecorded: true}), now)
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return interview.Feedback{}, err
	}

	o.metrics.SessionEvents.WithLabelValues("feedback").Inc()
	o.bumpActiveGauge(ctx)
	return *updated.Feedback, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, snap *session.Session) interview.Feedback {
	if !hasCandidateAnswers(snap) {
		return interview.EmptyTranscriptFeedback()
	}

	req := o.prompts.Evaluation(snap.Role, snap.Level, snap.Transcript)
	raw := o.generateWithRetry(ctx, req, "")
	if strings.TrimSpace(raw) == "" {
		return interview.HeuristicFeedback(snap.Transcript)
	}

	report, err := interview.ParseFeedback(raw)
	if err != nil {
		log.Printf("feedback parse failed for session %s: %v", snap.ID, err)
		o.metrics.GenerationFailures.WithLabelValues("malformed_feedback").Inc()
		return interview.HeuristicFeedback(snap.Transcript)
	}
	return report
}

func hasCandidateAnswers(s *session.Session) bool {
	for _, t := range s.Transcript {
		if t.Speaker == interview.SpeakerCandidate && strings.TrimSpace(t.Text) != "" {
			return true
		}
	}
	return false
}
