package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calvaresi/intervista/internal/interview"
	"github.com/calvaresi/intervista/internal/llm"
	"github.com/calvaresi/intervista/internal/observability"
	"github.com/calvaresi/intervista/internal/prompt"
	"github.com/calvaresi/intervista/internal/session"
)

var metricsSeq atomic.Int64

// Metric registration is process-global, so every test gets its own
// namespace.
func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("orchtest%d", metricsSeq.Add(1)))
}

// scriptedAdapter answers every generation call with a canned line.
type scriptedAdapter struct {
	calls atomic.Int32
	text  string
}

func (a *scriptedAdapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	a.calls.Add(1)
	if strings.Contains(req.System, "overall_score") {
		return llm.Response{Text: `{"overall_score": 82, "strengths": ["clear"], "areas_for_improvement": ["depth"], "recommendations": ["practice"], "raw_detail": "solid"}`}, nil
	}
	return llm.Response{Text: a.text}, nil
}

// failingAdapter fails every call.
type failingAdapter struct {
	calls atomic.Int32
}

func (a *failingAdapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	a.calls.Add(1)
	return llm.Response{}, errors.New("backend unavailable")
}

// flakyAdapter fails the first call, then succeeds.
type flakyAdapter struct {
	calls atomic.Int32
	text  string
}

func (a *flakyAdapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if a.calls.Add(1) == 1 {
		return llm.Response{}, errors.New("transient")
	}
	return llm.Response{Text: a.text}, nil
}

func newTestOrchestrator(t *testing.T, adapter llm.Adapter) *Orchestrator {
	t.Helper()
	store := session.NewInMemoryStore(30 * time.Minute)
	return New(store, adapter, prompt.NewBuilder(10, 6000), interview.DefaultPlan(), newTestMetrics(), 5*time.Second)
}

func TestStartCreatesIntroductionSessionWithOpeningTurn(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "Welcome! Tell me about yourself."})
	s, err := o.Start(context.Background(), "software_engineer", "senior", "Marco")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Stage != interview.StageIntroduction {
		t.Fatalf("Stage = %q", s.Stage)
	}
	if s.QuestionCount != 1 {
		t.Fatalf("QuestionCount = %d, want 1", s.QuestionCount)
	}
	if len(s.Transcript) != 1 || s.Transcript[0].Speaker != interview.SpeakerInterviewer {
		t.Fatalf("transcript should open with one interviewer turn: %+v", s.Transcript)
	}
	if s.Transcript[0].Sequence != 0 {
		t.Fatalf("opening turn sequence = %d", s.Transcript[0].Sequence)
	}
}

func TestStartRejectsUnknownRoleAndLevel(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	if _, err := o.Start(context.Background(), "astronaut", "senior", ""); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := o.Start(context.Background(), "general", "wizard", ""); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestStartDefaultsEmptyRoleAndLevel(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, err := o.Start(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Role != interview.RoleGeneral || s.Level != interview.LevelMid {
		t.Fatalf("defaults = %q/%q", s.Role, s.Level)
	}
}

func TestSubmitAnswerRejectsEmptyText(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, _ := o.Start(context.Background(), "", "", "")
	if _, err := o.SubmitAnswer(context.Background(), s.ID, "   \n\t "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	after, _ := o.GetSession(context.Background(), s.ID)
	if len(after.Transcript) != 1 {
		t.Fatalf("rejected answer must not touch the transcript: %d turns", len(after.Transcript))
	}
}

func TestSubmitAnswerUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	if _, err := o.SubmitAnswer(context.Background(), "nope", "answer"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// With the default plan (1 intro, 3 technical, 3 behavioral questions) the
// interview advances on question caps and reaches wrap-up on the eighth
// answer, where the closing line replaces a generated question.
func TestFullInterviewProgression(t *testing.T) {
	adapter := &scriptedAdapter{text: "Good. Next question: how do you test your code?"}
	o := newTestOrchestrator(t, adapter)
	s, err := o.Start(context.Background(), "software_engineer", "mid", "Dana")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	wantStages := []interview.Stage{
		interview.StageTechnical, // answer 1 fills the intro cap
		interview.StageTechnical,
		interview.StageTechnical,
		interview.StageBehavioral, // answer 4 fills the technical cap
		interview.StageBehavioral,
		interview.StageBehavioral,
		interview.StageWrapUp, // answer 7 fills the behavioral cap
	}
	for i, want := range wantStages {
		res, err := o.SubmitAnswer(context.Background(), s.ID, fmt.Sprintf("answer number %d with some detail", i+1))
		if err != nil {
			t.Fatalf("SubmitAnswer %d: %v", i+1, err)
		}
		if res.Stage != want {
			t.Fatalf("answer %d: stage = %q, want %q", i+1, res.Stage, want)
		}
		if res.QuestionNumber != i+2 {
			t.Fatalf("answer %d: question number = %d, want %d", i+1, res.QuestionNumber, i+2)
		}
	}

	final, _ := o.GetSession(context.Background(), s.ID)
	if got := len(final.Transcript); got != 15 {
		t.Fatalf("transcript = %d turns, want 15", got)
	}
	for i, turn := range final.Transcript {
		if turn.Sequence != i {
			t.Fatalf("turn %d has sequence %d", i, turn.Sequence)
		}
	}
	interviewerTurns := 0
	for _, turn := range final.Transcript {
		if turn.Speaker == interview.SpeakerInterviewer {
			interviewerTurns++
		}
	}
	if final.QuestionCount != interviewerTurns {
		t.Fatalf("QuestionCount = %d, interviewer turns = %d", final.QuestionCount, interviewerTurns)
	}

	// The wrap-up line is deterministic, not generated.
	last := final.Transcript[len(final.Transcript)-1]
	if !strings.Contains(last.Text, "wraps up") {
		t.Fatalf("wrap-up line should be the closing remarks: %q", last.Text)
	}
}

func TestSubmitAnswerFallsBackWhenGenerationFailsTwice(t *testing.T) {
	adapter := &failingAdapter{}
	o := newTestOrchestrator(t, adapter)
	s, err := o.Start(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	adapter.calls.Store(0)

	res, err := o.SubmitAnswer(context.Background(), s.ID, "my answer")
	if err != nil {
		t.Fatalf("SubmitAnswer must not fail on generation errors: %v", err)
	}
	if res.Response != fallbackQuestion {
		t.Fatalf("Response = %q, want fallback line", res.Response)
	}
	if got := adapter.calls.Load(); got != 2 {
		t.Fatalf("generation attempts = %d, want 2", got)
	}
}

func TestSubmitAnswerRecoversOnSecondAttempt(t *testing.T) {
	adapter := &flakyAdapter{text: "Recovered question?"}
	o := newTestOrchestrator(t, &scriptedAdapter{text: "opening"})
	o.adapter = adapter
	s, err := o.Start(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	res, err := o.SubmitAnswer(context.Background(), s.ID, "my answer")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.Response != "Recovered question?" {
		t.Fatalf("Response = %q", res.Response)
	}
}

func TestEndMovesToWrapUpFromAnyStage(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, _ := o.Start(context.Background(), "", "", "Lia")

	ended, err := o.End(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Stage != interview.StageWrapUp {
		t.Fatalf("Stage = %q, want wrap_up", ended.Stage)
	}
	last := ended.Transcript[len(ended.Transcript)-1]
	if last.Speaker != interview.SpeakerInterviewer || !strings.Contains(last.Text, "Lia") {
		t.Fatalf("closing turn = %+v", last)
	}

	// Idempotent: a second End appends nothing.
	again, err := o.End(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("second End: %v", err)
	}
	if len(again.Transcript) != len(ended.Transcript) {
		t.Fatalf("second End appended a turn: %d vs %d", len(again.Transcript), len(ended.Transcript))
	}
}

func TestSubmitAnswerAfterEndFails(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, _ := o.Start(context.Background(), "", "", "")
	if _, err := o.End(context.Background(), s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := o.Feedback(context.Background(), s.ID); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if _, err := o.SubmitAnswer(context.Background(), s.ID, "late answer"); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("err = %v, want ErrSessionEnded", err)
	}
}

func TestFeedbackBeforeWrapUpFails(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, _ := o.Start(context.Background(), "", "", "")
	if _, err := o.Feedback(context.Background(), s.ID); !errors.Is(err, ErrInterviewActive) {
		t.Fatalf("err = %v, want ErrInterviewActive", err)
	}
}

func TestFeedbackCompletesSessionAndIsRecordedOnce(t *testing.T) {
	adapter := &scriptedAdapter{text: "next question"}
	o := newTestOrchestrator(t, adapter)
	s, _ := o.Start(context.Background(), "software_engineer", "mid", "")
	if _, err := o.SubmitAnswer(context.Background(), s.ID, "a substantive answer about systems design"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if _, err := o.End(context.Background(), s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	fb, err := o.Feedback(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if fb.OverallScore != 82 {
		t.Fatalf("OverallScore = %v, want 82", fb.OverallScore)
	}

	after, _ := o.GetSession(context.Background(), s.ID)
	if after.Stage != interview.StageCompleted {
		t.Fatalf("Stage = %q, want completed", after.Stage)
	}
	if after.EndedAt.IsZero() {
		t.Fatalf("EndedAt should be set on completion")
	}

	evalCalls := adapter.calls.Load()
	fb2, err := o.Feedback(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("second Feedback: %v", err)
	}
	if fb2.OverallScore != fb.OverallScore {
		t.Fatalf("repeated feedback diverged: %v vs %v", fb2.OverallScore, fb.OverallScore)
	}
	if adapter.calls.Load() != evalCalls {
		t.Fatalf("second Feedback must not re-run the evaluation")
	}
}

func TestFeedbackEmptyTranscriptScoresZero(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, _ := o.Start(context.Background(), "", "", "")
	if _, err := o.End(context.Background(), s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	fb, err := o.Feedback(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if fb.OverallScore != 0 {
		t.Fatalf("OverallScore = %v, want 0 for empty transcript", fb.OverallScore)
	}
}

func TestFeedbackFallsBackToHeuristicOnMalformedOutput(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "next"})
	s, _ := o.Start(context.Background(), "", "", "")
	if _, err := o.SubmitAnswer(context.Background(), s.ID, "an answer long enough to count as substantive content"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if _, err := o.End(context.Background(), s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	// Generation keeps failing, so the heuristic score applies.
	o.adapter = &failingAdapter{}
	fb, err := o.Feedback(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if fb.OverallScore <= 0 || fb.OverallScore > 85 {
		t.Fatalf("heuristic score out of range: %v", fb.OverallScore)
	}
	if len(fb.Recommendations) == 0 {
		t.Fatalf("heuristic feedback should carry recommendations")
	}
}

func TestConcurrentSubmitsAreSerialized(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "next question"})
	s, _ := o.Start(context.Background(), "", "", "")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := o.SubmitAnswer(context.Background(), s.ID, fmt.Sprintf("parallel answer %d", n))
			if err != nil && !errors.Is(err, ErrSessionEnded) {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit: %v", err)
	}

	final, _ := o.GetSession(context.Background(), s.ID)
	for i, turn := range final.Transcript {
		if turn.Sequence != i {
			t.Fatalf("turn %d has sequence %d", i, turn.Sequence)
		}
	}
	candidate := 0
	for _, turn := range final.Transcript {
		if turn.Speaker == interview.SpeakerCandidate {
			candidate++
		}
	}
	if candidate == 0 {
		t.Fatalf("no answers recorded")
	}
}

func TestDeleteSessionRemovesState(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAdapter{text: "hi"})
	s, _ := o.Start(context.Background(), "", "", "")
	if err := o.DeleteSession(context.Background(), s.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := o.GetSession(context.Background(), s.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
