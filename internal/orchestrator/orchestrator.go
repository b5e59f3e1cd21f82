// Package orchestrator drives the interview turn pipeline: it validates
// input, builds generation context, invokes the generation capability, and
// applies stage transitions through a single atomic store update per call.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calvaresi/intervista/internal/interview"
	"github.com/calvaresi/intervista/internal/llm"
	"github.com/calvaresi/intervista/internal/observability"
	"github.com/calvaresi/intervista/internal/prompt"
	"github.com/calvaresi/intervista/internal/session"
)

var (
	// ErrInvalidConfiguration reports a bad role or experience level at
	// start; no session is created.
	ErrInvalidConfiguration = errors.New("invalid interview configuration")
	// ErrInvalidInput reports empty answer text; the session is unchanged.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionEnded reports a mutation attempt on a terminal session.
	ErrSessionEnded = errors.New("session already ended")
	// ErrInterviewActive reports a feedback request before the interview
	// reached wrap-up.
	ErrInterviewActive = errors.New("interview still in progress")
)

const (
	// fallbackQuestion keeps the interview moving when generation fails
	// twice in a row; a transient backend outage must never hard-fail a
	// session mid-interview.
	fallbackQuestion = "Could you elaborate further on that?"
)

// Orchestrator coordinates sessions, generation, and stage transitions.
// All per-session work is queued behind a per-id gate: a second request for
// the same session waits for the earlier one, never interleaves with it.
type Orchestrator struct {
	store   session.Store
	adapter llm.Adapter
	prompts *prompt.Builder
	plan    interview.StagePlan
	metrics *observability.Metrics

	genTimeout time.Duration
	now        func() time.Time

	gatesMu sync.Mutex
	gates   map[string]*sync.Mutex
}

func New(store session.Store, adapter llm.Adapter, prompts *prompt.Builder, plan interview.StagePlan, metrics *observability.Metrics, genTimeout time.Duration) *Orchestrator {
	if genTimeout <= 0 {
		genTimeout = 30 * time.Second
	}
	return &Orchestrator{
		store:      store,
		adapter:    adapter,
		prompts:    prompts,
		plan:       plan,
		metrics:    metrics,
		genTimeout: genTimeout,
		now:        func() time.Time { return time.Now().UTC() },
		gates:      make(map[string]*sync.Mutex),
	}
}

// TurnResult is the outcome of one submitted answer.
type TurnResult struct {
	Response       string          `json:"response_text"`
	Stage          interview.Stage `json:"stage"`
	QuestionNumber int             `json:"question_number"`
}

// Start creates a session in the introduction stage and produces the
// opening question as turn zero.
func (o *Orchestrator) Start(ctx context.Context, role, level, candidateName string) (*session.Session, error) {
	r, err := interview.ParseRole(role)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfiguration, err)
	}
	l, err := interview.ParseLevel(level)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfiguration, err)
	}

	now := o.now()
	opening := o.generateWithRetry(ctx, o.prompts.Opening(r, l, candidateName), openingTemplate(r, candidateName))

	s := &session.Session{
		ID:             uuid.NewString(),
		Role:           r,
		Level:          l,
		CandidateName:  strings.TrimSpace(candidateName),
		Stage:          interview.StageIntroduction,
		StartedAt:      now,
		LastActivityAt: now,
		StageEnteredAt: now,
	}
	s.AppendTurn(interview.SpeakerInterviewer, opening, interview.StageIntroduction, now)

	if err := o.store.Create(ctx, s); err != nil {
		return nil, err
	}
	o.metrics.SessionEvents.WithLabelValues("created").Inc()
	o.bumpActiveGauge(ctx)
	return s.Clone(), nil
}

// SubmitAnswer appends the candidate's answer, obtains the interviewer's
// next line, and applies any due stage transition, all persisted in one
// atomic update. Exactly one candidate+interviewer turn pair is appended,
// except when the call moves the interview into wrap-up, where the
// interviewer line is the closing remarks instead of a question.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, id, text string) (TurnResult, error) {
	answer := strings.TrimSpace(text)
	if answer == "" {
		return TurnResult{}, errors.Join(ErrInvalidInput, errors.New("answer text is empty"))
	}

	gate := o.gate(id)
	gate.Lock()
	defer gate.Unlock()

	started := o.now()
	snap, err := o.store.Get(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	if snap.Stage.Terminal() {
		return TurnResult{}, ErrSessionEnded
	}

	// Decide the stage transition before generating, so the generation
	// context frames questions for the stage being entered.
	next := interview.NextStage(o.plan, snap.Stage, interview.Signals{
		QuestionsInStage: snap.QuestionsInStage,
		StageElapsed:     started.Sub(snap.StageEnteredAt),
	})

	var response string
	if next == interview.StageWrapUp {
		response = closingRemarks(snap.CandidateName)
	} else {
		// The generation call blocks; it runs outside any store lock.
		preview := snap.Clone()
		preview.AppendTurn(interview.SpeakerCandidate, answer, snap.Stage, started)
		req := o.prompts.NextQuestion(snap.Role, snap.Level, next, snap.QuestionCount, preview.Transcript)
		response = o.generateWithRetry(ctx, req, fallbackQuestion)
	}

	updated, err := o.store.Update(ctx, id, func(s *session.Session) error {
		if s.Stage.Terminal() {
			return ErrSessionEnded
		}
		now := o.now()
		s.AppendTurn(interview.SpeakerCandidate, answer, s.Stage, now)
		s.EnterStage(next, now)
		s.AppendTurn(interview.SpeakerInterviewer, response, s.Stage, now)
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	o.metrics.SessionEvents.WithLabelValues("turn").Inc()
	o.metrics.ObserveTurn(string(updated.Stage), o.now().Sub(started))

	return TurnResult{
		Response:       response,
		Stage:          updated.Stage,
		QuestionNumber: updated.QuestionCount,
	}, nil
}

// End forces the session into wrap-up, recording the closing remarks once.
// It is idempotent: ending a session already in wrap-up or completed
// returns the current state without appending another turn.
func (o *Orchestrator) End(ctx context.Context, id string) (*session.Session, error) {
	gate := o.gate(id)
	gate.Lock()
	defer gate.Unlock()

	snap, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Stage == interview.StageWrapUp || snap.Stage.Terminal() {
		return snap, nil
	}

	updated, err := o.store.Update(ctx, id, func(s *session.Session) error {
		if s.Stage == interview.StageWrapUp || s.Stage.Terminal() {
			return nil
		}
		now := o.now()
		next := interview.NextStage(o.plan, s.Stage, interview.Signals{EndRequested: true})
		s.EnterStage(next, now)
		s.AppendTurn(interview.SpeakerInterviewer, closingRemarks(s.CandidateName), s.Stage, now)
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.metrics.SessionEvents.WithLabelValues("ended").Inc()
	return updated, nil
}

// GetSession returns a copy of the current session state.
func (o *Orchestrator) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return o.store.Get(ctx, id)
}

// ActiveSessions lists sessions that have not completed.
func (o *Orchestrator) ActiveSessions(ctx context.Context) ([]*session.Session, error) {
	return o.store.Active(ctx)
}

// DeleteSession removes a session entirely.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	err := o.store.Delete(ctx, id)
	if err == nil {
		o.dropGate(id)
		o.metrics.SessionEvents.WithLabelValues("deleted").Inc()
		o.bumpActiveGauge(ctx)
	}
	return err
}

// generateWithRetry calls the generation capability with a timeout, retries
// once with the same context on failure, and returns the deterministic
// fallback line when both attempts fail. Failures reach the operator via
// metrics and the log, never the candidate.
func (o *Orchestrator) generateWithRetry(ctx context.Context, req llm.Request, fallback string) string {
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
		resp, err := o.adapter.Complete(callCtx, req)
		cancel()
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			if attempt > 0 {
				o.metrics.GenerationFailures.WithLabelValues("recovered").Inc()
			}
			return strings.TrimSpace(resp.Text)
		}
		if err == nil {
			err = llm.ErrEmptyCompletion
		}
		log.Printf("generation attempt %d failed: %v", attempt+1, err)
		o.metrics.GenerationFailures.WithLabelValues("attempt").Inc()
		if ctx.Err() != nil {
			break
		}
	}
	o.metrics.GenerationFailures.WithLabelValues("fallback").Inc()
	o.metrics.Turns.ObserveIndicator("generation_fallback")
	return fallback
}

func (o *Orchestrator) gate(id string) *sync.Mutex {
	o.gatesMu.Lock()
	defer o.gatesMu.Unlock()
	g, ok := o.gates[id]
	if !ok {
		g = &sync.Mutex{}
		o.gates[id] = g
	}
	return g
}

func (o *Orchestrator) dropGate(id string) {
	o.gatesMu.Lock()
	defer o.gatesMu.Unlock()
	delete(o.gates, id)
}

func (o *Orchestrator) bumpActiveGauge(ctx context.Context) {
	active, err := o.store.Active(ctx)
	if err != nil {
		return
	}
	o.metrics.ActiveSessions.Set(float64(len(active)))
}

func openingTemplate(role interview.Role, candidateName string) string {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = "there"
	}
	return "Hi " + name + ", welcome to your mock " + role.Display() + " interview. " +
		"We'll go through a short introduction, some technical questions, and a few behavioral ones. " +
		"To get started, could you tell me about yourself and your background?"
}

func closingRemarks(candidateName string) string {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = "there"
	}
	return "Thanks " + name + ", that wraps up the interview. " +
		"I'll put together your feedback now; you can request it whenever you're ready."
}
