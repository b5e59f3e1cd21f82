package interview

import "time"

// Stage is a named phase of the interview.
type Stage string

const (
	StageIntroduction Stage = "introduction"
	StageTechnical    Stage = "technical"
	StageBehavioral   Stage = "behavioral"
	StageWrapUp       Stage = "wrap_up"
	StageCompleted    Stage = "completed"
)

var stageOrder = []Stage{
	StageIntroduction,
	StageTechnical,
	StageBehavioral,
	StageWrapUp,
	StageCompleted,
}

// Terminal reports whether no further transitions can leave the stage.
func (s Stage) Terminal() bool { return s == StageCompleted }

// Valid reports whether s is a member of the stage set.
func (s Stage) Valid() bool {
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

func (s Stage) next() Stage {
	for i, st := range stageOrder {
		if s == st && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return StageCompleted
}

// StagePlan holds the per-stage advancement thresholds. A zero cap or
// budget disables that trigger for the stage.
type StagePlan struct {
	QuestionCaps map[Stage]int           `json:"question_caps"`
	TimeBudgets  map[Stage]time.Duration `json:"time_budgets"`
}

// DefaultPlan mirrors the classic eight-question interview: one opening
// question, three technical, three behavioral, one closing.
func DefaultPlan() StagePlan {
	return StagePlan{
		QuestionCaps: map[Stage]int{
			StageIntroduction: 1,
			StageTechnical:    3,
			StageBehavioral:   3,
		},
		TimeBudgets: map[Stage]time.Duration{
			StageIntroduction: 5 * time.Minute,
			StageTechnical:    10 * time.Minute,
			StageBehavioral:   10 * time.Minute,
		},
	}
}

// Signals are the observations the stage machine decides on.
type Signals struct {
	// QuestionsInStage counts interviewer questions asked while in the
	// current stage.
	QuestionsInStage int
	// StageElapsed is the time spent in the current stage.
	StageElapsed time.Duration
	// EndRequested is the explicit "end interview" signal.
	EndRequested bool
	// FeedbackRecorded is true once the feedback report has been stored;
	// it is the only trigger for WrapUp -> Completed.
	FeedbackRecorded bool
}

// NextStage computes the stage that follows current under the given plan
// and signals. It is pure: no side effects, no clock reads.
func NextStage(plan StagePlan, current Stage, sig Signals) Stage {
	if current.Terminal() {
		return current
	}
	if current == StageWrapUp {
		if sig.FeedbackRecorded {
			return StageCompleted
		}
		return StageWrapUp
	}
	if sig.EndRequested {
		return StageWrapUp
	}
	if cap, ok := plan.QuestionCaps[current]; ok && cap > 0 && sig.QuestionsInStage >= cap {
		return current.next()
	}
	if budget, ok := plan.TimeBudgets[current]; ok && budget > 0 && sig.StageElapsed >= budget {
		return current.next()
	}
	return current
}
