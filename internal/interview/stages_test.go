package interview

import (
	"testing"
	"time"
)

func testPlan() StagePlan {
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

func TestNextStageAdvancesOnQuestionCap(t *testing.T) {
	plan := testPlan()
	cases := []struct {
		name      string
		current   Stage
		questions int
		want      Stage
	}{
		{"intro below cap", StageIntroduction, 0, StageIntroduction},
		{"intro at cap", StageIntroduction, 1, StageTechnical},
		{"technical below cap", StageTechnical, 2, StageTechnical},
		{"technical at cap", StageTechnical, 3, StageBehavioral},
		{"behavioral at cap", StageBehavioral, 3, StageWrapUp},
		{"behavioral over cap", StageBehavioral, 5, StageWrapUp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextStage(plan, tc.current, Signals{QuestionsInStage: tc.questions})
			if got != tc.want {
				t.Fatalf("NextStage(%s, q=%d) = %s, want %s", tc.current, tc.questions, got, tc.want)
			}
		})
	}
}

func TestNextStageAdvancesOnTimeBudget(t *testing.T) {
	plan := testPlan()
	got := NextStage(plan, StageTechnical, Signals{StageElapsed: 11 * time.Minute})
	if got != StageBehavioral {
		t.Fatalf("NextStage over budget = %s, want %s", got, StageBehavioral)
	}
	got = NextStage(plan, StageTechnical, Signals{StageElapsed: 9 * time.Minute})
	if got != StageTechnical {
		t.Fatalf("NextStage under budget = %s, want %s", got, StageTechnical)
	}
}

func TestNextStageEndSignalShortCircuitsFromEveryState(t *testing.T) {
	plan := testPlan()
	for _, stage := range []Stage{StageIntroduction, StageTechnical, StageBehavioral} {
		got := NextStage(plan, stage, Signals{EndRequested: true})
		if got != StageWrapUp {
			t.Fatalf("NextStage(%s, end) = %s, want %s", stage, got, StageWrapUp)
		}
	}
}

func TestNextStageWrapUpOnlyCompletesWithFeedback(t *testing.T) {
	plan := testPlan()
	if got := NextStage(plan, StageWrapUp, Signals{EndRequested: true, QuestionsInStage: 10}); got != StageWrapUp {
		t.Fatalf("wrap-up without feedback = %s, want %s", got, StageWrapUp)
	}
	if got := NextStage(plan, StageWrapUp, Signals{FeedbackRecorded: true}); got != StageCompleted {
		t.Fatalf("wrap-up with feedback = %s, want %s", got, StageCompleted)
	}
}

func TestNextStageCompletedIsTerminal(t *testing.T) {
	plan := testPlan()
	got := NextStage(plan, StageCompleted, Signals{
		QuestionsInStage: 99,
		StageElapsed:     time.Hour,
		EndRequested:     true,
		FeedbackRecorded: true,
	})
	if got != StageCompleted {
		t.Fatalf("NextStage(completed) = %s, want %s", got, StageCompleted)
	}
}

func TestNextStageZeroThresholdsNeverAdvance(t *testing.T) {
	var plan StagePlan
	got := NextStage(plan, StageTechnical, Signals{QuestionsInStage: 100, StageElapsed: time.Hour})
	if got != StageTechnical {
		t.Fatalf("NextStage with empty plan = %s, want %s", got, StageTechnical)
	}
}

func TestParseRoleAndLevel(t *testing.T) {
	if _, err := ParseRole("astronaut"); err == nil {
		t.Fatalf("ParseRole(astronaut) should fail")
	}
	r, err := ParseRole(" Software_Engineer ")
	if err != nil || r != RoleSoftwareEngineer {
		t.Fatalf("ParseRole = %v, %v", r, err)
	}
	if _, err := ParseLevel("principal"); err == nil {
		t.Fatalf("ParseLevel(principal) should fail")
	}
	l, err := ParseLevel("senior")
	if err != nil || l != LevelSenior {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
}
