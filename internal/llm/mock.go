package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no generation
// backend is configured. It keeps the interview loop usable offline: every
// answer earns an acknowledgment plus a generic follow-up, and evaluation
// prompts get a well-formed JSON report.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	if isEvaluationRequest(req) {
		return Response{Text: mockEvaluationJSON}, nil
	}
	return Response{Text: buildMockQuestion(req)}, nil
}

func isEvaluationRequest(req Request) bool {
	return strings.Contains(req.System, "overall_score")
}

func buildMockQuestion(req Request) string {
	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = strings.TrimSpace(req.Messages[i].Content)
			break
		}
	}
	if last == "" {
		return "Welcome, and thanks for joining. To get us started, could you tell me a bit about yourself and your background?"
	}
	if len(last) > 60 {
		last = last[:60] + "…"
	}
	return fmt.Sprintf("Thanks for that answer (%q). Could you walk me through a concrete example from your own experience?", last)
}

const mockEvaluationJSON = `{
  "overall_score": 70,
  "strengths": ["Communicated answers clearly", "Stayed engaged through every question"],
  "areas_for_improvement": ["Add more concrete detail to examples"],
  "recommendations": ["Rehearse answers aloud before the real interview"],
  "raw_detail": "Deterministic offline evaluation."
}`
