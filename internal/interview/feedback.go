package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedFeedback reports that generated feedback text could not be
// parsed into the structured report shape.
var ErrMalformedFeedback = errors.New("malformed feedback payload")

const minSubstantiveAnswerLen = 40

// ParseFeedback extracts a structured Feedback report from raw generated
// text. The evaluator is asked for a single JSON object but models wrap it
// in prose or markdown fences often enough that we locate the outermost
// object before decoding.
func ParseFeedback(raw string) (Feedback, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return Feedback{}, fmt.Errorf("%w: no JSON object found", ErrMalformedFeedback)
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(payload), &fb); err != nil {
		return Feedback{}, fmt.Errorf("%w: %v", ErrMalformedFeedback, err)
	}
	if fb.OverallScore < 0 || fb.OverallScore > 100 {
		return Feedback{}, fmt.Errorf("%w: score %v out of range", ErrMalformedFeedback, fb.OverallScore)
	}
	if len(fb.Strengths) == 0 && len(fb.AreasForImprovement) == 0 && len(fb.Recommendations) == 0 {
		return Feedback{}, fmt.Errorf("%w: no findings present", ErrMalformedFeedback)
	}
	if strings.TrimSpace(fb.RawDetail) == "" {
		fb.RawDetail = strings.TrimSpace(raw)
	}
	return fb, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// EmptyTranscriptFeedback is the report for a session that collected no
// candidate answers.
func EmptyTranscriptFeedback() Feedback {
	return Feedback{
		OverallScore: 0,
		AreasForImprovement: []string{
			"No answers were provided during the interview",
		},
		Recommendations: []string{
			"Complete a full interview session to receive feedback",
		},
		RawDetail: "Interview ended before any answers were given.",
	}
}

// HeuristicFeedback produces a deterministic report from the transcript
// alone. It is the fallback when the evaluator call fails or returns
// malformed output: scoring rewards answered questions and substantive
// (non-trivial length) answers, capped well below a perfect score.
func HeuristicFeedback(transcript []Turn) Feedback {
	answers := 0
	substantive := 0
	for _, t := range transcript {
		if t.Speaker != SpeakerCandidate {
			continue
		}
		answers++
		if len(strings.TrimSpace(t.Text)) >= minSubstantiveAnswerLen {
			substantive++
		}
	}
	if answers == 0 {
		return EmptyTranscriptFeedback()
	}

	score := float64(30 + 5*answers + 5*substantive)
	if score > 85 {
		score = 85
	}

	fb := Feedback{
		OverallScore: score,
		Strengths: []string{
			fmt.Sprintf("Engaged with %d questions through the interview", answers),
		},
		AreasForImprovement: []string{
			"Provide more specific examples from past experience",
		},
		Recommendations: []string{
			"Practice structuring answers with the STAR method (Situation, Task, Action, Result)",
			"Prepare concrete examples from past projects before the next session",
		},
		RawDetail: fmt.Sprintf("Automated summary: %d answers recorded, %d substantive.", answers, substantive),
	}
	if substantive > 0 {
		fb.Strengths = append(fb.Strengths, "Gave developed answers rather than one-liners")
	} else {
		fb.AreasForImprovement = append(fb.AreasForImprovement, "Expand on answers; most replies were very short")
	}
	return fb
}
