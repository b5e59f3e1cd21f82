// Package prompt assembles the payloads handed to the generation
// capability. The builder is pure: it reads session data and configuration,
// never mutates either, and always emits a single structured request.
package prompt

import (
	"fmt"
	"strings"

	"github.com/calvaresi/intervista/internal/interview"
	"github.com/calvaresi/intervista/internal/llm"
)

const (
	defaultHistoryTurns = 10
	defaultHistoryChars = 6000
)

const interviewerFraming = `You are a professional, friendly, and encouraging mock interviewer.
Conduct a realistic interview: ask relevant questions for the candidate's role and
experience level, give brief encouraging feedback on each answer, ask follow-up
questions when an answer is incomplete, and guide the conversation through the
interview stages (introduction, technical, behavioral, wrap-up).
Ask one clear, concise question at a time.`

// Builder produces generation requests for the interview turn pipeline.
type Builder struct {
	// HistoryTurns and HistoryChars bound how much transcript is included;
	// whichever limit is hit first wins.
	HistoryTurns int
	HistoryChars int
}

func NewBuilder(historyTurns, historyChars int) *Builder {
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}
	if historyChars <= 0 {
		historyChars = defaultHistoryChars
	}
	return &Builder{HistoryTurns: historyTurns, HistoryChars: historyChars}
}

// Opening builds the request for the interview's first question.
func (b *Builder) Opening(role interview.Role, level interview.Level, candidateName string) llm.Request {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = "the candidate"
	}
	var sb strings.Builder
	sb.WriteString(b.framing(role, level, interview.StageIntroduction, 0))
	fmt.Fprintf(&sb, "\nCandidate name: %s\n", name)
	sb.WriteString(`
Start with a warm, professional greeting. Briefly explain the interview
structure (introduction, technical questions, behavioral questions, wrap-up),
then ask the candidate to introduce themselves and describe their background.
Produce the interviewer's opening line and nothing else.`)

	return llm.Request{System: sb.String()}
}

// NextQuestion builds the request for the interviewer's next line given the
// candidate's latest answer, which must already be present in transcript.
func (b *Builder) NextQuestion(role interview.Role, level interview.Level, stage interview.Stage, questionCount int, transcript []interview.Turn) llm.Request {
	system := b.framing(role, level, stage, questionCount) +
		"\nProduce the interviewer's next line and nothing else: brief feedback on the last answer, then exactly one question."

	return llm.Request{
		System:   system,
		Messages: b.historyMessages(transcript),
	}
}

// Evaluation builds the end-of-interview scoring request. The system text
// demands raw JSON so the synthesizer can parse a structured report.
func (b *Builder) Evaluation(role interview.Role, level interview.Level, transcript []interview.Turn) llm.Request {
	var sb strings.Builder
	sb.WriteString(`You are evaluating a completed mock interview. Consider communication
clarity, technical knowledge, problem-solving approach, and the specificity of
the candidate's examples. Be constructive and encouraging.`)
	fmt.Fprintf(&sb, "\nRole: %s\nExperience level: %s\n", role.Display(), level)
	sb.WriteString(`
Respond with a single raw JSON object and nothing else, using exactly these keys:
  "overall_score": number between 0 and 100,
  "strengths": array of 2-3 short strings,
  "areas_for_improvement": array of 2-3 short strings,
  "recommendations": array of 2-3 actionable strings,
  "raw_detail": one paragraph of free-form analysis.`)

	var transcriptText strings.Builder
	transcriptText.WriteString("Interview transcript:\n")
	for _, t := range transcript {
		fmt.Fprintf(&transcriptText, "%s: %s\n", t.Speaker, t.Text)
	}

	return llm.Request{
		System:   sb.String(),
		Messages: []llm.Message{{Role: "user", Content: transcriptText.String()}},
	}
}

func (b *Builder) framing(role interview.Role, level interview.Level, stage interview.Stage, questionCount int) string {
	var sb strings.Builder
	sb.WriteString(interviewerFraming)
	fmt.Fprintf(&sb, "\n\nYou are interviewing a %s level candidate for a %s position.\n", level, role.Display())
	fmt.Fprintf(&sb, "Current stage: %s. Questions asked so far: %d.\n", stage, questionCount)
	sb.WriteString("\nSample questions appropriate for this candidate:\n")
	for _, q := range sampleQuestions(role, level) {
		sb.WriteString("- " + q + "\n")
	}
	return sb.String()
}

// historyMessages maps the bounded recent transcript onto chat messages,
// candidate turns as user and interviewer turns as assistant.
func (b *Builder) historyMessages(transcript []interview.Turn) []llm.Message {
	recent := window(transcript, b.HistoryTurns, b.HistoryChars)
	msgs := make([]llm.Message, 0, len(recent))
	for _, t := range recent {
		role := "user"
		if t.Speaker == interview.SpeakerInterviewer {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return msgs
}

// window returns the suffix of transcript capped to maxTurns turns and
// roughly maxChars characters, dropping oldest turns first.
func window(transcript []interview.Turn, maxTurns, maxChars int) []interview.Turn {
	if len(transcript) > maxTurns {
		transcript = transcript[len(transcript)-maxTurns:]
	}
	total := 0
	start := len(transcript)
	for i := len(transcript) - 1; i >= 0; i-- {
		total += len(transcript[i].Text)
		if total > maxChars && start < len(transcript) {
			break
		}
		start = i
	}
	return transcript[start:]
}
