package interview

import (
	"fmt"
	"strings"
	"time"
)

// Role is the position the candidate is interviewing for.
type Role string

const (
	RoleSoftwareEngineer Role = "software_engineer"
	RoleDataScientist    Role = "data_scientist"
	RoleProductManager   Role = "product_manager"
	RoleGeneral          Role = "general"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSoftwareEngineer:
		return RoleSoftwareEngineer, nil
	case RoleDataScientist:
		return RoleDataScientist, nil
	case RoleProductManager:
		return RoleProductManager, nil
	case RoleGeneral, "":
		return RoleGeneral, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Display renders a role for prompt text ("software engineer").
func (r Role) Display() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// Level is the candidate's experience level.
type Level string

const (
	LevelJunior Level = "junior"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
)

// ParseLevel validates a raw experience level string.
func ParseLevel(raw string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelJunior:
		return LevelJunior, nil
	case LevelMid, "":
		return LevelMid, nil
	case LevelSenior:
		return LevelSenior, nil
	default:
		return "", fmt.Errorf("unknown experience level %q", raw)
	}
}

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Turn is one immutable utterance in the session transcript.
type Turn struct {
	Sequence  int       `json:"sequence"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// Feedback is the structured end-of-interview report.
type Feedback struct {
	OverallScore        float64  `json:"overall_score"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	Recommendations     []string `json:"recommendations"`
	RawDetail           string   `json:"raw_detail,omitempty"`
}
