// Package scoring computes correctness, points, percentage and letter grade
// for a submitted answer map against a question set's answer keys.
// It is pure: callers load questions and answers, scoring only compares.
package scoring

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
)

// QuestionScore is the per-question outcome.
type QuestionScore struct {
	QuestionID   uuid.UUID
	Answer       string
	Answered     bool
	Correct      bool
	PointsEarned float64
}

// Summary aggregates an attempt's scoring outcome.
// CorrectAnswers + WrongAnswers + Unanswered always equals TotalQuestions.
type Summary struct {
	TotalQuestions int
	CorrectAnswers int
	WrongAnswers   int
	Unanswered     int
	TotalPoints    float64
	EarnedPoints   float64
	Percentage     float64
	Grade          string
	PerQuestion    []QuestionScore
}

// Score grades the submitted answers against the question set.
// The answers map is keyed by question ID string; a missing or blank entry
// counts as unanswered. Percentage is 0 when the set carries no points.
func Score(questions []model.Question, answers map[string]string, scale GradeScale) Summary {
	sum := Summary{
		TotalQuestions: len(questions),
		PerQuestion:    make([]QuestionScore, 0, len(questions)),
	}

	for _, q := range questions {
		sum.TotalPoints += q.Points

		qs := QuestionScore{QuestionID: q.ID}
		submitted, ok := answers[q.ID.String()]
		if !ok || strings.TrimSpace(submitted) == "" {
			sum.Unanswered++
			sum.PerQuestion = append(sum.PerQuestion, qs)
			continue
		}

		qs.Answered = true
		qs.Answer = submitted
		if Matches(q, submitted) {
			qs.Correct = true
			qs.PointsEarned = q.Points
			sum.CorrectAnswers++
			sum.EarnedPoints += q.Points
		} else {
			sum.WrongAnswers++
		}
		sum.PerQuestion = append(sum.PerQuestion, qs)
	}

	if sum.TotalPoints > 0 {
		sum.Percentage = round2(sum.EarnedPoints / sum.TotalPoints * 100)
	}
	sum.Grade = scale.Grade(sum.Percentage)

	return sum
}

// Matches reports whether a submitted value satisfies the question's answer
// key. Multiple-choice and true/false use exact match on the option value;
// multi-answer requires set equality over the selected option values; essays
// are never auto-credited.
func Matches(q model.Question, submitted string) bool {
	switch q.QuestionType {
	case model.QuestionTypeMultiAnswer:
		return setsEqual(parseSelection(q.CorrectKey), parseSelection(submitted))
	case model.QuestionTypeEssay:
		return false
	default:
		return strings.TrimSpace(submitted) == q.CorrectKey
	}
}

// parseSelection reads a multi-answer selection: a JSON array of option
// values, with a comma-separated fallback for lenient clients.
func parseSelection(raw string) map[string]struct{} {
	raw = strings.TrimSpace(raw)
	set := make(map[string]struct{})

	if strings.HasPrefix(raw, "[") {
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err == nil {
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					set[v] = struct{}{}
				}
			}
			return set
		}
	}

	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
