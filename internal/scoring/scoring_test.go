package scoring

import (
	"testing"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
)

func mcQuestion(key string, points float64) model.Question {
	return model.Question{
		ID:           uuid.New(),
		QuestionType: model.QuestionTypeMultipleChoice,
		CorrectKey:   key,
		Points:       points,
	}
}

func TestScoreThreeQuestionScenario(t *testing.T) {
	// One correct, one wrong, one unanswered over three 1-point questions.
	q1 := mcQuestion("a", 1)
	q2 := mcQuestion("b", 1)
	q3 := mcQuestion("c", 1)

	answers := map[string]string{
		q1.ID.String(): "a",
		q2.ID.String(): "d",
	}

	sum := Score([]model.Question{q1, q2, q3}, answers, DefaultScale())

	if sum.CorrectAnswers != 1 || sum.WrongAnswers != 1 || sum.Unanswered != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1",
			sum.CorrectAnswers, sum.WrongAnswers, sum.Unanswered)
	}
	if sum.EarnedPoints != 1 || sum.TotalPoints != 3 {
		t.Fatalf("points = %v/%v, want 1/3", sum.EarnedPoints, sum.TotalPoints)
	}
	if sum.Percentage != 33.33 {
		t.Fatalf("percentage = %v, want 33.33", sum.Percentage)
	}
	if sum.Grade != "D" {
		t.Fatalf("grade = %q, want D", sum.Grade)
	}
}

func TestScoreCountsAlwaysSumToTotal(t *testing.T) {
	questions := []model.Question{
		mcQuestion("a", 2),
		mcQuestion("b", 2),
		mcQuestion("c", 0),
		{ID: uuid.New(), QuestionType: model.QuestionTypeEssay, Points: 5},
	}

	cases := []map[string]string{
		{},
		{questions[0].ID.String(): "a"},
		{questions[0].ID.String(): "x", questions[3].ID.String(): "free text"},
		{
			questions[0].ID.String(): "a",
			questions[1].ID.String(): "b",
			questions[2].ID.String(): "c",
			questions[3].ID.String(): "essay",
		},
	}

	for i, answers := range cases {
		sum := Score(questions, answers, DefaultScale())
		if got := sum.CorrectAnswers + sum.WrongAnswers + sum.Unanswered; got != sum.TotalQuestions {
			t.Fatalf("case %d: correct+wrong+unanswered = %d, want %d", i, got, sum.TotalQuestions)
		}
	}
}

func TestScoreZeroTotalPoints(t *testing.T) {
	q := mcQuestion("a", 0)
	sum := Score([]model.Question{q}, map[string]string{q.ID.String(): "a"}, DefaultScale())
	if sum.Percentage != 0 {
		t.Fatalf("percentage = %v, want 0 when no points at stake", sum.Percentage)
	}
}

func TestScoreEssayNeverAutoCredits(t *testing.T) {
	q := model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeEssay, Points: 10}
	sum := Score([]model.Question{q}, map[string]string{q.ID.String(): "a thorough answer"}, DefaultScale())
	if sum.CorrectAnswers != 0 || sum.WrongAnswers != 1 || sum.EarnedPoints != 0 {
		t.Fatalf("essay graded as %d correct / %d wrong / %v points", sum.CorrectAnswers, sum.WrongAnswers, sum.EarnedPoints)
	}

	// A blank essay stays unanswered.
	sum = Score([]model.Question{q}, nil, DefaultScale())
	if sum.Unanswered != 1 {
		t.Fatalf("blank essay counted as answered")
	}
}

func TestMatchesMultiAnswerSetEquality(t *testing.T) {
	q := model.Question{
		ID:           uuid.New(),
		QuestionType: model.QuestionTypeMultiAnswer,
		CorrectKey:   `["a","c"]`,
	}

	tests := []struct {
		submitted string
		want      bool
	}{
		{`["a","c"]`, true},
		{`["c","a"]`, true}, // order must not matter
		{`["a"]`, false},
		{`["a","c","d"]`, false},
		{`["b","c"]`, false},
		{`a,c`, true}, // comma fallback
		{``, false},
	}

	for _, tt := range tests {
		if got := Matches(q, tt.submitted); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.submitted, got, tt.want)
		}
	}
}

func TestMatchesExactForChoiceTypes(t *testing.T) {
	mc := mcQuestion("b", 1)
	if !Matches(mc, "b") || Matches(mc, "B") || Matches(mc, "bb") {
		t.Fatal("multiple-choice must compare option values exactly")
	}

	tf := model.Question{QuestionType: model.QuestionTypeTrueFalse, CorrectKey: "true"}
	if !Matches(tf, "true") || Matches(tf, "false") {
		t.Fatal("true/false must compare option values exactly")
	}
}

func TestGradeScale(t *testing.T) {
	scale := DefaultScale()
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"}, {80, "A"}, {79.99, "B"}, {70, "B"}, {60, "C"}, {59.9, "D"}, {0, "D"},
	}
	for _, tt := range tests {
		if got := scale.Grade(tt.pct); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestParseScale(t *testing.T) {
	scale, err := ParseScale("90:A,75:B,50:C,F")
	if err != nil {
		t.Fatalf("ParseScale: %v", err)
	}
	if got := scale.Grade(89.9); got != "B" {
		t.Fatalf("custom scale Grade(89.9) = %q, want B", got)
	}
	if got := scale.Grade(10); got != "F" {
		t.Fatalf("custom scale Grade(10) = %q, want F", got)
	}

	if _, err := ParseScale("80:A,90:B,C"); err == nil {
		t.Fatal("expected error for non-descending thresholds")
	}
	if _, err := ParseScale("80:A,70:B"); err == nil {
		t.Fatal("expected error for missing fallback")
	}
	if _, err := ParseScale("D,80:A"); err == nil {
		t.Fatal("expected error for fallback not in last position")
	}

	if scale, err = ParseScale(""); err != nil || scale.Grade(85) != "A" {
		t.Fatal("empty spec must yield the default scale")
	}
}
