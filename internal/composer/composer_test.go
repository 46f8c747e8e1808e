package composer

import (
	"math/rand"
	"testing"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/scoring"
	"github.com/google/uuid"
)

func bankOf(n int) []model.Question {
	bank := make([]model.Question, n)
	for i := range bank {
		bank[i] = model.Question{
			ID:           uuid.New(),
			QuestionType: model.QuestionTypeMultipleChoice,
			Options: []model.AnswerOption{
				{Value: "a", Text: "first"},
				{Value: "b", Text: "second"},
				{Value: "c", Text: "third"},
				{Value: "d", Text: "fourth"},
			},
			CorrectKey: "c",
			Points:     1,
			OrderNum:   i,
		}
	}
	return bank
}

func idSet(questions []model.Question) map[uuid.UUID]int {
	set := make(map[uuid.UUID]int, len(questions))
	for _, q := range questions {
		set[q.ID]++
	}
	return set
}

func TestComposeKeepsStoredOrderWithoutRandomization(t *testing.T) {
	bank := bankOf(5)
	// Feed the bank out of order; compose must restore stored order.
	scrambled := []model.Question{bank[3], bank[0], bank[4], bank[2], bank[1]}

	rng := rand.New(rand.NewSource(1))
	got := Compose(model.ExamRoom{}, scrambled, rng)

	for i, q := range got {
		if q.ID != bank[i].ID {
			t.Fatalf("position %d: got question %d, want %d", i, q.OrderNum, i)
		}
	}
}

func TestComposeShufflePreservesMultiset(t *testing.T) {
	bank := bankOf(30)
	room := model.ExamRoom{RandomizeOrder: true}

	rng := rand.New(rand.NewSource(42))
	got := Compose(room, bank, rng)

	if len(got) != len(bank) {
		t.Fatalf("len = %d, want %d", len(got), len(bank))
	}
	want := idSet(bank)
	for id, n := range idSet(got) {
		if want[id] != n {
			t.Fatalf("question %s appears %d times, want %d", id, n, want[id])
		}
	}
}

func TestComposeCapAppliesAfterShuffle(t *testing.T) {
	bank := bankOf(20)
	room := model.ExamRoom{RandomizeOrder: true, MaxQuestions: 5}

	// Across seeds, a post-shuffle cap must eventually draw questions from
	// beyond the first five of the stored order.
	sawTail := false
	for seed := int64(0); seed < 10 && !sawTail; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got := Compose(room, bank, rng)
		if len(got) != 5 {
			t.Fatalf("len = %d, want 5", len(got))
		}
		for _, q := range got {
			if q.OrderNum >= 5 {
				sawTail = true
			}
		}
	}
	if !sawTail {
		t.Fatal("capped set never drew from beyond the stored prefix; cap applied before shuffle?")
	}
}

func TestComposeCapLargerThanBank(t *testing.T) {
	bank := bankOf(3)
	room := model.ExamRoom{MaxQuestions: 10}
	if got := Compose(room, bank, rand.New(rand.NewSource(1))); len(got) != 3 {
		t.Fatalf("len = %d, want full bank of 3", len(got))
	}
}

func TestComposeOptionShuffleKeepsScoringIntact(t *testing.T) {
	bank := bankOf(10)
	room := model.ExamRoom{RandomizeAnswers: true}

	rng := rand.New(rand.NewSource(7))
	got := Compose(room, bank, rng)

	for i, q := range got {
		if len(q.Options) != 4 {
			t.Fatalf("question %d: option count = %d, want 4", i, len(q.Options))
		}
		seen := make(map[string]bool)
		for _, o := range q.Options {
			seen[o.Value] = true
		}
		for _, v := range []string{"a", "b", "c", "d"} {
			if !seen[v] {
				t.Fatalf("question %d: option %q lost in shuffle", i, v)
			}
		}
		// The key is tracked by value, so a correct submission still matches
		// regardless of where the option landed.
		if !scoring.Matches(q, "c") {
			t.Fatalf("question %d: shuffling desynchronized the answer key", i)
		}
	}

	// The source bank's options must not be mutated.
	for i, q := range bank {
		for j, o := range q.Options {
			if want := []string{"a", "b", "c", "d"}[j]; o.Value != want {
				t.Fatalf("bank question %d option %d mutated to %q", i, j, o.Value)
			}
		}
	}
}

func TestForClientStripsAnswerKeys(t *testing.T) {
	bank := bankOf(2)
	for _, q := range ForClient(bank) {
		for _, o := range q.Options {
			if o.Text == "" {
				t.Fatal("option text missing from client payload")
			}
		}
	}
	// The projection type has no key or points field; this test documents
	// that the payload is built exclusively from it.
	if _, ok := interface{}(model.QuestionForStudent{}).(interface{ GetCorrectKey() string }); ok {
		t.Fatal("client projection must not expose the answer key")
	}
}
