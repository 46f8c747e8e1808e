// Package composer derives the question set served to a client for one
// attempt: ordered, optionally randomized, optionally capped.
package composer

import (
	"math/rand"
	"sort"

	"github.com/examgate/examgate-backend/internal/model"
)

// Compose builds the per-attempt question set from the room's bank.
//
// The bank's stored order is the baseline. When the room randomizes order,
// the set is shuffled with Fisher–Yates (rand.Shuffle) — an unbiased
// permutation, unlike comparator-based sort-by-random. A max_questions cap
// is applied after the shuffle so a capped exam draws from the whole bank
// rather than a fixed prefix. When the room randomizes answers, each
// question's option list is independently shuffled; answer keys reference
// option values, so shuffling cannot affect scoring.
//
// The returned questions still carry their answer keys; strip them with
// Question.ForStudent before sending anything to a client.
func Compose(room model.ExamRoom, bank []model.Question, rng *rand.Rand) []model.Question {
	questions := make([]model.Question, len(bank))
	copy(questions, bank)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderNum < questions[j].OrderNum
	})

	if room.RandomizeOrder {
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	if room.MaxQuestions > 0 && room.MaxQuestions < len(questions) {
		questions = questions[:room.MaxQuestions]
	}

	if room.RandomizeAnswers {
		for i := range questions {
			questions[i].Options = shuffledOptions(questions[i].Options, rng)
		}
	}

	return questions
}

// ForClient projects a composed set into its client-safe form.
func ForClient(questions []model.Question) []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		out[i] = q.ForStudent()
	}
	return out
}

// shuffledOptions returns an unbiased permutation of the option list without
// mutating the shared backing array.
func shuffledOptions(options []model.AnswerOption, rng *rand.Rand) []model.AnswerOption {
	if len(options) < 2 {
		return options
	}
	shuffled := make([]model.AnswerOption, len(options))
	copy(shuffled, options)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
