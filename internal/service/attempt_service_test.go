package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// fakeAttemptStore is an in-memory AttemptStore with the same guard
// semantics as the PostgreSQL ledger.
type fakeAttemptStore struct {
	attempts   map[uuid.UUID]*model.ExamAttempt
	answers    map[uuid.UUID]map[uuid.UUID]model.ExamAnswer
	violations map[uuid.UUID][]model.Violation
	results    map[uuid.UUID]*model.ExamResult
	rooms      map[uuid.UUID]*model.ExamRoom

	upserts int // direct UpsertAnswer calls, for fallback assertions
}

func newFakeAttemptStore(rooms map[uuid.UUID]*model.ExamRoom) *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts:   make(map[uuid.UUID]*model.ExamAttempt),
		answers:    make(map[uuid.UUID]map[uuid.UUID]model.ExamAnswer),
		violations: make(map[uuid.UUID][]model.Violation),
		results:    make(map[uuid.UUID]*model.ExamResult),
		rooms:      rooms,
	}
}

func (s *fakeAttemptStore) Create(_ context.Context, a *model.ExamAttempt, room *model.ExamRoom) error {
	for _, existing := range s.attempts {
		if existing.ExamRoomID == a.ExamRoomID && existing.StudentID == a.StudentID &&
			existing.Status == model.AttemptStatusInProgress {
			return repository.ErrAttemptBlocked
		}
	}
	completed := s.countClosed(a.ExamRoomID, a.StudentID)
	switch room.AttemptType {
	case model.AttemptTypeSingle:
		if completed > 0 {
			return repository.ErrAttemptBlocked
		}
	case model.AttemptTypeLimited:
		if completed >= room.MaxAttempts {
			return repository.ErrAttemptBlocked
		}
	}
	a.ID = uuid.New()
	a.Status = model.AttemptStatusInProgress
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	s.attempts[a.ID] = a
	return nil
}

func (s *fakeAttemptStore) countClosed(roomID uuid.UUID, studentID int) int {
	n := 0
	for _, a := range s.attempts {
		if a.ExamRoomID == roomID && a.StudentID == studentID &&
			a.Status != model.AttemptStatusInProgress {
			n++
		}
	}
	return n
}

func (s *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (s *fakeAttemptStore) FindActive(_ context.Context, roomID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	for _, a := range s.attempts {
		if a.ExamRoomID == roomID && a.StudentID == studentID &&
			a.Status == model.AttemptStatusInProgress {
			return a, nil
		}
	}
	return nil, nil
}

func (s *fakeAttemptStore) HasCompleted(_ context.Context, roomID uuid.UUID, studentID int) (bool, error) {
	return s.countClosed(roomID, studentID) > 0, nil
}

func (s *fakeAttemptStore) CountCompleted(_ context.Context, roomID uuid.UUID, studentID int) (int, error) {
	return s.countClosed(roomID, studentID), nil
}

func (s *fakeAttemptStore) ListInProgressByRoom(_ context.Context, roomID uuid.UUID) ([]model.ExamAttempt, error) {
	var out []model.ExamAttempt
	for _, a := range s.attempts {
		if a.ExamRoomID == roomID && a.Status == model.AttemptStatusInProgress {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAttemptStore) ListOverdue(_ context.Context, grace time.Duration) ([]model.ExamAttempt, error) {
	var out []model.ExamAttempt
	for _, a := range s.attempts {
		if a.Status != model.AttemptStatusInProgress {
			continue
		}
		room := s.rooms[a.ExamRoomID]
		deadline := a.StartedAt.Add(time.Duration(room.DurationMinutes)*time.Minute + grace)
		if time.Now().After(deadline) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAttemptStore) transition(attemptID uuid.UUID, to model.AttemptStatus, timeSpent int) (*model.ExamAttempt, error) {
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return nil, repository.ErrNotInProgress
	}
	now := time.Now()
	a.Status = to
	a.FinishedAt = &now
	a.TimeSpentSeconds = &timeSpent
	return a, nil
}

func (s *fakeAttemptStore) Complete(_ context.Context, attemptID uuid.UUID, timeSpent int, answers []model.ExamAnswer, result *model.ExamResult) error {
	if _, err := s.transition(attemptID, model.AttemptStatusCompleted, timeSpent); err != nil {
		return err
	}
	s.storeAnswers(attemptID, answers)
	s.results[attemptID] = result
	return nil
}

func (s *fakeAttemptStore) Terminate(_ context.Context, attemptID uuid.UUID, reason string, timeSpent int, answers []model.ExamAnswer, result *model.ExamResult) error {
	if _, err := s.transition(attemptID, model.AttemptStatusTerminated, timeSpent); err != nil {
		return err
	}
	s.violations[attemptID] = append(s.violations[attemptID], model.Violation{
		AttemptID:  attemptID,
		Kind:       model.ViolationTerminated,
		Detail:     reason,
		RecordedAt: time.Now(),
	})
	s.storeAnswers(attemptID, answers)
	if result != nil {
		s.results[attemptID] = result
	}
	return nil
}

func (s *fakeAttemptStore) storeAnswers(attemptID uuid.UUID, answers []model.ExamAnswer) {
	if s.answers[attemptID] == nil {
		s.answers[attemptID] = make(map[uuid.UUID]model.ExamAnswer)
	}
	for _, a := range answers {
		s.answers[attemptID][a.QuestionID] = a
	}
}

func (s *fakeAttemptStore) UpsertAnswer(_ context.Context, ans *model.ExamAnswer) error {
	s.upserts++
	s.storeAnswers(ans.AttemptID, []model.ExamAnswer{*ans})
	return nil
}

func (s *fakeAttemptStore) ListAnswers(_ context.Context, attemptID uuid.UUID) ([]model.ExamAnswer, error) {
	var out []model.ExamAnswer
	for _, a := range s.answers[attemptID] {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeAttemptStore) AppendViolation(_ context.Context, attemptID uuid.UUID, kind model.ViolationKind, detail string, recordedAt time.Time) error {
	s.violations[attemptID] = append(s.violations[attemptID], model.Violation{
		AttemptID:  attemptID,
		Kind:       kind,
		Detail:     detail,
		RecordedAt: recordedAt,
	})
	return nil
}

func (s *fakeAttemptStore) ListViolations(_ context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	return s.violations[attemptID], nil
}

func (s *fakeAttemptStore) CountViolations(_ context.Context, attemptID uuid.UUID) (int, error) {
	return len(s.violations[attemptID]), nil
}

type fakeQuestionStore struct {
	banks map[uuid.UUID][]model.Question
}

func (s *fakeQuestionStore) ListByBank(_ context.Context, bankID uuid.UUID) ([]model.Question, error) {
	return s.banks[bankID], nil
}

func (s *fakeQuestionStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, bank := range s.banks {
		for _, q := range bank {
			if want[q.ID] {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

type fakeRoomStore struct {
	rooms map[uuid.UUID]*model.ExamRoom
}

func (s *fakeRoomStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamRoom, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return room, nil
}

func (s *fakeRoomStore) ListActive(_ context.Context) ([]model.ExamRoom, error) {
	var out []model.ExamRoom
	for _, room := range s.rooms {
		if room.IsActive {
			out = append(out, *room)
		}
	}
	return out, nil
}

type fakeStudentStore struct {
	students map[int]*model.Student
}

func (s *fakeStudentStore) GetByID(_ context.Context, id int) (*model.Student, error) {
	st, ok := s.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return st, nil
}

// fakeCache is an in-memory AttemptCache. failing simulates Redis being
// unreachable so the fallback paths can be exercised.
type fakeCache struct {
	failing bool

	starts     map[uuid.UUID]time.Time
	payloads   map[uuid.UUID]*model.AttemptPayload
	answers    map[uuid.UUID]map[string]string
	violations map[uuid.UUID]int64
	questions  map[uuid.UUID][]model.Question
	events     []model.MonitorEvent
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		starts:     make(map[uuid.UUID]time.Time),
		payloads:   make(map[uuid.UUID]*model.AttemptPayload),
		answers:    make(map[uuid.UUID]map[string]string),
		violations: make(map[uuid.UUID]int64),
		questions:  make(map[uuid.UUID][]model.Question),
	}
}

var errCacheDown = errors.New("cache down")

func (c *fakeCache) SetStart(_ context.Context, attemptID uuid.UUID, startedAt time.Time) error {
	if c.failing {
		return errCacheDown
	}
	c.starts[attemptID] = startedAt
	return nil
}

func (c *fakeCache) GetStart(_ context.Context, attemptID uuid.UUID) (time.Time, bool, error) {
	if c.failing {
		return time.Time{}, false, errCacheDown
	}
	t, ok := c.starts[attemptID]
	return t, ok, nil
}

func (c *fakeCache) SetPayload(_ context.Context, payload *model.AttemptPayload) error {
	if c.failing {
		return errCacheDown
	}
	c.payloads[payload.AttemptID] = payload
	return nil
}

func (c *fakeCache) GetPayload(_ context.Context, attemptID uuid.UUID) (*model.AttemptPayload, error) {
	if c.failing {
		return nil, errCacheDown
	}
	return c.payloads[attemptID], nil
}

func (c *fakeCache) SaveAnswer(_ context.Context, attemptID, questionID uuid.UUID, answer string, _ int) error {
	if c.failing {
		return errCacheDown
	}
	if c.answers[attemptID] == nil {
		c.answers[attemptID] = make(map[string]string)
	}
	c.answers[attemptID][questionID.String()] = answer
	return nil
}

func (c *fakeCache) Answers(_ context.Context, attemptID uuid.UUID) (map[string]string, error) {
	if c.failing {
		return nil, errCacheDown
	}
	return c.answers[attemptID], nil
}

func (c *fakeCache) EnqueueViolation(_ context.Context, attemptID uuid.UUID, _, _ string, _ time.Time) (int64, error) {
	if c.failing {
		return 0, errCacheDown
	}
	c.violations[attemptID]++
	return c.violations[attemptID], nil
}

func (c *fakeCache) Clear(_ context.Context, attemptID uuid.UUID) error {
	delete(c.starts, attemptID)
	delete(c.payloads, attemptID)
	delete(c.answers, attemptID)
	delete(c.violations, attemptID)
	return nil
}

func (c *fakeCache) SetRoomQuestions(_ context.Context, roomID uuid.UUID, questions []model.Question) error {
	if c.failing {
		return errCacheDown
	}
	c.questions[roomID] = questions
	return nil
}

func (c *fakeCache) GetRoomQuestions(_ context.Context, roomID uuid.UUID) ([]model.Question, error) {
	if c.failing {
		return nil, errCacheDown
	}
	return c.questions[roomID], nil
}

func (c *fakeCache) ClearRoomQuestions(_ context.Context, roomID uuid.UUID) error {
	delete(c.questions, roomID)
	return nil
}

func (c *fakeCache) PublishMonitorEvent(_ context.Context, _ uuid.UUID, event *model.MonitorEvent) error {
	c.events = append(c.events, *event)
	return nil
}

type fixedScale struct{}

func (fixedScale) Scale(context.Context) scoring.GradeScale { return scoring.DefaultScale() }

// fixture bundles a service with its fakes, preloaded with one active
// student, one bank and one room.
type fixture struct {
	svc      *AttemptService
	store    *fakeAttemptStore
	cache    *fakeCache
	rooms    map[uuid.UUID]*model.ExamRoom
	students map[int]*model.Student
	room     *model.ExamRoom
	bank     []model.Question
}

func newFixture(t *testing.T, terminateAfter int) *fixture {
	t.Helper()

	bankID := uuid.New()
	bank := make([]model.Question, 5)
	for i := range bank {
		bank[i] = model.Question{
			ID:           uuid.New(),
			BankID:       bankID,
			QuestionText: fmt.Sprintf("question %d", i+1),
			QuestionType: model.QuestionTypeMultipleChoice,
			CorrectKey:   "a",
			Points:       2,
			OrderNum:     i + 1,
		}
	}

	room := &model.ExamRoom{
		ID:              uuid.New(),
		Title:           "Midterm",
		OwnerID:         1,
		BankID:          bankID,
		AccessType:      model.AccessTypeAll,
		AttemptType:     model.AttemptTypeSingle,
		DurationMinutes: 60,
		IsActive:        true,
	}

	rooms := map[uuid.UUID]*model.ExamRoom{room.ID: room}
	students := map[int]*model.Student{
		7: {ID: 7, Username: "student07", Name: "Student Seven", ClassID: 1, Status: model.StudentStatusActive},
	}

	store := newFakeAttemptStore(rooms)
	cache := newFakeCache()
	svc := NewAttemptService(
		store,
		&fakeQuestionStore{banks: map[uuid.UUID][]model.Question{bankID: bank}},
		&fakeRoomStore{rooms: rooms},
		&fakeStudentStore{students: students},
		cache,
		fixedScale{},
		zerolog.Nop(),
		terminateAfter,
	)

	return &fixture{svc: svc, store: store, cache: cache, rooms: rooms, students: students, room: room, bank: bank}
}

func (f *fixture) start(t *testing.T) *model.AttemptPayload {
	t.Helper()
	payload, err := f.svc.Start(context.Background(), f.room.ID, 7, model.ClientMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return payload
}

func TestStartFreezesQuestionSet(t *testing.T) {
	f := newFixture(t, 0)

	payload := f.start(t)

	if payload.Resumed {
		t.Fatal("fresh start marked as resumed")
	}
	if len(payload.Questions) != len(f.bank) {
		t.Fatalf("payload has %d questions, want %d", len(payload.Questions), len(f.bank))
	}
	attempt := f.store.attempts[payload.AttemptID]
	if attempt == nil {
		t.Fatal("attempt not in ledger")
	}
	if len(attempt.QuestionIDs) != len(f.bank) {
		t.Fatalf("frozen set has %d ids, want %d", len(attempt.QuestionIDs), len(f.bank))
	}
	for i, q := range payload.Questions {
		if q.ID != attempt.QuestionIDs[i] {
			t.Fatalf("payload question %d is %s, frozen set has %s", i, q.ID, attempt.QuestionIDs[i])
		}
	}
}

func TestStartResumesActiveAttempt(t *testing.T) {
	f := newFixture(t, 0)

	first := f.start(t)
	second := f.start(t)

	if second.AttemptID != first.AttemptID {
		t.Fatalf("second start created attempt %s, want resume of %s", second.AttemptID, first.AttemptID)
	}
	if !second.Resumed {
		t.Fatal("resumed payload not flagged")
	}
	if len(f.store.attempts) != 1 {
		t.Fatalf("ledger has %d attempts, want 1", len(f.store.attempts))
	}
}

func TestStartResumeSurvivesCacheLoss(t *testing.T) {
	f := newFixture(t, 0)
	first := f.start(t)

	// Simulate a cache flush: the payload must rebuild from the frozen set.
	f.cache.payloads = make(map[uuid.UUID]*model.AttemptPayload)

	second := f.start(t)
	if second.AttemptID != first.AttemptID {
		t.Fatalf("resume created new attempt %s", second.AttemptID)
	}
	if len(second.Questions) != len(first.Questions) {
		t.Fatalf("rebuilt payload has %d questions, want %d", len(second.Questions), len(first.Questions))
	}
	for i := range second.Questions {
		if second.Questions[i].ID != first.Questions[i].ID {
			t.Fatalf("question %d changed across resume: %s vs %s",
				i, second.Questions[i].ID, first.Questions[i].ID)
		}
	}
}

func TestStartSingleBlockedAfterCompletion(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)

	if _, err := f.svc.Finish(context.Background(), payload.AttemptID, 7, &model.FinishAttemptRequest{}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	_, err := f.svc.Start(context.Background(), f.room.ID, 7, model.ClientMeta{})
	if !errors.Is(err, ErrDuplicateAttempt) {
		t.Fatalf("err = %v, want ErrDuplicateAttempt", err)
	}
}

func TestStartLimitedQuotaExhausted(t *testing.T) {
	f := newFixture(t, 0)
	f.room.AttemptType = model.AttemptTypeLimited
	f.room.MaxAttempts = 2

	for i := 0; i < 2; i++ {
		payload := f.start(t)
		if _, err := f.svc.Finish(context.Background(), payload.AttemptID, 7, &model.FinishAttemptRequest{}); err != nil {
			t.Fatalf("finish round %d: %v", i+1, err)
		}
	}

	_, err := f.svc.Start(context.Background(), f.room.ID, 7, model.ClientMeta{})
	if !errors.Is(err, ErrAttemptLimitReached) {
		t.Fatalf("err = %v, want ErrAttemptLimitReached", err)
	}
}

func TestStartAccessDenials(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.room.IsActive = false
	if _, err := f.svc.Start(ctx, f.room.ID, 7, model.ClientMeta{}); !errors.Is(err, ErrRoomInactive) {
		t.Fatalf("inactive room: err = %v, want ErrRoomInactive", err)
	}
	f.room.IsActive = true

	f.students[7].Status = model.StudentStatusSuspended
	if _, err := f.svc.Start(ctx, f.room.ID, 7, model.ClientMeta{}); !errors.Is(err, ErrStudentInactive) {
		t.Fatalf("suspended student: err = %v, want ErrStudentInactive", err)
	}
	f.students[7].Status = model.StudentStatusActive

	f.room.AccessType = model.AccessTypeClassRestricted
	f.room.AllowedClassIDs = []int{99}
	if _, err := f.svc.Start(ctx, f.room.ID, 7, model.ClientMeta{}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("wrong class: err = %v, want ErrAccessDenied", err)
	}
}

func TestStartEmptyBank(t *testing.T) {
	f := newFixture(t, 0)
	emptyBank := uuid.New()
	f.room.BankID = emptyBank

	_, err := f.svc.Start(context.Background(), f.room.ID, 7, model.ClientMeta{})
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestFinishScoresAndIsTerminal(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)
	ctx := context.Background()

	answers := map[string]string{
		f.bank[0].ID.String(): "a", // correct
		f.bank[1].ID.String(): "b", // wrong
	}
	result, err := f.svc.Finish(ctx, payload.AttemptID, 7, &model.FinishAttemptRequest{
		Answers:          answers,
		TimeSpentSeconds: 120,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.CorrectAnswers != 1 || result.WrongAnswers != 1 || result.Unanswered != 3 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/3",
			result.CorrectAnswers, result.WrongAnswers, result.Unanswered)
	}
	if result.EarnedPoints != 2 || result.TotalPoints != 10 {
		t.Fatalf("points = %v/%v, want 2/10", result.EarnedPoints, result.TotalPoints)
	}
	if result.TimeSpentSeconds != 120 {
		t.Fatalf("time spent = %d, want 120", result.TimeSpentSeconds)
	}

	// A replayed submit must not rescore.
	if _, err := f.svc.Finish(ctx, payload.AttemptID, 7, &model.FinishAttemptRequest{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second finish: err = %v, want ErrInvalidState", err)
	}
}

func TestFinishSubmittedAnswersWinOverAutosave(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)
	ctx := context.Background()
	qid := f.bank[0].ID

	if err := f.svc.SaveAnswer(ctx, payload.AttemptID, 7, &model.SaveAnswerRequest{
		QuestionID: qid,
		Answer:     "b",
	}); err != nil {
		t.Fatalf("autosave: %v", err)
	}

	result, err := f.svc.Finish(ctx, payload.AttemptID, 7, &model.FinishAttemptRequest{
		Answers: map[string]string{qid.String(): "a"},
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.CorrectAnswers != 1 {
		t.Fatalf("correct = %d, want 1 (submitted answer must override autosave)", result.CorrectAnswers)
	}
}

func TestFinishUsesAutosavesWhenSubmitIsEmpty(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)
	ctx := context.Background()

	for _, q := range f.bank[:3] {
		if err := f.svc.SaveAnswer(ctx, payload.AttemptID, 7, &model.SaveAnswerRequest{
			QuestionID: q.ID,
			Answer:     "a",
		}); err != nil {
			t.Fatalf("autosave %s: %v", q.ID, err)
		}
	}

	result, err := f.svc.Finish(ctx, payload.AttemptID, 7, &model.FinishAttemptRequest{})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.CorrectAnswers != 3 || result.Unanswered != 2 {
		t.Fatalf("counts = %d correct / %d unanswered, want 3/2",
			result.CorrectAnswers, result.Unanswered)
	}
}

func TestFinishClampsTimeSpent(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	payload := f.start(t)
	result, err := f.svc.Finish(ctx, payload.AttemptID, 7, &model.FinishAttemptRequest{
		TimeSpentSeconds: f.room.DurationSeconds() + 500,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.TimeSpentSeconds != f.room.DurationSeconds() {
		t.Fatalf("time spent = %d, want clamped to %d", result.TimeSpentSeconds, f.room.DurationSeconds())
	}
}

func TestFinishRejectsForeignAttempt(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)

	_, err := f.svc.Finish(context.Background(), payload.AttemptID, 999, &model.FinishAttemptRequest{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound (ownership must read as not-found)", err)
	}
}

func TestSaveAnswerRejectsQuestionOutsideFrozenSet(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)

	err := f.svc.SaveAnswer(context.Background(), payload.AttemptID, 7, &model.SaveAnswerRequest{
		QuestionID: uuid.New(),
		Answer:     "a",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveAnswerFallsBackWhenCacheDown(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)

	f.cache.failing = true
	err := f.svc.SaveAnswer(context.Background(), payload.AttemptID, 7, &model.SaveAnswerRequest{
		QuestionID: f.bank[0].ID,
		Answer:     "a",
	})
	if err != nil {
		t.Fatalf("save with cache down: %v", err)
	}
	if f.store.upserts != 1 {
		t.Fatalf("direct upserts = %d, want 1", f.store.upserts)
	}
}

func TestStateMergesCacheOverLedger(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)
	ctx := context.Background()
	qid := f.bank[0].ID

	// Ledger holds a stale value, cache the newest write.
	f.store.storeAnswers(payload.AttemptID, []model.ExamAnswer{
		{AttemptID: payload.AttemptID, QuestionID: qid, Answer: "old"},
	})
	if err := f.svc.SaveAnswer(ctx, payload.AttemptID, 7, &model.SaveAnswerRequest{
		QuestionID: qid,
		Answer:     "new",
	}); err != nil {
		t.Fatalf("autosave: %v", err)
	}

	state, err := f.svc.State(ctx, payload.AttemptID, 7)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if got := state.AutosavedAnswers[qid.String()]; got != "new" {
		t.Fatalf("merged answer = %q, want cache value %q", got, "new")
	}
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > float64(f.room.DurationSeconds()) {
		t.Fatalf("remaining = %v, want within (0, %d]", state.RemainingSeconds, f.room.DurationSeconds())
	}
}

func TestReportViolationBelowThresholdKeepsAttemptAlive(t *testing.T) {
	f := newFixture(t, 3)
	payload := f.start(t)

	alive, err := f.svc.ReportViolation(context.Background(), payload.AttemptID, 7, &model.ReportViolationRequest{
		Kind: string(model.ViolationFullscreenExit),
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !alive {
		t.Fatal("attempt terminated below threshold")
	}
	if f.store.attempts[payload.AttemptID].Status != model.AttemptStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", f.store.attempts[payload.AttemptID].Status)
	}
}

func TestReportViolationAutoTerminatesAtThreshold(t *testing.T) {
	f := newFixture(t, 3)
	payload := f.start(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		alive, err := f.svc.ReportViolation(ctx, payload.AttemptID, 7, &model.ReportViolationRequest{
			Kind: string(model.ViolationContextMenu),
		})
		if err != nil || !alive {
			t.Fatalf("violation %d: alive=%v err=%v", i+1, alive, err)
		}
	}

	alive, err := f.svc.ReportViolation(ctx, payload.AttemptID, 7, &model.ReportViolationRequest{
		Kind: string(model.ViolationDevtools),
	})
	if err != nil {
		t.Fatalf("third violation: %v", err)
	}
	if alive {
		t.Fatal("attempt still alive at threshold")
	}
	if got := f.store.attempts[payload.AttemptID].Status; got != model.AttemptStatusTerminated {
		t.Fatalf("status = %s, want TERMINATED", got)
	}
	if f.store.results[payload.AttemptID] == nil {
		t.Fatal("termination left no partial result")
	}
}

func TestReportViolationZeroThresholdNeverTerminates(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		alive, err := f.svc.ReportViolation(ctx, payload.AttemptID, 7, &model.ReportViolationRequest{
			Kind: string(model.ViolationClipboard),
		})
		if err != nil || !alive {
			t.Fatalf("violation %d: alive=%v err=%v", i+1, alive, err)
		}
	}
}

func TestReportViolationWritesDirectlyWhenQueueDown(t *testing.T) {
	f := newFixture(t, 2)
	payload := f.start(t)
	ctx := context.Background()

	f.cache.failing = true

	alive, err := f.svc.ReportViolation(ctx, payload.AttemptID, 7, &model.ReportViolationRequest{
		Kind: string(model.ViolationFullscreenExit),
	})
	if err != nil || !alive {
		t.Fatalf("first violation: alive=%v err=%v", alive, err)
	}
	if n := len(f.store.violations[payload.AttemptID]); n != 1 {
		t.Fatalf("ledger violations = %d, want 1 (direct write)", n)
	}

	// The second direct write reaches the threshold from the persisted count.
	alive, err = f.svc.ReportViolation(ctx, payload.AttemptID, 7, &model.ReportViolationRequest{
		Kind: string(model.ViolationDevtools),
	})
	if err != nil {
		t.Fatalf("second violation: %v", err)
	}
	if alive {
		t.Fatal("threshold not enforced via ledger count")
	}
}

func TestFinishOverdueClosesExpiredOnly(t *testing.T) {
	f := newFixture(t, 0)
	f.room.AttemptType = model.AttemptTypeUnlimited
	ctx := context.Background()

	fresh := f.start(t)

	// A second student whose attempt started well past its deadline.
	f.students[8] = &model.Student{ID: 8, Username: "student08", Name: "Student Eight", ClassID: 1, Status: model.StudentStatusActive}
	expired := &model.ExamAttempt{
		ExamRoomID:  f.room.ID,
		StudentID:   8,
		QuestionIDs: []uuid.UUID{f.bank[0].ID},
		StartedAt:   time.Now().Add(-2 * time.Hour),
	}
	if err := f.store.Create(ctx, expired, f.room); err != nil {
		t.Fatalf("seed expired attempt: %v", err)
	}
	f.store.attempts[expired.ID].StartedAt = time.Now().Add(-2 * time.Hour)

	closed, err := f.svc.FinishOverdue(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("finish overdue: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}
	if got := f.store.attempts[expired.ID].Status; got != model.AttemptStatusCompleted {
		t.Fatalf("expired attempt status = %s, want COMPLETED", got)
	}
	if got := f.store.attempts[fresh.AttemptID].Status; got != model.AttemptStatusInProgress {
		t.Fatalf("fresh attempt status = %s, want IN_PROGRESS", got)
	}
	if result := f.store.results[expired.ID]; result == nil {
		t.Fatal("overdue close left no result")
	} else if result.TimeSpentSeconds != f.room.DurationSeconds() {
		t.Fatalf("overdue time spent = %d, want full duration %d",
			result.TimeSpentSeconds, f.room.DurationSeconds())
	}
}

func TestExecTerminateOneRequiresOwnership(t *testing.T) {
	f := newFixture(t, 0)
	payload := f.start(t)
	ctx := context.Background()

	outsider := &model.Staff{ID: 42, Role: model.StaffRoleTeacher}
	if _, err := f.svc.ExecTerminate(ctx, outsider, model.TerminateOne{AttemptID: payload.AttemptID}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("outsider teacher: err = %v, want ErrNotOwner", err)
	}

	admin := &model.Staff{ID: 42, Role: model.StaffRoleAdmin}
	n, err := f.svc.ExecTerminate(ctx, admin, model.TerminateOne{AttemptID: payload.AttemptID, Reason: "cheating"})
	if err != nil {
		t.Fatalf("admin terminate: %v", err)
	}
	if n != 1 {
		t.Fatalf("terminated = %d, want 1", n)
	}
	if got := f.store.attempts[payload.AttemptID].Status; got != model.AttemptStatusTerminated {
		t.Fatalf("status = %s, want TERMINATED", got)
	}
}

func TestExecTerminateAllSkipsAlreadyClosed(t *testing.T) {
	f := newFixture(t, 0)
	f.room.AttemptType = model.AttemptTypeUnlimited
	ctx := context.Background()

	first := f.start(t)
	f.students[8] = &model.Student{ID: 8, Username: "student08", Name: "Student Eight", ClassID: 1, Status: model.StudentStatusActive}
	second := &model.ExamAttempt{
		ExamRoomID:  f.room.ID,
		StudentID:   8,
		QuestionIDs: []uuid.UUID{f.bank[0].ID},
	}
	if err := f.store.Create(ctx, second, f.room); err != nil {
		t.Fatalf("seed second attempt: %v", err)
	}

	// The first student submits between the listing and the command.
	if _, err := f.svc.Finish(ctx, first.AttemptID, 7, &model.FinishAttemptRequest{}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	owner := &model.Staff{ID: f.room.OwnerID, Role: model.StaffRoleTeacher}
	n, err := f.svc.ExecTerminate(ctx, owner, model.TerminateAll{RoomID: f.room.ID, Reason: "room closed"})
	if err != nil {
		t.Fatalf("terminate all: %v", err)
	}
	if n != 1 {
		t.Fatalf("terminated = %d, want 1", n)
	}
	if got := f.store.attempts[first.AttemptID].Status; got != model.AttemptStatusCompleted {
		t.Fatalf("completed attempt was touched: status = %s", got)
	}
	if got := f.store.attempts[second.ID].Status; got != model.AttemptStatusTerminated {
		t.Fatalf("second attempt status = %s, want TERMINATED", got)
	}
}

func TestLobbyOverlaysAttemptState(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	lobby, err := f.svc.Lobby(ctx, 7)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	if len(lobby) != 1 || lobby[0].LobbyStatus != LobbyStatusAvailable {
		t.Fatalf("lobby = %+v, want one AVAILABLE room", lobby)
	}

	payload := f.start(t)
	lobby, err = f.svc.Lobby(ctx, 7)
	if err != nil {
		t.Fatalf("lobby after start: %v", err)
	}
	if lobby[0].LobbyStatus != LobbyStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", lobby[0].LobbyStatus)
	}
	if lobby[0].ActiveAttemptID == nil || *lobby[0].ActiveAttemptID != payload.AttemptID {
		t.Fatalf("active attempt id = %v, want %s", lobby[0].ActiveAttemptID, payload.AttemptID)
	}

	if _, err := f.svc.Finish(ctx, payload.AttemptID, 7, &model.FinishAttemptRequest{}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	lobby, err = f.svc.Lobby(ctx, 7)
	if err != nil {
		t.Fatalf("lobby after finish: %v", err)
	}
	if lobby[0].LobbyStatus != LobbyStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", lobby[0].LobbyStatus)
	}
}

func TestLobbyHidesInaccessibleRooms(t *testing.T) {
	f := newFixture(t, 0)

	restricted := &model.ExamRoom{
		ID:              uuid.New(),
		Title:           "Other class",
		OwnerID:         1,
		BankID:          f.room.BankID,
		AccessType:      model.AccessTypeClassRestricted,
		AllowedClassIDs: []int{99},
		AttemptType:     model.AttemptTypeSingle,
		DurationMinutes: 30,
		IsActive:        true,
	}
	f.rooms[restricted.ID] = restricted

	lobby, err := f.svc.Lobby(context.Background(), 7)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	for _, entry := range lobby {
		if entry.ID == restricted.ID {
			t.Fatal("restricted room leaked into lobby")
		}
	}
}
