package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/examgate/examgate-backend/internal/access"
	"github.com/examgate/examgate-backend/internal/composer"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AttemptStore is the slice of the attempt ledger the service needs.
// Satisfied by repository.AttemptRepository.
type AttemptStore interface {
	Create(ctx context.Context, a *model.ExamAttempt, room *model.ExamRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	FindActive(ctx context.Context, roomID uuid.UUID, studentID int) (*model.ExamAttempt, error)
	HasCompleted(ctx context.Context, roomID uuid.UUID, studentID int) (bool, error)
	CountCompleted(ctx context.Context, roomID uuid.UUID, studentID int) (int, error)
	ListInProgressByRoom(ctx context.Context, roomID uuid.UUID) ([]model.ExamAttempt, error)
	ListOverdue(ctx context.Context, grace time.Duration) ([]model.ExamAttempt, error)
	Complete(ctx context.Context, attemptID uuid.UUID, timeSpent int, answers []model.ExamAnswer, result *model.ExamResult) error
	Terminate(ctx context.Context, attemptID uuid.UUID, reason string, timeSpent int, answers []model.ExamAnswer, result *model.ExamResult) error
	UpsertAnswer(ctx context.Context, ans *model.ExamAnswer) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.ExamAnswer, error)
	AppendViolation(ctx context.Context, attemptID uuid.UUID, kind model.ViolationKind, detail string, recordedAt time.Time) error
	ListViolations(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error)
	CountViolations(ctx context.Context, attemptID uuid.UUID) (int, error)
}

// QuestionStore loads bank questions. Satisfied by repository.QuestionRepository.
type QuestionStore interface {
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// RoomStore loads exam rooms. Satisfied by repository.ExamRoomRepository.
type RoomStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamRoom, error)
	ListActive(ctx context.Context) ([]model.ExamRoom, error)
}

// StudentStore loads students. Satisfied by repository.StudentRepository.
type StudentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

// GradeScaleSource supplies the active grade scale. Satisfied by
// SettingService.
type GradeScaleSource interface {
	Scale(ctx context.Context) scoring.GradeScale
}

// AttemptService drives the attempt lifecycle: lobby, start, autosave,
// state recovery, finish, timeout and termination. One student has at
// most one IN_PROGRESS attempt per room; the ledger enforces that and
// this service translates its verdicts.
type AttemptService struct {
	attempts AttemptStore
	question QuestionStore
	rooms    RoomStore
	students StudentStore
	cache    AttemptCache
	scale    GradeScaleSource
	log      zerolog.Logger

	// terminateAfter auto-terminates an attempt at this violation count.
	// Zero disables.
	terminateAfter int
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	questions QuestionStore,
	rooms RoomStore,
	students StudentStore,
	cache AttemptCache,
	scale GradeScaleSource,
	log zerolog.Logger,
	terminateAfter int,
) *AttemptService {
	return &AttemptService{
		attempts:       attempts,
		question:       questions,
		rooms:          rooms,
		students:       students,
		cache:          cache,
		scale:          scale,
		log:            log.With().Str("component", "attempt_service").Logger(),
		terminateAfter: terminateAfter,
	}
}

// LobbyStatus is the per-room entry state shown to a student.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
	LobbyStatusExhausted  LobbyStatus = "EXHAUSTED"
)

// LobbyRoom is an exam room as displayed in the student lobby.
type LobbyRoom struct {
	model.ExamRoom
	LobbyStatus     LobbyStatus `json:"lobby_status"`
	ActiveAttemptID *uuid.UUID  `json:"active_attempt_id,omitempty"`
	AttemptsUsed    int         `json:"attempts_used"`
}

// Lobby returns the active rooms the student may enter, with their
// attempt state overlaid.
func (s *AttemptService) Lobby(ctx context.Context, studentID int) ([]LobbyRoom, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}

	var lobby []LobbyRoom
	for _, room := range rooms {
		if !access.Evaluate(*student, room).Allowed {
			continue
		}

		entry := LobbyRoom{ExamRoom: room, LobbyStatus: LobbyStatusAvailable}

		active, err := s.attempts.FindActive(ctx, room.ID, studentID)
		if err != nil {
			return nil, fmt.Errorf("find active attempt: %w", err)
		}
		if active != nil {
			entry.LobbyStatus = LobbyStatusInProgress
			entry.ActiveAttemptID = &active.ID
			lobby = append(lobby, entry)
			continue
		}

		completed, err := s.attempts.CountCompleted(ctx, room.ID, studentID)
		if err != nil {
			return nil, fmt.Errorf("count completed attempts: %w", err)
		}
		entry.AttemptsUsed = completed

		switch room.AttemptType {
		case model.AttemptTypeSingle:
			if completed > 0 {
				entry.LobbyStatus = LobbyStatusCompleted
			}
		case model.AttemptTypeLimited:
			if completed >= room.MaxAttempts {
				entry.LobbyStatus = LobbyStatusExhausted
			}
		}

		lobby = append(lobby, entry)
	}
	return lobby, nil
}

// Start opens an attempt for the student in the room. Starting is
// idempotent with respect to an active attempt: a second start (duplicate
// tab, new device) resumes the existing one instead of failing or
// consuming quota.
func (s *AttemptService) Start(ctx context.Context, roomID uuid.UUID, studentID int, meta model.ClientMeta) (*model.AttemptPayload, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr("get student", err)
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, notFoundOr("get room", err)
	}

	if d := access.Evaluate(*student, *room); !d.Allowed {
		return nil, denyError(d.Reason)
	}

	if active, err := s.attempts.FindActive(ctx, roomID, studentID); err != nil {
		return nil, fmt.Errorf("find active attempt: %w", err)
	} else if active != nil {
		return s.resume(ctx, active, room)
	}

	bank, err := s.roomQuestions(ctx, room)
	if err != nil {
		return nil, err
	}
	if len(bank) == 0 {
		return nil, ErrNoQuestions
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	composed := composer.Compose(*room, bank, rng)

	attempt := &model.ExamAttempt{
		ExamRoomID:  roomID,
		StudentID:   studentID,
		QuestionIDs: questionIDs(composed),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}

	if err := s.attempts.Create(ctx, attempt, room); err != nil {
		if !errors.Is(err, repository.ErrAttemptBlocked) {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		// Either a concurrent start won the race or quota is used up.
		active, findErr := s.attempts.FindActive(ctx, roomID, studentID)
		if findErr != nil {
			return nil, fmt.Errorf("attempt blocked, fetch active failed: %w", findErr)
		}
		if active != nil {
			return s.resume(ctx, active, room)
		}
		if room.AttemptType == model.AttemptTypeSingle {
			return nil, ErrDuplicateAttempt
		}
		return nil, ErrAttemptLimitReached
	}

	if err := s.cache.SetStart(ctx, attempt.ID, attempt.StartedAt); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to cache start time")
	}

	payload := &model.AttemptPayload{
		AttemptID: attempt.ID,
		RoomID:    room.ID,
		Title:     room.Title,
		Duration:  room.DurationMinutes,
		StartedAt: attempt.StartedAt,
		Questions: composer.ForClient(composed),
	}
	if err := s.cache.SetPayload(ctx, payload); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to cache payload")
	}

	s.publish(ctx, room.ID, &model.MonitorEvent{
		Type:        model.MonitorEventStarted,
		AttemptID:   attempt.ID,
		StudentID:   studentID,
		StudentName: student.Name,
		At:          attempt.StartedAt,
	})

	return payload, nil
}

// resume rebuilds the payload of an already-active attempt. The composed
// question set is frozen in the ledger, so a cache miss recovers the same
// questions; only the cosmetic option shuffle is lost.
func (s *AttemptService) resume(ctx context.Context, attempt *model.ExamAttempt, room *model.ExamRoom) (*model.AttemptPayload, error) {
	payload, err := s.cache.GetPayload(ctx, attempt.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Payload cache read failed")
	}

	if payload == nil {
		questions, err := s.frozenQuestions(ctx, attempt)
		if err != nil {
			return nil, err
		}
		payload = &model.AttemptPayload{
			AttemptID: attempt.ID,
			RoomID:    room.ID,
			Title:     room.Title,
			Duration:  room.DurationMinutes,
			StartedAt: attempt.StartedAt,
			Questions: composer.ForClient(questions),
		}
		if err := s.cache.SetPayload(ctx, payload); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to re-cache payload")
		}
	}

	payload.Resumed = true
	return payload, nil
}

// State returns the autosaved answers and remaining time for an active
// attempt, for reconnect recovery.
func (s *AttemptService) State(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.AttemptState, error) {
	attempt, room, err := s.ownedActive(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	// Merge persisted answers with the cache; the cache holds the newest
	// writes so it wins on overlap.
	answers := make(map[string]string)
	persisted, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	for _, a := range persisted {
		answers[a.QuestionID.String()] = a.Answer
	}
	cached, err := s.cache.Answers(ctx, attemptID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Answer cache read failed")
	}
	for qid, ans := range cached {
		answers[qid] = ans
	}

	startedAt, found, err := s.cache.GetStart(ctx, attemptID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Start cache read failed")
		found = false
	}
	if !found {
		startedAt = attempt.StartedAt
		if err := s.cache.SetStart(ctx, attemptID, startedAt); err == nil {
			s.log.Debug().Str("attempt_id", attemptID.String()).Msg("Self-healed start time cache")
		}
	}

	remaining := time.Until(startedAt.Add(time.Duration(room.DurationMinutes) * time.Minute))
	if remaining < 0 {
		remaining = 0
	}

	return &model.AttemptState{
		AttemptID:        attemptID,
		AutosavedAnswers: answers,
		RemainingSeconds: remaining.Seconds(),
	}, nil
}

// SaveAnswer autosaves one answer for an active attempt. The write goes
// to the cache and the persistence queue; if the cache is down it falls
// back to a direct ledger upsert so no answer is lost.
func (s *AttemptService) SaveAnswer(ctx context.Context, attemptID uuid.UUID, studentID int, req *model.SaveAnswerRequest) error {
	attempt, _, err := s.ownedActive(ctx, attemptID, studentID)
	if err != nil {
		return err
	}

	if !containsID(attempt.QuestionIDs, req.QuestionID) {
		return ErrNotFound
	}

	if err := s.cache.SaveAnswer(ctx, attemptID, req.QuestionID, req.Answer, req.TimeSpentSeconds); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Autosave cache write failed, persisting directly")
		if err := s.attempts.UpsertAnswer(ctx, &model.ExamAnswer{
			AttemptID:        attemptID,
			QuestionID:       req.QuestionID,
			Answer:           req.Answer,
			TimeSpentSeconds: req.TimeSpentSeconds,
		}); err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
	}

	s.publish(ctx, attempt.ExamRoomID, &model.MonitorEvent{
		Type:      model.MonitorEventAnswered,
		AttemptID: attemptID,
		StudentID: studentID,
		At:        time.Now(),
	})
	return nil
}

// Finish submits the attempt for scoring. Answers in the request win over
// autosaved values; the whole completion — status flip, scored answers,
// result row — commits in one transaction or not at all. A second finish
// returns ErrInvalidState.
func (s *AttemptService) Finish(ctx context.Context, attemptID uuid.UUID, studentID int, req *model.FinishAttemptRequest) (*model.ExamResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, notFoundOr("get attempt", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotFound
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrInvalidState
	}

	return s.close(ctx, attempt, req.Answers, req.TimeSpentSeconds)
}

// FinishOverdue auto-submits every attempt whose room duration expired,
// using only its autosaved answers. Run periodically; the per-attempt
// transition guard makes it safe to run concurrently with client
// submissions.
func (s *AttemptService) FinishOverdue(ctx context.Context, grace time.Duration) (int, error) {
	overdue, err := s.attempts.ListOverdue(ctx, grace)
	if err != nil {
		return 0, fmt.Errorf("list overdue attempts: %w", err)
	}

	closed := 0
	for i := range overdue {
		attempt := &overdue[i]
		room, err := s.rooms.GetByID(ctx, attempt.ExamRoomID)
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Overdue sweep: load room failed")
			continue
		}
		_, err = s.close(ctx, attempt, nil, room.DurationSeconds())
		if errors.Is(err, ErrInvalidState) {
			continue // the student submitted first
		}
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Overdue sweep: close failed")
			continue
		}
		closed++
	}
	return closed, nil
}

// ExecTerminate dispatches a termination command on behalf of a staff
// member. Teachers may only terminate attempts in rooms they own; admins
// may terminate anywhere.
func (s *AttemptService) ExecTerminate(ctx context.Context, staff *model.Staff, cmd model.TerminateCommand) (int, error) {
	switch c := cmd.(type) {
	case model.TerminateOne:
		attempt, err := s.attempts.GetByID(ctx, c.AttemptID)
		if err != nil {
			return 0, notFoundOr("get attempt", err)
		}
		room, err := s.rooms.GetByID(ctx, attempt.ExamRoomID)
		if err != nil {
			return 0, notFoundOr("get room", err)
		}
		if err := s.authorizeRoom(staff, room); err != nil {
			return 0, err
		}
		if err := s.terminate(ctx, attempt, room, c.Reason); err != nil {
			return 0, err
		}
		return 1, nil

	case model.TerminateAll:
		room, err := s.rooms.GetByID(ctx, c.RoomID)
		if err != nil {
			return 0, notFoundOr("get room", err)
		}
		if err := s.authorizeRoom(staff, room); err != nil {
			return 0, err
		}
		active, err := s.attempts.ListInProgressByRoom(ctx, c.RoomID)
		if err != nil {
			return 0, fmt.Errorf("list in-progress attempts: %w", err)
		}
		terminated := 0
		for i := range active {
			err := s.terminate(ctx, &active[i], room, c.Reason)
			if errors.Is(err, ErrInvalidState) {
				continue // closed between the listing and the command
			}
			if err != nil {
				return terminated, err
			}
			terminated++
		}
		return terminated, nil

	default:
		return 0, fmt.Errorf("unknown terminate command %T", cmd)
	}
}

// ReportViolation appends one proctoring event to an active attempt and
// auto-terminates it if the configured violation limit is reached.
// Returns whether the attempt survived.
func (s *AttemptService) ReportViolation(ctx context.Context, attemptID uuid.UUID, studentID int, req *model.ReportViolationRequest) (alive bool, err error) {
	attempt, room, err := s.ownedActive(ctx, attemptID, studentID)
	if err != nil {
		return false, err
	}

	now := time.Now()

	// Queue first so bursts (a whole class alt-tabbing) never hammer the
	// ledger; the violation worker persists batches. When the queue is
	// unreachable the event is written directly.
	count, err := s.cache.EnqueueViolation(ctx, attemptID, req.Kind, req.Detail, now)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Violation queue unavailable, writing directly")
		if err := s.attempts.AppendViolation(ctx, attemptID, model.ViolationKind(req.Kind), req.Detail, now); err != nil {
			return true, fmt.Errorf("append violation: %w", err)
		}
		persisted, err := s.attempts.CountViolations(ctx, attemptID)
		if err != nil {
			return true, fmt.Errorf("count violations: %w", err)
		}
		count = int64(persisted)
	}

	s.publish(ctx, attempt.ExamRoomID, &model.MonitorEvent{
		Type:      model.MonitorEventViolation,
		AttemptID: attemptID,
		StudentID: studentID,
		Detail:    req.Kind,
		At:        now,
	})

	if s.terminateAfter > 0 && count >= int64(s.terminateAfter) {
		err := s.terminate(ctx, attempt, room, "violation limit reached")
		if err != nil && !errors.Is(err, ErrInvalidState) {
			return true, err
		}
		return false, nil
	}
	return true, nil
}

// Violations returns the attempt's proctoring log. Students see their own;
// staff access is authorized by the caller.
func (s *AttemptService) Violations(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	return s.attempts.ListViolations(ctx, attemptID)
}

// close runs the COMPLETED transition: merge answers, score, persist
// atomically, drop caches, publish.
func (s *AttemptService) close(ctx context.Context, attempt *model.ExamAttempt, submitted map[string]string, timeSpent int) (*model.ExamResult, error) {
	room, err := s.rooms.GetByID(ctx, attempt.ExamRoomID)
	if err != nil {
		return nil, notFoundOr("get room", err)
	}

	questions, err := s.frozenQuestions(ctx, attempt)
	if err != nil {
		return nil, err
	}

	answers, err := s.mergedAnswers(ctx, attempt.ID, submitted)
	if err != nil {
		return nil, err
	}

	timeSpent = clampTimeSpent(timeSpent, room.DurationSeconds())
	summary := scoring.Score(questions, answers, s.scale.Scale(ctx))

	violations, err := s.attempts.ListViolations(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}

	rows := answerRows(attempt.ID, summary)
	result := buildResult(attempt, summary, timeSpent, violations)

	if err := s.attempts.Complete(ctx, attempt.ID, timeSpent, rows, result); err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	if err := s.cache.Clear(ctx, attempt.ID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to clear attempt cache")
	}
	s.publish(ctx, attempt.ExamRoomID, &model.MonitorEvent{
		Type:      model.MonitorEventCompleted,
		AttemptID: attempt.ID,
		StudentID: attempt.StudentID,
		At:        time.Now(),
	})

	return result, nil
}

// terminate runs the TERMINATED transition. The partial result is scored
// from whatever the student had autosaved; time spent is the elapsed wall
// time, clamped to the room duration.
func (s *AttemptService) terminate(ctx context.Context, attempt *model.ExamAttempt, room *model.ExamRoom, reason string) error {
	questions, err := s.frozenQuestions(ctx, attempt)
	if err != nil {
		return err
	}
	answers, err := s.mergedAnswers(ctx, attempt.ID, nil)
	if err != nil {
		return err
	}

	timeSpent := clampTimeSpent(int(time.Since(attempt.StartedAt).Seconds()), room.DurationSeconds())
	summary := scoring.Score(questions, answers, s.scale.Scale(ctx))

	violations, err := s.attempts.ListViolations(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("list violations: %w", err)
	}

	rows := answerRows(attempt.ID, summary)
	result := buildResult(attempt, summary, timeSpent, violations)

	if err := s.attempts.Terminate(ctx, attempt.ID, reason, timeSpent, rows, result); err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return ErrInvalidState
		}
		return fmt.Errorf("terminate attempt: %w", err)
	}

	if err := s.cache.Clear(ctx, attempt.ID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to clear attempt cache")
	}
	s.publish(ctx, attempt.ExamRoomID, &model.MonitorEvent{
		Type:      model.MonitorEventTerminated,
		AttemptID: attempt.ID,
		StudentID: attempt.StudentID,
		Detail:    reason,
		At:        time.Now(),
	})
	return nil
}

// ownedActive loads an attempt, verifies ownership and that it is still
// IN_PROGRESS, and returns it with its room. Ownership failures read as
// not-found so attempt IDs cannot be probed.
func (s *AttemptService) ownedActive(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.ExamAttempt, *model.ExamRoom, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, nil, notFoundOr("get attempt", err)
	}
	if attempt.StudentID != studentID {
		return nil, nil, ErrNotFound
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, nil, ErrInvalidState
	}
	room, err := s.rooms.GetByID(ctx, attempt.ExamRoomID)
	if err != nil {
		return nil, nil, notFoundOr("get room", err)
	}
	return attempt, room, nil
}

// roomQuestions loads the room's bank through the cache.
func (s *AttemptService) roomQuestions(ctx context.Context, room *model.ExamRoom) ([]model.Question, error) {
	cached, err := s.cache.GetRoomQuestions(ctx, room.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("room_id", room.ID.String()).Msg("Question cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	bank, err := s.question.ListByBank(ctx, room.BankID)
	if err != nil {
		return nil, fmt.Errorf("list bank questions: %w", err)
	}
	if len(bank) > 0 {
		if err := s.cache.SetRoomQuestions(ctx, room.ID, bank); err != nil {
			s.log.Warn().Err(err).Str("room_id", room.ID.String()).Msg("Question cache write failed")
		}
	}
	return bank, nil
}

// frozenQuestions loads the attempt's composed question set in its frozen
// order.
func (s *AttemptService) frozenQuestions(ctx context.Context, attempt *model.ExamAttempt) ([]model.Question, error) {
	loaded, err := s.question.GetByIDs(ctx, attempt.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load attempt questions: %w", err)
	}

	byID := make(map[uuid.UUID]model.Question, len(loaded))
	for _, q := range loaded {
		byID[q.ID] = q
	}

	questions := make([]model.Question, 0, len(attempt.QuestionIDs))
	for _, id := range attempt.QuestionIDs {
		if q, ok := byID[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// mergedAnswers joins persisted answers, cached autosaves and the final
// submission, newest layer winning.
func (s *AttemptService) mergedAnswers(ctx context.Context, attemptID uuid.UUID, submitted map[string]string) (map[string]string, error) {
	answers := make(map[string]string)

	persisted, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	for _, a := range persisted {
		answers[a.QuestionID.String()] = a.Answer
	}

	cached, err := s.cache.Answers(ctx, attemptID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Answer cache read failed, using ledger only")
	}
	for qid, ans := range cached {
		answers[qid] = ans
	}

	for qid, ans := range submitted {
		answers[qid] = ans
	}
	return answers, nil
}

func (s *AttemptService) authorizeRoom(staff *model.Staff, room *model.ExamRoom) error {
	if staff.Role != model.StaffRoleAdmin && room.OwnerID != staff.ID {
		return ErrNotOwner
	}
	return nil
}

func (s *AttemptService) publish(ctx context.Context, roomID uuid.UUID, event *model.MonitorEvent) {
	if err := s.cache.PublishMonitorEvent(ctx, roomID, event); err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Monitor publish failed")
	}
}

func answerRows(attemptID uuid.UUID, summary scoring.Summary) []model.ExamAnswer {
	rows := make([]model.ExamAnswer, 0, len(summary.PerQuestion))
	for _, qs := range summary.PerQuestion {
		if !qs.Answered {
			continue
		}
		correct := qs.Correct
		rows = append(rows, model.ExamAnswer{
			AttemptID:    attemptID,
			QuestionID:   qs.QuestionID,
			Answer:       qs.Answer,
			IsCorrect:    &correct,
			PointsEarned: qs.PointsEarned,
		})
	}
	return rows
}

func buildResult(attempt *model.ExamAttempt, summary scoring.Summary, timeSpent int, violations []model.Violation) *model.ExamResult {
	return &model.ExamResult{
		AttemptID:        attempt.ID,
		ExamRoomID:       attempt.ExamRoomID,
		StudentID:        attempt.StudentID,
		TotalQuestions:   summary.TotalQuestions,
		CorrectAnswers:   summary.CorrectAnswers,
		WrongAnswers:     summary.WrongAnswers,
		Unanswered:       summary.Unanswered,
		TotalPoints:      summary.TotalPoints,
		EarnedPoints:     summary.EarnedPoints,
		Percentage:       summary.Percentage,
		Grade:            summary.Grade,
		TimeSpentSeconds: timeSpent,
		Violations:       violations,
	}
}

func clampTimeSpent(seconds, max int) int {
	if seconds < 0 {
		return 0
	}
	if seconds > max {
		return max
	}
	return seconds
}

func questionIDs(questions []model.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
