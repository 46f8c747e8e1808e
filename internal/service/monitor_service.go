package service

import (
	"context"
	"sync"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/google/uuid"
)

// MonitorService builds the initial snapshot for a room's live
// monitoring feed; subsequent updates arrive over Redis pub/sub.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
	attemptRepo *repository.AttemptRepository
	studentRepo *repository.StudentRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(
	monitorRepo *repository.MonitorRepository,
	attemptRepo *repository.AttemptRepository,
	studentRepo *repository.StudentRepository,
) *MonitorService {
	return &MonitorService{
		monitorRepo: monitorRepo,
		attemptRepo: attemptRepo,
		studentRepo: studentRepo,
	}
}

// Snapshot returns every active attempt in the room with its answered and
// violation counters. The two counter queries run concurrently; violation
// counts are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, roomID uuid.UUID) (*model.MonitorSnapshot, error) {
	attempts, err := s.attemptRepo.ListInProgressByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var (
		answered     map[uuid.UUID]int64
		violations   map[uuid.UUID]int64
		answeredErr  error
		violationErr error
		wg           sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		answered, answeredErr = s.monitorRepo.GetAnsweredCounts(ctx, roomID)
	}()
	go func() {
		defer wg.Done()
		violations, violationErr = s.monitorRepo.GetViolationCounts(ctx, roomID)
	}()
	wg.Wait()

	if answeredErr != nil {
		return nil, answeredErr
	}
	if violationErr != nil {
		violations = nil
	}

	snapshot := &model.MonitorSnapshot{
		RoomID:   roomID,
		Attempts: make([]model.MonitorAttempt, 0, len(attempts)),
	}
	for _, a := range attempts {
		line := model.MonitorAttempt{
			AttemptID:      a.ID,
			StudentID:      a.StudentID,
			StartedAt:      a.StartedAt,
			AnsweredCount:  answered[a.ID],
			ViolationCount: violations[a.ID],
		}
		if student, err := s.studentRepo.GetByID(ctx, a.StudentID); err == nil {
			line.StudentName = student.Name
		}
		snapshot.Attempts = append(snapshot.Attempts, line)
	}
	return snapshot, nil
}
