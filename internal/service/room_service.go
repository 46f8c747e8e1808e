package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// RoomService handles exam room configuration and result reporting.
// Teachers manage only their own rooms; admins manage all.
type RoomService struct {
	roomRepo   *repository.ExamRoomRepository
	bankRepo   *repository.QuestionBankRepository
	resultRepo *repository.ResultRepository
	cache      AttemptCache
	log        zerolog.Logger
}

// NewRoomService creates a new RoomService.
func NewRoomService(
	roomRepo *repository.ExamRoomRepository,
	bankRepo *repository.QuestionBankRepository,
	resultRepo *repository.ResultRepository,
	cache AttemptCache,
	log zerolog.Logger,
) *RoomService {
	return &RoomService{
		roomRepo:   roomRepo,
		bankRepo:   bankRepo,
		resultRepo: resultRepo,
		cache:      cache,
		log:        log.With().Str("component", "room_service").Logger(),
	}
}

// GetOwned loads a room and verifies the staff member may manage it.
func (s *RoomService) GetOwned(ctx context.Context, staff *model.Staff, roomID uuid.UUID) (*model.ExamRoom, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, notFoundOr("get room", err)
	}
	if staff.Role != model.StaffRoleAdmin && room.OwnerID != staff.ID {
		return nil, ErrNotOwner
	}
	return room, nil
}

// ListOwned returns the staff member's rooms.
func (s *RoomService) ListOwned(ctx context.Context, staffID int) ([]model.ExamRoom, error) {
	return s.roomRepo.ListByOwner(ctx, staffID)
}

// Create opens a new room over one of the staff member's question banks.
// Rooms start inactive; activation is an explicit step.
func (s *RoomService) Create(ctx context.Context, staff *model.Staff, req *model.CreateExamRoomRequest) (*model.ExamRoom, error) {
	bank, err := s.bankRepo.GetByID(ctx, req.BankID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bank: %w", err)
	}
	if staff.Role != model.StaffRoleAdmin && bank.OwnerID != staff.ID {
		return nil, ErrNotOwner
	}

	room := &model.ExamRoom{
		Title:            req.Title,
		OwnerID:          staff.ID,
		BankID:           req.BankID,
		AccessType:       model.AccessType(req.AccessType),
		AllowedClassIDs:  req.AllowedClassIDs,
		AllowedStudents:  req.AllowedStudents,
		AttemptType:      model.AttemptType(req.AttemptType),
		MaxAttempts:      req.MaxAttempts,
		MaxQuestions:     req.MaxQuestions,
		DurationMinutes:  req.DurationMinutes,
		RandomizeOrder:   req.RandomizeOrder,
		RandomizeAnswers: req.RandomizeAnswers,
		IsActive:         false,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// Update applies a partial update to a room the staff member owns.
// Configuration changes do not touch attempts already in progress: their
// question sets are frozen and their deadline derives from their own
// started_at.
func (s *RoomService) Update(ctx context.Context, staff *model.Staff, roomID uuid.UUID, req *model.UpdateExamRoomRequest) (*model.ExamRoom, error) {
	room, err := s.GetOwned(ctx, staff, roomID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		room.Title = req.Title
	}
	if req.AccessType != "" {
		room.AccessType = model.AccessType(req.AccessType)
	}
	if req.AllowedClassIDs != nil {
		room.AllowedClassIDs = req.AllowedClassIDs
	}
	if req.AllowedStudents != nil {
		room.AllowedStudents = req.AllowedStudents
	}
	if req.AttemptType != "" {
		room.AttemptType = model.AttemptType(req.AttemptType)
	}
	if req.MaxAttempts != nil {
		room.MaxAttempts = *req.MaxAttempts
	}
	if req.MaxQuestions != nil {
		room.MaxQuestions = *req.MaxQuestions
	}
	if req.DurationMinutes != 0 {
		room.DurationMinutes = req.DurationMinutes
	}
	if req.RandomizeOrder != nil {
		room.RandomizeOrder = *req.RandomizeOrder
	}
	if req.RandomizeAnswers != nil {
		room.RandomizeAnswers = *req.RandomizeAnswers
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	s.invalidateQuestions(ctx, room.ID)
	return room, nil
}

// SetActive opens or closes a room. Closing only blocks new starts.
func (s *RoomService) SetActive(ctx context.Context, staff *model.Staff, roomID uuid.UUID, active bool) error {
	if _, err := s.GetOwned(ctx, staff, roomID); err != nil {
		return err
	}
	return s.roomRepo.SetActive(ctx, roomID, active)
}

// Delete removes a room without attempt history.
func (s *RoomService) Delete(ctx context.Context, staff *model.Staff, roomID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, staff, roomID); err != nil {
		return err
	}
	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return err
	}
	s.invalidateQuestions(ctx, roomID)
	return nil
}

// Results returns the room's paginated result listing for its owner.
func (s *RoomService) Results(ctx context.Context, staff *model.Staff, roomID uuid.UUID, page, perPage int) ([]model.RoomResultRow, *response.Pagination, error) {
	if _, err := s.GetOwned(ctx, staff, roomID); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}
	if perPage > 100 {
		perPage = 100
	}

	rows, total, err := s.resultRepo.ListByRoom(ctx, roomID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list room results: %w", err)
	}
	if rows == nil {
		rows = []model.RoomResultRow{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return rows, pagination, nil
}

// Summary returns the room's aggregate outcome statistics for its owner.
func (s *RoomService) Summary(ctx context.Context, staff *model.Staff, roomID uuid.UUID) (*model.RoomSummary, error) {
	if _, err := s.GetOwned(ctx, staff, roomID); err != nil {
		return nil, err
	}
	return s.resultRepo.RoomSummary(ctx, roomID)
}

// StudentHistory returns the student's own attempt history.
func (s *RoomService) StudentHistory(ctx context.Context, studentID int) ([]model.StudentHistoryRow, error) {
	history, err := s.resultRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student history: %w", err)
	}
	if history == nil {
		history = []model.StudentHistoryRow{}
	}
	return history, nil
}

// ResultForAttempt returns one attempt's result to its own student.
func (s *RoomService) ResultForAttempt(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.ExamResult, error) {
	result, err := s.resultRepo.GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, notFoundOr("get result", err)
	}
	if result.StudentID != studentID {
		return nil, ErrNotFound
	}
	return result, nil
}

func (s *RoomService) invalidateQuestions(ctx context.Context, roomID uuid.UUID) {
	if err := s.cache.ClearRoomQuestions(ctx, roomID); err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Question cache invalidation failed")
	}
}
