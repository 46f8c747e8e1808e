package service

import (
	"context"
	"fmt"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/response"
)

// StudentService handles student account management, including staff
// commands (suspend, unsuspend, session reset).
type StudentService struct {
	studentRepo *repository.StudentRepository
	auth        *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, auth *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, auth: auth}
}

// GetByUsername retrieves a student by username.
func (s *StudentService) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	return s.studentRepo.GetByUsername(ctx, username)
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// ListStudents retrieves all students with pagination and optional class filter.
func (s *StudentService) ListStudents(ctx context.Context, classID *int, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	students, total, err := s.studentRepo.ListPaginated(ctx, classID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if students == nil {
		students = []model.Student{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return students, pagination, nil
}

// Create inserts a new student with a hashed password. New accounts are ACTIVE.
func (s *StudentService) Create(ctx context.Context, student *model.Student, password string) error {
	hashed, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	student.PasswordHash = hashed
	if student.Status == "" {
		student.Status = model.StudentStatusActive
	}
	return s.studentRepo.Create(ctx, student)
}

// Update modifies a student's details. Updates the password if provided.
func (s *StudentService) Update(ctx context.Context, student *model.Student, newPassword string) error {
	if err := s.studentRepo.Update(ctx, student); err != nil {
		return err
	}

	if newPassword != "" {
		hashed, err := s.auth.HashPassword(newPassword)
		if err != nil {
			return err
		}
		return s.studentRepo.UpdatePassword(ctx, student.ID, hashed)
	}

	return nil
}

// Exec dispatches a staff student-management command. Suspension takes
// effect at the next access check; it does not end an attempt already in
// progress.
func (s *StudentService) Exec(ctx context.Context, cmd model.StudentCommand) error {
	switch c := cmd.(type) {
	case model.SuspendStudent:
		return s.studentRepo.UpdateStatus(ctx, c.StudentID, model.StudentStatusSuspended)
	case model.UnsuspendStudent:
		return s.studentRepo.UpdateStatus(ctx, c.StudentID, model.StudentStatusActive)
	case model.ResetStudentSession:
		return s.auth.ResetStudentSession(ctx, c.StudentID)
	default:
		return fmt.Errorf("unknown student command %T", cmd)
	}
}

// Delete removes a student by ID.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	return s.studentRepo.Delete(ctx, id)
}
