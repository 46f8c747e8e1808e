package service

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
)

// StaffService handles teacher and administrator account management.
type StaffService struct {
	staffRepo *repository.StaffRepository
	auth      *AuthService
}

// NewStaffService creates a new StaffService.
func NewStaffService(staffRepo *repository.StaffRepository, auth *AuthService) *StaffService {
	return &StaffService{staffRepo: staffRepo, auth: auth}
}

func (s *StaffService) GetByID(ctx context.Context, id int) (*model.Staff, error) {
	return s.staffRepo.GetByID(ctx, id)
}

func (s *StaffService) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	return s.staffRepo.GetByEmail(ctx, email)
}

func (s *StaffService) List(ctx context.Context) ([]model.Staff, error) {
	return s.staffRepo.List(ctx)
}

// Create hashes the password and stores the new staff account.
func (s *StaffService) Create(ctx context.Context, staff *model.Staff, password string) error {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	staff.PasswordHash = hash
	return s.staffRepo.Create(ctx, staff)
}

// ChangePassword replaces the staff member's password hash.
func (s *StaffService) ChangePassword(ctx context.Context, id int, newPassword string) error {
	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.staffRepo.UpdatePassword(ctx, id, hash)
}

func (s *StaffService) Delete(ctx context.Context, id int) error {
	return s.staffRepo.Delete(ctx, id)
}
