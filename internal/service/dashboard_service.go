package service

import (
	"context"

	"github.com/examgate/examgate-backend/internal/repository"
)

// DashboardData consolidates all metrics for the staff dashboard.
type DashboardData struct {
	TotalStudents       int                                    `json:"total_students"`
	TotalRooms          int                                    `json:"total_rooms"`
	TotalQuestionBanks  int                                    `json:"total_question_banks"`
	TotalQuestions      int                                    `json:"total_questions"`
	AttemptStatusCounts map[string]int                         `json:"attempt_status_counts"`
	ActiveRooms         []repository.DashboardActiveRoom       `json:"active_rooms"`
	RecentRoomResults   []repository.DashboardRecentRoomResult `json:"recent_room_results"`
}

// DashboardService handles staff dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches all dashboard metrics.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	students, rooms, banks, questions, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetAttemptStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.GetActiveRooms(ctx, 5)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentRoomResults(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalStudents:       students,
		TotalRooms:          rooms,
		TotalQuestionBanks:  banks,
		TotalQuestions:      questions,
		AttemptStatusCounts: statusCounts,
		ActiveRooms:         active,
		RecentRoomResults:   recent,
	}, nil
}
