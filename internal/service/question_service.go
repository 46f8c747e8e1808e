package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/google/uuid"
)

// QuestionService manages question banks and their questions.
type QuestionService struct {
	bankRepo     *repository.QuestionBankRepository
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(bankRepo *repository.QuestionBankRepository, questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{bankRepo: bankRepo, questionRepo: questionRepo}
}

// GetOwnedBank loads a bank and verifies the staff member may manage it.
func (s *QuestionService) GetOwnedBank(ctx context.Context, staff *model.Staff, bankID uuid.UUID) (*model.QuestionBank, error) {
	bank, err := s.bankRepo.GetByID(ctx, bankID)
	if err != nil {
		return nil, notFoundOr("get bank", err)
	}
	if staff.Role != model.StaffRoleAdmin && bank.OwnerID != staff.ID {
		return nil, ErrNotOwner
	}
	return bank, nil
}

// ListBanks returns the staff member's banks.
func (s *QuestionService) ListBanks(ctx context.Context, staffID int) ([]model.QuestionBank, error) {
	banks, err := s.bankRepo.ListByOwner(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if banks == nil {
		banks = []model.QuestionBank{}
	}
	return banks, nil
}

// CreateBank creates a new question bank owned by the staff member.
func (s *QuestionService) CreateBank(ctx context.Context, staff *model.Staff, req *model.CreateQuestionBankRequest) (*model.QuestionBank, error) {
	bank := &model.QuestionBank{
		OwnerID:     staff.ID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.bankRepo.Create(ctx, bank); err != nil {
		return nil, fmt.Errorf("create bank: %w", err)
	}
	return bank, nil
}

// UpdateBank modifies a bank's metadata.
func (s *QuestionService) UpdateBank(ctx context.Context, staff *model.Staff, bankID uuid.UUID, req *model.UpdateQuestionBankRequest) (*model.QuestionBank, error) {
	bank, err := s.GetOwnedBank(ctx, staff, bankID)
	if err != nil {
		return nil, err
	}
	bank.Title = req.Title
	bank.Description = req.Description
	if err := s.bankRepo.Update(ctx, bank); err != nil {
		return nil, fmt.Errorf("update bank: %w", err)
	}
	return bank, nil
}

// DeleteBank removes a bank and its questions.
func (s *QuestionService) DeleteBank(ctx context.Context, staff *model.Staff, bankID uuid.UUID) error {
	if _, err := s.GetOwnedBank(ctx, staff, bankID); err != nil {
		return err
	}
	return s.bankRepo.Delete(ctx, bankID)
}

// ListQuestions returns a bank's questions, keys included, for its owner.
func (s *QuestionService) ListQuestions(ctx context.Context, staff *model.Staff, bankID uuid.UUID) ([]model.Question, error) {
	if _, err := s.GetOwnedBank(ctx, staff, bankID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// AddQuestion validates and appends one question to a bank.
func (s *QuestionService) AddQuestion(ctx context.Context, staff *model.Staff, bankID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.GetOwnedBank(ctx, staff, bankID); err != nil {
		return nil, err
	}

	question, err := buildQuestion(bankID, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

// ReplaceQuestions swaps a bank's entire question list.
func (s *QuestionService) ReplaceQuestions(ctx context.Context, staff *model.Staff, bankID uuid.UUID, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	if _, err := s.GetOwnedBank(ctx, staff, bankID); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i := range req.Questions {
		q, err := buildQuestion(bankID, &req.Questions[i])
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidQuestion, i+1, err)
		}
		questions = append(questions, *q)
	}

	if err := s.questionRepo.ReplaceAll(ctx, bankID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	return questions, nil
}

// DeleteQuestion removes one question from a bank the staff member owns.
func (s *QuestionService) DeleteQuestion(ctx context.Context, staff *model.Staff, bankID, questionID uuid.UUID) error {
	if _, err := s.GetOwnedBank(ctx, staff, bankID); err != nil {
		return err
	}
	return s.questionRepo.Delete(ctx, questionID)
}

// buildQuestion validates a question request against per-type key rules:
// choice keys must reference an existing option value, multi-answer keys
// must be a non-empty array of option values, essays carry no key.
func buildQuestion(bankID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	qType := model.QuestionType(req.QuestionType)
	points := req.Points
	if points == 0 {
		points = 1
	}

	values := make(map[string]bool, len(req.Options))
	for _, opt := range req.Options {
		if opt.Value == "" {
			return nil, fmt.Errorf("option with empty value")
		}
		if values[opt.Value] {
			return nil, fmt.Errorf("duplicate option value %q", opt.Value)
		}
		values[opt.Value] = true
	}

	switch qType {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeTrueFalse:
		if len(req.Options) < 2 {
			return nil, fmt.Errorf("%s question needs at least two options", qType)
		}
		if !values[req.CorrectKey] {
			return nil, fmt.Errorf("answer key %q does not match any option", req.CorrectKey)
		}
	case model.QuestionTypeMultiAnswer:
		if len(req.Options) < 2 {
			return nil, fmt.Errorf("%s question needs at least two options", qType)
		}
		var keys []string
		if err := json.Unmarshal([]byte(req.CorrectKey), &keys); err != nil {
			return nil, fmt.Errorf("multi-answer key must be a JSON array of option values")
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("multi-answer key must not be empty")
		}
		for _, k := range keys {
			if !values[k] {
				return nil, fmt.Errorf("answer key %q does not match any option", k)
			}
		}
	case model.QuestionTypeEssay:
		if req.CorrectKey != "" {
			return nil, fmt.Errorf("essay questions carry no answer key")
		}
	default:
		return nil, fmt.Errorf("unknown question type %q", req.QuestionType)
	}

	return &model.Question{
		BankID:       bankID,
		QuestionText: req.QuestionText,
		QuestionType: qType,
		Options:      req.Options,
		CorrectKey:   req.CorrectKey,
		Points:       points,
		OrderNum:     req.OrderNum,
	}, nil
}
