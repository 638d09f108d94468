package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type assignmentRepo interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
}

// QuestionInput is one question within an assignment payload. For multiple
// choice questions Options carries the full option list and CorrectAnswer the
// correct option's text.
type QuestionInput struct {
	ID                 string              `json:"id"`
	Text               string              `json:"question_text" validate:"required"`
	Type               models.QuestionType `json:"question_type" validate:"required"`
	MaxScore           float64             `json:"max_score" validate:"required,gt=0"`
	CorrectAnswer      string              `json:"correct_answer"`
	AcceptedVariations []string            `json:"accepted_variations"`
	Options            []string            `json:"options"`
	Explanation        *string             `json:"explanation_text"`
}

// CreateAssignmentRequest is the payload for creating an assignment.
type CreateAssignmentRequest struct {
	CourseID    string                `json:"course_id" validate:"required"`
	TeacherID   string                `json:"-"`
	Title       string                `json:"title" validate:"required"`
	Description *string               `json:"description"`
	Type        models.AssignmentType `json:"type" validate:"omitempty,oneof=homework exam"`
	DueDate     *time.Time            `json:"due_date"`
	Questions   []QuestionInput       `json:"questions" validate:"required,min=1,dive"`
}

// UpdateAssignmentRequest is the payload for replacing an assignment's
// metadata and question set.
type UpdateAssignmentRequest struct {
	AssignmentID string                `json:"-"`
	TeacherID    string                `json:"-"`
	Title        string                `json:"title" validate:"required"`
	Description  *string               `json:"description"`
	Type         models.AssignmentType `json:"type" validate:"omitempty,oneof=homework exam"`
	DueDate      *time.Time            `json:"due_date"`
	Questions    []QuestionInput       `json:"questions" validate:"required,min=1,dive"`
}

// AssignmentService manages assignments and their answer keys. It maintains
// the invariant that an assignment's total maximum score always equals the
// sum of its questions' maximum scores.
type AssignmentService struct {
	assignments assignmentRepo
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(assignments assignmentRepo, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{assignments: assignments, validator: validate, logger: logger}
}

// Create stores a new assignment with its questions.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		CourseID:    req.CourseID,
		TeacherID:   req.TeacherID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		DueDate:     req.DueDate,
		Questions:   questions,
	}
	if assignment.Type == "" {
		assignment.Type = models.AssignmentTypeHomework
	}
	assignment.TotalMaxScore = assignment.SumMaxScores()

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.Int("questions", len(assignment.Questions)),
		zap.Float64("total_max_score", assignment.TotalMaxScore))
	return assignment, nil
}

// Update replaces an assignment's metadata and question set, recomputing the
// total maximum score from the new questions.
func (s *AssignmentService) Update(ctx context.Context, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	existing, err := s.assignments.FindByID(ctx, req.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if req.TeacherID != "" && existing.TeacherID != req.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	existing.Title = req.Title
	existing.Description = req.Description
	if req.Type != "" {
		existing.Type = req.Type
	}
	existing.DueDate = req.DueDate
	existing.Questions = questions
	existing.TotalMaxScore = existing.SumMaxScores()

	if err := s.assignments.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return existing, nil
}

// Get returns an assignment with questions and answer keys.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// List returns assignments matching the filter.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func buildQuestions(inputs []QuestionInput) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(inputs))
	for i, in := range inputs {
		if !in.Type.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d has unknown type %q", i+1, in.Type))
		}
		if in.Type.AutoGradable() && in.CorrectAnswer == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d requires a correct answer", i+1))
		}

		// Multiple choice answer keys carry the option list as the
		// accepted variations, matching how submissions are checked.
		variations := in.AcceptedVariations
		if in.Type == models.QuestionTypeMultipleChoice {
			if len(in.Options) < 2 {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d requires at least two options", i+1))
			}
			if !containsString(in.Options, in.CorrectAnswer) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d correct answer is not among its options", i+1))
			}
			variations = in.Options
		}

		q := models.Question{
			ID:       in.ID,
			Text:     in.Text,
			Type:     in.Type,
			MaxScore: in.MaxScore,
			Position: i + 1,
		}
		if in.Type.AutoGradable() || in.Explanation != nil {
			q.Answer = &models.CorrectAnswer{
				CorrectAnswer:      in.CorrectAnswer,
				AcceptedVariations: pq.StringArray(variations),
				Explanation:        in.Explanation,
			}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
