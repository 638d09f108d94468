package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]*models.Assignment
	nextID      int
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]*models.Assignment)
	}
	m.nextID++
	assignment.ID = fmt.Sprintf("as%d", m.nextID)
	stored := *assignment
	m.assignments[assignment.ID] = &stored
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *assignment
	m.assignments[assignment.ID] = &stored
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	var list []models.Assignment
	for _, a := range m.assignments {
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		list = append(list, *a)
	}
	return list, len(list), nil
}

func validCreateRequest() CreateAssignmentRequest {
	return CreateAssignmentRequest{
		CourseID:  "course1",
		TeacherID: "t1",
		Title:     "Geography quiz",
		Type:      models.AssignmentTypeHomework,
		Questions: []QuestionInput{
			{
				Text:          "Capital of Saudi Arabia?",
				Type:          models.QuestionTypeMultipleChoice,
				MaxScore:      10,
				CorrectAnswer: "Riyadh",
				Options:       []string{"Riyadh", "Jeddah", "Dammam", "Abha"},
			},
			{
				Text:               "Largest city on the Red Sea coast?",
				Type:               models.QuestionTypeShortText,
				MaxScore:           5,
				CorrectAnswer:      "Jeddah",
				AcceptedVariations: []string{"جدة"},
			},
			{
				Text:     "Describe the climate of the Empty Quarter.",
				Type:     models.QuestionTypeEssay,
				MaxScore: 15,
			},
		},
	}
}

func TestAssignmentServiceCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, 30.0, created.TotalMaxScore)
	require.Len(t, created.Questions, 3)

	mcq := created.Questions[0]
	require.NotNil(t, mcq.Answer)
	assert.Equal(t, "Riyadh", mcq.Answer.CorrectAnswer)
	assert.Len(t, mcq.Answer.AcceptedVariations, 4)
	assert.Equal(t, 1, mcq.Position)

	essay := created.Questions[2]
	assert.Nil(t, essay.Answer)
}

func TestAssignmentServiceCreateValidation(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, validator.New(), zap.NewNop())

	cases := []struct {
		name   string
		mutate func(*CreateAssignmentRequest)
	}{
		{"no questions", func(r *CreateAssignmentRequest) { r.Questions = nil }},
		{"unknown type", func(r *CreateAssignmentRequest) { r.Questions[0].Type = "matching" }},
		{"objective without answer", func(r *CreateAssignmentRequest) { r.Questions[1].CorrectAnswer = "" }},
		{"single option", func(r *CreateAssignmentRequest) { r.Questions[0].Options = []string{"Riyadh"} }},
		{"answer not an option", func(r *CreateAssignmentRequest) { r.Questions[0].CorrectAnswer = "Tabuk" }},
		{"zero max score", func(r *CreateAssignmentRequest) { r.Questions[2].MaxScore = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestAssignmentServiceUpdateRecomputesTotal(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), UpdateAssignmentRequest{
		AssignmentID: created.ID,
		TeacherID:    "t1",
		Title:        "Geography quiz v2",
		Questions: []QuestionInput{
			{
				Text:          "The Red Sea borders Saudi Arabia.",
				Type:          models.QuestionTypeTrueFalse,
				MaxScore:      4,
				CorrectAnswer: "true",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.TotalMaxScore)
	assert.Len(t, updated.Questions, 1)
	assert.Equal(t, 4.0, repo.assignments[created.ID].TotalMaxScore)
}

func TestAssignmentServiceUpdateWrongTeacher(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	req := UpdateAssignmentRequest{
		AssignmentID: created.ID,
		TeacherID:    "impostor",
		Title:        "Hijacked",
		Questions:    validCreateRequest().Questions,
	}
	_, err = svc.Update(context.Background(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAssignmentServiceGetMissing(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "ghost")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAssignmentServiceList(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	list, page, err := svc.List(context.Background(), models.AssignmentFilter{CourseID: "course1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}
