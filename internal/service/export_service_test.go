package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/storage"
)

type stubRosterSource struct {
	rows []models.StudentPerformanceRow
}

func (s *stubRosterSource) TeacherRoster(ctx context.Context, teacherID string) ([]models.StudentPerformanceRow, error) {
	return s.rows, nil
}

type stubSubmissionSource struct {
	submissions []models.Submission
}

func (s *stubSubmissionSource) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	return s.submissions, nil
}

type stubAssignmentReader struct {
	assignment *models.Assignment
}

func (s *stubAssignmentReader) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	return s.assignment, nil
}

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	score := 18.0
	gradedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	roster := &stubRosterSource{rows: []models.StudentPerformanceRow{
		{StudentID: "stu1", StudentName: "Amal", Email: "amal@example.com", GradedCount: 2, ScoreObtained: 25, ScoreEligible: 30, OverallPercentage: 83.33},
	}}
	submissions := &stubSubmissionSource{submissions: []models.Submission{
		{
			ID:           "sub1",
			AssignmentID: "as1",
			StudentID:    "stu1",
			TotalScore:   &score,
			Status:       models.SubmissionStatusGraded,
			SubmittedAt:  time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
			GradedAt:     &gradedAt,
		},
	}}
	assignments := &stubAssignmentReader{assignment: &models.Assignment{
		ID:            "as1",
		TeacherID:     "t1",
		Title:         "Geography Quiz",
		TotalMaxScore: 20,
	}}

	return NewExportService(roster, submissions, assignments, store, signer, ExportConfig{
		APIPrefix: "/api/v1",
		ResultTTL: time.Hour,
	}, zap.NewNop())
}

func TestExportServiceGenerateRosterCSV(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeRoster,
		Params: models.ExportJobParams{TeacherID: "t1", Format: models.ExportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	require.Equal(t, models.ExportFormatCSV, result.Format)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Contains(t, string(content), "Student,Email,Graded,Obtained,Eligible,Percentage (%)")
	require.Contains(t, string(content), "Amal,amal@example.com,2,25.00,30.00,83.33")
}

func TestExportServiceGenerateScoreSheetPDF(t *testing.T) {
	svc := newExportFixture(t)

	assignmentID := "as1"
	job := &models.ExportJob{
		ID:     "job-2",
		Type:   models.ExportTypeScoreSheet,
		Params: models.ExportJobParams{TeacherID: "t1", AssignmentID: &assignmentID, Format: models.ExportFormatPDF},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func TestExportServiceGenerateUnsupportedFormat(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-3",
		Type:   models.ExportTypeRoster,
		Params: models.ExportJobParams{TeacherID: "t1", Format: models.ExportFormat("xlsx")},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
