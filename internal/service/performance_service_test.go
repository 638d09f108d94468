package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type mockGradedReader struct {
	byStudent map[string][]models.GradedSubmissionRow
	calls     int
}

func (m *mockGradedReader) ListGradedByStudent(ctx context.Context, studentID string) ([]models.GradedSubmissionRow, error) {
	m.calls++
	return m.byStudent[studentID], nil
}

func (m *mockGradedReader) ListGradedByTeacher(ctx context.Context, teacherID string) (map[string][]models.GradedSubmissionRow, error) {
	return m.byStudent, nil
}

type mockRosterReader struct {
	students []models.StudentPerformanceRow
}

func (m *mockRosterReader) ListStudentsByTeacher(ctx context.Context, teacherID string) ([]models.StudentPerformanceRow, error) {
	return m.students, nil
}

type mockSummaryCache struct {
	entries map[string][]byte
	sets    int
}

func (m *mockSummaryCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *mockSummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	m.sets++
	return nil
}

type mockCacheMetrics struct {
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func gradedRows() map[string][]models.GradedSubmissionRow {
	return map[string][]models.GradedSubmissionRow{
		"stu1": {
			{SubmissionID: "sub1", AssignmentID: "as1", StudentID: "stu1", Status: models.SubmissionStatusGraded, TotalScore: 18, TotalMaxScore: 20},
			{SubmissionID: "sub2", AssignmentID: "as2", StudentID: "stu1", Status: models.SubmissionStatusReturned, TotalScore: 7, TotalMaxScore: 10},
		},
	}
}

func TestPerformanceServiceStudentSummary(t *testing.T) {
	reader := &mockGradedReader{byStudent: gradedRows()}
	cache := &mockSummaryCache{}
	metrics := &mockCacheMetrics{}
	svc := NewPerformanceService(reader, &mockRosterReader{}, cache, metrics, time.Minute, zap.NewNop())

	summary, err := svc.StudentSummary(context.Background(), "stu1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GradedCount)
	assert.Equal(t, 25.0, summary.ScoreObtained)
	assert.Equal(t, 30.0, summary.ScoreEligible)
	assert.Equal(t, 83.33, summary.OverallPercentage)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, cache.sets)

	// second call is served from cache
	cached, err := svc.StudentSummary(context.Background(), "stu1")
	require.NoError(t, err)
	assert.Equal(t, summary.OverallPercentage, cached.OverallPercentage)
	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, 1, metrics.hits)
}

func TestPerformanceServiceStudentSummaryNoGrades(t *testing.T) {
	reader := &mockGradedReader{byStudent: map[string][]models.GradedSubmissionRow{}}
	svc := NewPerformanceService(reader, &mockRosterReader{}, nil, nil, time.Minute, zap.NewNop())

	summary, err := svc.StudentSummary(context.Background(), "stu9")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GradedCount)
	assert.Equal(t, 0.0, summary.OverallPercentage)
}

func TestPerformanceServiceTeacherRoster(t *testing.T) {
	reader := &mockGradedReader{byStudent: gradedRows()}
	roster := &mockRosterReader{students: []models.StudentPerformanceRow{
		{StudentID: "stu1", StudentName: "Amal", Email: "amal@example.com"},
		{StudentID: "stu2", StudentName: "Badr", Email: "badr@example.com"},
	}}
	svc := NewPerformanceService(reader, roster, nil, nil, time.Minute, zap.NewNop())

	rows, err := svc.TeacherRoster(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 83.33, rows[0].OverallPercentage)
	assert.Equal(t, 2, rows[0].GradedCount)
	// student with no graded submissions keeps zeros
	assert.Equal(t, 0, rows[1].GradedCount)
	assert.Equal(t, 0.0, rows[1].OverallPercentage)
}

func TestPerformanceServiceExportRosterCSV(t *testing.T) {
	reader := &mockGradedReader{byStudent: gradedRows()}
	roster := &mockRosterReader{students: []models.StudentPerformanceRow{
		{StudentID: "stu1", StudentName: "Amal", Email: "amal@example.com"},
	}}
	svc := NewPerformanceService(reader, roster, nil, nil, time.Minute, zap.NewNop())

	payload, contentType, err := svc.ExportRoster(context.Background(), "t1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Student,Email,Graded,Obtained,Eligible,Percentage"))
	assert.Contains(t, body, "Amal,amal@example.com,2,25.00,30.00,83.33")
}

func TestPerformanceServiceExportRosterPDF(t *testing.T) {
	reader := &mockGradedReader{byStudent: gradedRows()}
	roster := &mockRosterReader{students: []models.StudentPerformanceRow{
		{StudentID: "stu1", StudentName: "Amal", Email: "amal@example.com"},
	}}
	svc := NewPerformanceService(reader, roster, nil, nil, time.Minute, zap.NewNop())

	payload, contentType, err := svc.ExportRoster(context.Background(), "t1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestPerformanceServiceExportRosterUnknownFormat(t *testing.T) {
	svc := NewPerformanceService(&mockGradedReader{}, &mockRosterReader{}, nil, nil, time.Minute, zap.NewNop())

	_, _, err := svc.ExportRoster(context.Background(), "t1", "xlsx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
