package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/grading"
	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/export"
)

type gradedSubmissionReader interface {
	ListGradedByStudent(ctx context.Context, studentID string) ([]models.GradedSubmissionRow, error)
	ListGradedByTeacher(ctx context.Context, teacherID string) (map[string][]models.GradedSubmissionRow, error)
}

type rosterReader interface {
	ListStudentsByTeacher(ctx context.Context, teacherID string) ([]models.StudentPerformanceRow, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

type tableExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfTableExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// PerformanceService computes per-student rollups of graded submissions and
// renders the teacher's roster view with optional CSV/PDF export.
type PerformanceService struct {
	submissions gradedSubmissionReader
	roster      rosterReader
	cache       summaryCache
	metrics     cacheMetrics
	csv         tableExporter
	pdf         pdfTableExporter
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewPerformanceService constructs PerformanceService.
func NewPerformanceService(submissions gradedSubmissionReader, roster rosterReader, cache summaryCache, metrics cacheMetrics, cacheTTL time.Duration, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PerformanceService{
		submissions: submissions,
		roster:      roster,
		cache:       cache,
		metrics:     metrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// StudentSummary returns one student's performance summary, cached for the
// configured TTL. The cache entry is invalidated whenever a submission of
// that student is graded or returned.
func (s *PerformanceService) StudentSummary(ctx context.Context, studentID string) (*models.PerformanceSummary, error) {
	cacheKey := "performance:" + studentID + ":summary"
	if s.cache != nil {
		start := time.Now()
		var cached models.PerformanceSummary
		err := s.cache.Get(ctx, cacheKey, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("performance cache read failed", zap.Error(err))
		}
	}

	rows, err := s.submissions.ListGradedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded submissions")
	}
	summary := grading.Summarize(studentID, rows)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("performance cache write failed", zap.Error(err))
		}
	}
	return &summary, nil
}

// TeacherRoster returns one row per student enrolled in the teacher's
// courses, each carrying that student's rollup over the teacher's
// assignments.
func (s *PerformanceService) TeacherRoster(ctx context.Context, teacherID string) ([]models.StudentPerformanceRow, error) {
	students, err := s.roster.ListStudentsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student roster")
	}
	byStudent, err := s.submissions.ListGradedByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded submissions")
	}

	for i := range students {
		summary := grading.Summarize(students[i].StudentID, byStudent[students[i].StudentID])
		students[i].GradedCount = summary.GradedCount
		students[i].ScoreObtained = summary.ScoreObtained
		students[i].ScoreEligible = summary.ScoreEligible
		students[i].OverallPercentage = summary.OverallPercentage
	}
	return students, nil
}

// ExportRoster renders the teacher roster as CSV or PDF bytes.
func (s *PerformanceService) ExportRoster(ctx context.Context, teacherID, format string) ([]byte, string, error) {
	rows, err := s.TeacherRoster(ctx, teacherID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Graded", "Obtained", "Eligible", "Percentage"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    row.StudentName,
			"Email":      row.Email,
			"Graded":     fmt.Sprintf("%d", row.GradedCount),
			"Obtained":   fmt.Sprintf("%.2f", row.ScoreObtained),
			"Eligible":   fmt.Sprintf("%.2f", row.ScoreEligible),
			"Percentage": fmt.Sprintf("%.2f", row.OverallPercentage),
		})
	}

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Student Performance")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
