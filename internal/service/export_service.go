package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/export"
	"github.com/noah-isme/lms-grading-api/pkg/storage"
)

type exportRosterSource interface {
	TeacherRoster(ctx context.Context, teacherID string) ([]models.StudentPerformanceRow, error)
}

type exportSubmissionSource interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files behind
// signed download URLs.
type ExportService struct {
	roster      exportRosterSource
	submissions exportSubmissionSource
	assignments assignmentReader
	storage     fileStorage
	csv         tableExporter
	pdf         pdfTableExporter
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(roster exportRosterSource, submissions exportSubmissionSource, assignments assignmentReader, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		roster:      roster,
		submissions: submissions,
		assignments: assignments,
		storage:     store,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/export/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.TeacherID)
	if job.Params.AssignmentID != nil {
		scope = sanitizeFilename(*job.Params.AssignmentID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeRoster:
		return s.buildRosterDataset(ctx, job.Params)
	case models.ExportTypeScoreSheet:
		return s.buildScoreSheetDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildRosterDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	rows, err := s.roster.TeacherRoster(ctx, params.TeacherID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Student":        row.StudentName,
			"Email":          row.Email,
			"Graded":         fmt.Sprintf("%d", row.GradedCount),
			"Obtained":       fmt.Sprintf("%.2f", row.ScoreObtained),
			"Eligible":       fmt.Sprintf("%.2f", row.ScoreEligible),
			"Percentage (%)": fmt.Sprintf("%.2f", row.OverallPercentage),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Graded", "Obtained", "Eligible", "Percentage (%)"},
		Rows:    dataRows,
	}
	return dataset, "Student Performance Roster", nil
}

func (s *ExportService) buildScoreSheetDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.AssignmentID == nil || *params.AssignmentID == "" {
		return export.Dataset{}, "", fmt.Errorf("score sheet export requires an assignment id")
	}
	assignment, err := s.assignments.FindByID(ctx, *params.AssignmentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(submissions))
	for _, sub := range submissions {
		total := ""
		if sub.TotalScore != nil {
			total = fmt.Sprintf("%.2f", *sub.TotalScore)
		}
		gradedAt := ""
		if sub.GradedAt != nil {
			gradedAt = sub.GradedAt.UTC().Format(time.RFC3339)
		}
		dataRows = append(dataRows, map[string]string{
			"Student ID":   sub.StudentID,
			"Status":       string(sub.Status),
			"Total Score":  total,
			"Max Score":    fmt.Sprintf("%.2f", assignment.TotalMaxScore),
			"Submitted At": sub.SubmittedAt.UTC().Format(time.RFC3339),
			"Graded At":    gradedAt,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student ID", "Status", "Total Score", "Max Score", "Submitted At", "Graded At"},
		Rows:    dataRows,
	}
	return dataset, fmt.Sprintf("Score Sheet %s", assignment.Title), nil
}
