package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// SubmissionRepository handles submission persistence.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission, or replaces the answers of an existing one for
// the same (assignment, student) pair while it is still in the submitted
// state. Resubmitting after grading has started is a conflict.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.SubmittedAt = now
	submission.UpdatedAt = now
	submission.Status = models.SubmissionStatusSubmitted

	// On conflict the existing row keeps its id, so the stored identity is
	// scanned back instead of trusting the freshly generated one.
	const query = `INSERT INTO assignment_submissions (id, assignment_id, student_id, answers, per_question_scores, total_score, status, feedback, submitted_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (assignment_id, student_id) WHERE (status = 'submitted')
        DO UPDATE SET answers = EXCLUDED.answers, submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
        RETURNING id, submitted_at`
	err := r.db.QueryRowxContext(ctx, query,
		submission.ID, submission.AssignmentID, submission.StudentID,
		submission.Answers, submission.PerQuestionScores, submission.TotalScore,
		submission.Status, submission.Feedback, submission.SubmittedAt, submission.UpdatedAt,
	).Scan(&submission.ID, &submission.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "submission already graded")
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, answers, per_question_scores, total_score, status, feedback, submitted_at, graded_at, updated_at
        FROM assignment_submissions WHERE id = $1 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByAssignment returns all submissions for an assignment.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, answers, per_question_scores, total_score, status, feedback, submitted_at, graded_at, updated_at
        FROM assignment_submissions WHERE assignment_id = $1 ORDER BY submitted_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ApplyGrading writes per-question scores, the total, feedback and the new
// status in one statement. The expected current status acts as an optimistic
// predicate: a concurrent grading request that already advanced the row makes
// this write touch zero rows, which surfaces as a conflict instead of a
// double-applied grade.
func (r *SubmissionRepository) ApplyGrading(ctx context.Context, id string, scores models.ScoreMap, total float64, feedback *string, expected, next models.SubmissionStatus) error {
	now := time.Now().UTC()
	const query = `UPDATE assignment_submissions
        SET per_question_scores = $2, total_score = $3, feedback = $4, status = $5, graded_at = $6, updated_at = $6
        WHERE id = $1 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, id, scores, total, feedback, next, now, expected)
	if err != nil {
		return fmt.Errorf("apply grading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply grading rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "submission was modified by a concurrent grading request")
	}
	return nil
}

// SetStatus advances only the workflow status, guarded by the expected
// current status.
func (r *SubmissionRepository) SetStatus(ctx context.Context, id string, expected, next models.SubmissionStatus, feedback *string) error {
	const query = `UPDATE assignment_submissions SET status = $2, feedback = COALESCE($3, feedback), updated_at = $4
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, next, feedback, time.Now().UTC(), expected)
	if err != nil {
		return fmt.Errorf("set submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set submission status rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "submission status changed concurrently")
	}
	return nil
}

// ListGradedByStudent returns the student's committed submissions joined with
// each assignment's maximum score, as consumed by performance aggregation.
func (r *SubmissionRepository) ListGradedByStudent(ctx context.Context, studentID string) ([]models.GradedSubmissionRow, error) {
	const query = `SELECT s.id, s.assignment_id, s.student_id, s.status, COALESCE(s.total_score, 0) AS total_score, a.total_max_score
        FROM assignment_submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE s.student_id = $1 AND s.status <> $2`
	var rows []models.GradedSubmissionRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.SubmissionStatusSubmitted); err != nil {
		return nil, fmt.Errorf("list graded submissions: %w", err)
	}
	return rows, nil
}

// ListGradedByTeacher returns committed submissions across every assignment
// owned by the teacher, keyed by student, for the performance roster.
func (r *SubmissionRepository) ListGradedByTeacher(ctx context.Context, teacherID string) (map[string][]models.GradedSubmissionRow, error) {
	const query = `SELECT s.id, s.assignment_id, s.student_id, s.status, COALESCE(s.total_score, 0) AS total_score, a.total_max_score
        FROM assignment_submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE a.teacher_id = $1 AND s.status <> $2`
	var rows []models.GradedSubmissionRow
	if err := r.db.SelectContext(ctx, &rows, query, teacherID, models.SubmissionStatusSubmitted); err != nil {
		return nil, fmt.Errorf("list graded submissions by teacher: %w", err)
	}
	byStudent := make(map[string][]models.GradedSubmissionRow)
	for _, row := range rows {
		byStudent[row.StudentID] = append(byStudent[row.StudentID], row)
	}
	return byStudent, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
