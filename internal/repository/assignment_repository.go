package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// AssignmentRepository handles assignment, question and answer key persistence.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create stores an assignment with its questions and answer keys in one
// transaction. The caller provides TotalMaxScore already recomputed from the
// question set.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create assignment: %w", err)
	}

	now := time.Now().UTC()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	const insertAssignment = `INSERT INTO assignments (id, course_id, teacher_id, title, description, type, due_date, total_max_score, created_at, updated_at)
        VALUES (:id, :course_id, :teacher_id, :title, :description, :type, :due_date, :total_max_score, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertAssignment, assignment); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := r.insertQuestions(ctx, tx, assignment, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment: %w", err)
	}
	return nil
}

// Update replaces an assignment's metadata and its full question set. Dropped
// questions are deleted along with their answer keys.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update assignment: %w", err)
	}

	now := time.Now().UTC()
	assignment.UpdatedAt = now

	const updateAssignment = `UPDATE assignments SET title = :title, description = :description, type = :type,
        due_date = :due_date, total_max_score = :total_max_score, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, updateAssignment, assignment)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update assignment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}

	keep := make([]string, 0, len(assignment.Questions))
	for i := range assignment.Questions {
		if assignment.Questions[i].ID != "" {
			keep = append(keep, assignment.Questions[i].ID)
		}
	}
	deleteOld := `DELETE FROM questions WHERE assignment_id = $1`
	deleteArgs := []interface{}{assignment.ID}
	if len(keep) > 0 {
		deleteOld += ` AND NOT (id = ANY($2))`
		deleteArgs = append(deleteArgs, pq.Array(keep))
	}
	if _, err := tx.ExecContext(ctx, deleteOld, deleteArgs...); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete removed questions: %w", err)
	}

	if err := r.insertQuestions(ctx, tx, assignment, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment update: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) insertQuestions(ctx context.Context, tx *sqlx.Tx, assignment *models.Assignment, now time.Time) error {
	const upsertQuestion = `INSERT INTO questions (id, assignment_id, question_text, question_type, max_score, position, created_at)
        VALUES (:id, :assignment_id, :question_text, :question_type, :max_score, :position, :created_at)
        ON CONFLICT (id) DO UPDATE SET question_text = EXCLUDED.question_text, question_type = EXCLUDED.question_type,
        max_score = EXCLUDED.max_score, position = EXCLUDED.position`
	const upsertAnswer = `INSERT INTO correct_answers (id, question_id, correct_answer, accepted_variations, explanation_text)
        VALUES (:id, :question_id, :correct_answer, :accepted_variations, :explanation_text)
        ON CONFLICT (question_id) DO UPDATE SET correct_answer = EXCLUDED.correct_answer,
        accepted_variations = EXCLUDED.accepted_variations, explanation_text = EXCLUDED.explanation_text`

	for i := range assignment.Questions {
		q := &assignment.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.AssignmentID = assignment.ID
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		if q.Position == 0 {
			q.Position = i + 1
		}
		if _, err := tx.NamedExecContext(ctx, upsertQuestion, q); err != nil {
			return fmt.Errorf("upsert question: %w", err)
		}
		if q.Answer == nil {
			continue
		}
		if q.Answer.ID == "" {
			q.Answer.ID = uuid.NewString()
		}
		q.Answer.QuestionID = q.ID
		if _, err := tx.NamedExecContext(ctx, upsertAnswer, q.Answer); err != nil {
			return fmt.Errorf("upsert answer key: %w", err)
		}
	}
	return nil
}

// FindByID loads an assignment with its questions and answer keys.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, course_id, teacher_id, title, description, type, due_date, total_max_score, created_at, updated_at
        FROM assignments WHERE id = $1 LIMIT 1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}

	const questionQuery = `SELECT id, assignment_id, question_text, question_type, max_score, position, created_at
        FROM questions WHERE assignment_id = $1 ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &assignment.Questions, questionQuery, id); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	if len(assignment.Questions) == 0 {
		return &assignment, nil
	}

	questionIDs := make([]string, len(assignment.Questions))
	for i, q := range assignment.Questions {
		questionIDs[i] = q.ID
	}
	const answerQuery = `SELECT id, question_id, correct_answer, accepted_variations, explanation_text
        FROM correct_answers WHERE question_id = ANY($1)`
	var answers []models.CorrectAnswer
	if err := r.db.SelectContext(ctx, &answers, answerQuery, pq.Array(questionIDs)); err != nil {
		return nil, fmt.Errorf("load answer keys: %w", err)
	}
	byQuestion := make(map[string]models.CorrectAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	for i := range assignment.Questions {
		if a, ok := byQuestion[assignment.Questions[i].ID]; ok {
			answer := a
			assignment.Questions[i].Answer = &answer
		}
	}
	return &assignment, nil
}

// List returns assignments matching the filter with a total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	baseQuery := `FROM assignments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := `SELECT id, course_id, teacher_id, title, description, type, due_date, total_max_score, created_at, updated_at ` +
		baseQuery + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, total, nil
}
