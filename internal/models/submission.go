package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus tracks where a submission sits in the grading workflow.
type SubmissionStatus string

const (
	// SubmissionStatusSubmitted is the initial state after a student turns in answers.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusGraded means every question has a committed score.
	SubmissionStatusGraded SubmissionStatus = "graded"
	// SubmissionStatusReturned means the grader sent the work back to the student.
	SubmissionStatusReturned SubmissionStatus = "returned"
)

// Valid reports whether the status is a known workflow state.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusGraded, SubmissionStatusReturned:
		return true
	}
	return false
}

// AnswerMap stores submitted answer text keyed by question id, persisted as JSONB.
type AnswerMap map[string]string

// Value implements driver.Valuer.
func (m AnswerMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *AnswerMap) Scan(src interface{}) error {
	return scanJSONMap(src, m)
}

// ScoreMap stores awarded scores keyed by question id, persisted as JSONB.
type ScoreMap map[string]float64

// Value implements driver.Valuer.
func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *ScoreMap) Scan(src interface{}) error {
	return scanJSONMap(src, m)
}

func scanJSONMap(src, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported scan type %T for json map", src)
	}
}

// Submission is one student's set of answers to one assignment.
type Submission struct {
	ID                string           `db:"id" json:"id"`
	AssignmentID      string           `db:"assignment_id" json:"assignment_id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	Answers           AnswerMap        `db:"answers" json:"answers"`
	PerQuestionScores ScoreMap         `db:"per_question_scores" json:"per_question_scores,omitempty"`
	TotalScore        *float64         `db:"total_score" json:"total_score,omitempty"`
	Status            SubmissionStatus `db:"status" json:"status"`
	Feedback          *string          `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt       time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt          *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// GradedSubmissionRow is a graded submission joined with its assignment's
// maximum score, as consumed by performance aggregation.
type GradedSubmissionRow struct {
	SubmissionID  string           `db:"id" json:"id"`
	AssignmentID  string           `db:"assignment_id" json:"assignment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	Status        SubmissionStatus `db:"status" json:"status"`
	TotalScore    float64          `db:"total_score" json:"total_score"`
	TotalMaxScore float64          `db:"total_max_score" json:"total_max_score"`
}

// SubmissionFilter provides filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	Status       SubmissionStatus
	Page         int
	PageSize     int
}
