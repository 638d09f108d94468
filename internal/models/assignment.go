package models

import (
	"time"

	"github.com/lib/pq"
)

// AssignmentType distinguishes regular homework from exams.
type AssignmentType string

const (
	AssignmentTypeHomework AssignmentType = "homework"
	AssignmentTypeExam     AssignmentType = "exam"
)

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortText      QuestionType = "short_text"
	QuestionTypeEssay          QuestionType = "essay"
)

// Valid reports whether the type is one of the supported kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeShortText, QuestionTypeEssay:
		return true
	}
	return false
}

// AutoGradable reports whether the type can be scored by answer matching alone.
func (t QuestionType) AutoGradable() bool {
	return t != QuestionTypeEssay
}

// Assignment groups questions handed out to a course.
type Assignment struct {
	ID            string         `db:"id" json:"id"`
	CourseID      string         `db:"course_id" json:"course_id"`
	TeacherID     string         `db:"teacher_id" json:"teacher_id"`
	Title         string         `db:"title" json:"title"`
	Description   *string        `db:"description" json:"description,omitempty"`
	Type          AssignmentType `db:"type" json:"type"`
	DueDate       *time.Time     `db:"due_date" json:"due_date,omitempty"`
	TotalMaxScore float64        `db:"total_max_score" json:"total_max_score"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
	Questions     []Question     `json:"questions,omitempty"`
}

// IsExam reports whether the assignment counts as an exam.
func (a Assignment) IsExam() bool {
	return a.Type == AssignmentTypeExam
}

// QuestionByID returns the assignment question with the given id.
func (a Assignment) QuestionByID(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// EssayQuestionIDs lists ids of the assignment's essay questions.
func (a Assignment) EssayQuestionIDs() []string {
	var ids []string
	for _, q := range a.Questions {
		if q.Type == QuestionTypeEssay {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// SumMaxScores recomputes the assignment-wide maximum from its questions.
func (a Assignment) SumMaxScores() float64 {
	total := 0.0
	for _, q := range a.Questions {
		total += q.MaxScore
	}
	return total
}

// Question is a single prompt within an assignment.
type Question struct {
	ID           string         `db:"id" json:"id"`
	AssignmentID string         `db:"assignment_id" json:"assignment_id"`
	Text         string         `db:"question_text" json:"question_text"`
	Type         QuestionType   `db:"question_type" json:"question_type"`
	MaxScore     float64        `db:"max_score" json:"max_score"`
	Position     int            `db:"position" json:"position"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	Answer       *CorrectAnswer `json:"answer,omitempty"`
}

// CorrectAnswer stores the answer key for one question. For multiple choice
// questions AcceptedVariations carries the full option list and CorrectAnswer
// holds the correct option's text.
type CorrectAnswer struct {
	ID                 string         `db:"id" json:"id"`
	QuestionID         string         `db:"question_id" json:"question_id"`
	CorrectAnswer      string         `db:"correct_answer" json:"correct_answer"`
	AcceptedVariations pq.StringArray `db:"accepted_variations" json:"accepted_variations"`
	Explanation        *string        `db:"explanation_text" json:"explanation_text,omitempty"`
}

// AssignmentFilter provides filters for listing assignments.
type AssignmentFilter struct {
	CourseID  string
	TeacherID string
	Type      AssignmentType
	Page      int
	PageSize  int
}
