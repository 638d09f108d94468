// Package grading implements the answer evaluation and scoring engine: answer
// normalization and matching, per-question-type grading policy, submission
// score aggregation, the submission status workflow, and per-student
// performance rollups. Every function in this package is a pure computation
// over its inputs; persistence and authorization live with the callers.
package grading

import "strings"

// Normalize canonicalizes answer text for comparison: leading and trailing
// whitespace is trimmed, the text is lower-cased, and every run of whitespace
// collapses to a single space. The function is idempotent. Case folding is
// simple ToLower; no locale-aware handling is attempted.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
