package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchVariations(t *testing.T) {
	assert.True(t, Match("Riyadh", "الرياض", []string{"Riyadh", "رياض"}))
	assert.True(t, Match("رياض", "الرياض", []string{"Riyadh", "رياض"}))
	assert.False(t, Match("جدة", "الرياض", nil))
}

func TestMatchCaseAndWhitespaceInsensitive(t *testing.T) {
	assert.True(t, Match("  RIYADH  ", "riyadh", nil))
	assert.True(t, Match("true", "  TRUE ", nil))
	assert.True(t, Match("new  york", "New York", nil))
}

func TestMatchExactOnly(t *testing.T) {
	assert.False(t, Match("riyad", "riyadh", nil), "no edit-distance tolerance")
	assert.False(t, Match("riyadh city", "riyadh", nil), "no substring credit")
}

func TestMatchEmptySubmission(t *testing.T) {
	assert.False(t, Match("", "riyadh", []string{"الرياض"}))
	assert.False(t, Match("   ", "riyadh", nil))
}
