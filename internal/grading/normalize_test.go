package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  RIYADH  ":       "riyadh",
		"Hello   World":    "hello world",
		"\tA\n B\r\nC ":    "a b c",
		"":                 "",
		"   ":              "",
		"الرياض":           "الرياض",
		"  مدينة   جدة  ":  "مدينة جدة",
		"MiXeD Case Text":  "mixed case text",
		"one two    three": "one two three",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"  RIYADH  ", "a  b\tc", "", "الرياض  الكبرى", "Already normal"}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}
