package qaqc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// setVocab is a minimal Vocabulary backed by a code set, for tests.
type setVocab map[string]string

func (v setVocab) IsPriority(code string) bool {
	_, ok := v[code]
	return ok
}

func (v setVocab) Label(code string) string {
	if label, ok := v[code]; ok && label != "" {
		return label
	}
	return code
}

func TestClassify(t *testing.T) {
	vocab := setVocab{"bmi": "BMI", "hdl": "HDL"}

	tests := []struct {
		name     string
		code     string
		priority bool
		reason   string
	}{
		{"priority code", "bmi", true, ""},
		{"excluded ontology code", "OBA:VT0000188", false, "OBA:VT0000188"},
		{"empty code is excluded with empty reason", "", false, ""},
		{"case sensitive", "BMI", false, "BMI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(tt.code, vocab)
			assert.Equal(t, tt.priority, v.Priority)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	vocab := setVocab{"bmi": ""}
	first := Classify("creat_urin", vocab)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify("creat_urin", vocab))
	}
}

func TestMalformed(t *testing.T) {
	v := Malformed()
	assert.False(t, v.Priority)
	assert.Equal(t, ReasonMalformed, v.Reason)
}
