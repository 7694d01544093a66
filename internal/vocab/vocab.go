// Package vocab loads the harmonized-variable controlled vocabulary.
// The vocabulary file (harmonized_vars.tsv) maps observation type codes
// to human-readable labels; its key set doubles as the priority set used
// by row classification.
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Column names expected in the vocabulary TSV header.
const (
	colVarName  = "var_name"
	colVarLabel = "var_label"
)

// Vocabulary is the frozen code->label mapping for one run. It implements
// qaqc.Vocabulary.
type Vocabulary struct {
	labels map[string]string
}

// Load reads a vocabulary TSV from path.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()

	v, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file %s: %w", path, err)
	}
	return v, nil
}

// Parse reads a tab-separated vocabulary with a header containing at least
// var_name and var_label columns. Duplicate codes keep the last label seen,
// matching a plain map load.
func Parse(r io.Reader) (*Vocabulary, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	if err != nil {
		return nil, err
	}

	nameIdx, labelIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case colVarName:
			nameIdx = i
		case colVarLabel:
			labelIdx = i
		}
	}
	if nameIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("vocabulary header must contain %q and %q columns", colVarName, colVarLabel)
	}

	labels := make(map[string]string)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if nameIdx >= len(record) {
			continue
		}
		code := strings.TrimSpace(record[nameIdx])
		if code == "" {
			continue
		}
		label := ""
		if labelIdx < len(record) {
			label = strings.TrimSpace(record[labelIdx])
		}
		labels[code] = label
	}

	return &Vocabulary{labels: labels}, nil
}

// New builds a vocabulary from an in-memory mapping. Used by tests and by
// callers that source labels elsewhere.
func New(labels map[string]string) *Vocabulary {
	m := make(map[string]string, len(labels))
	for code, label := range labels {
		m[code] = label
	}
	return &Vocabulary{labels: m}
}

// IsPriority reports whether code belongs to the priority vocabulary.
func (v *Vocabulary) IsPriority(code string) bool {
	_, ok := v.labels[code]
	return ok
}

// Label resolves the display label for code. Unknown codes and codes with
// an empty label fall back to the code itself, so a lookup failure can
// never blank out a report row.
func (v *Vocabulary) Label(code string) string {
	if label, ok := v.labels[code]; ok && label != "" {
		return label
	}
	return code
}

// Len returns the number of codes in the vocabulary.
func (v *Vocabulary) Len() int {
	return len(v.labels)
}

// Codes returns all priority codes in ascending order.
func (v *Vocabulary) Codes() []string {
	codes := make([]string, 0, len(v.labels))
	for code := range v.labels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
