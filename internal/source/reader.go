package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

// Column names in harmonized MeasurementObservation files.
const (
	colObservationType = "observation_type"
	colParticipant     = "associated_participant"
	colValueDecimal    = "value_quantity__value_decimal"
	colValueConcept    = "value_quantity__value_concept"
)

// DefaultNullTokens are the value spellings treated as null/missing.
// The upstream remapping writes missing values as an empty field or the
// literal string "None".
var DefaultNullTokens = []string{"", "None"}

// ErrBadRow reports a single structurally bad row: too few fields, or a
// value that is neither a null token nor a number. The reader stays usable;
// the caller accounts for the row and continues.
var ErrBadRow = errors.New("malformed row")

// Reader streams rows from one harmonized TSV file. It is not safe for
// concurrent use.
type Reader struct {
	f  *os.File
	cr *csv.Reader

	typeIdx        int
	participantIdx int
	decimalIdx     int
	conceptIdx     int

	nullTokens map[string]struct{}
}

// Open opens path and reads its header. The observation type and
// participant columns are required; the two value columns are optional
// (a file with neither yields all-null values).
func Open(path string, nullTokens []string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("source %s is empty", path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	r := &Reader{
		f:              f,
		cr:             cr,
		typeIdx:        -1,
		participantIdx: -1,
		decimalIdx:     -1,
		conceptIdx:     -1,
		nullTokens:     make(map[string]struct{}),
	}

	if nullTokens == nil {
		nullTokens = DefaultNullTokens
	}
	for _, tok := range nullTokens {
		r.nullTokens[tok] = struct{}{}
	}

	for i, col := range header {
		switch strings.TrimSpace(col) {
		case colObservationType:
			r.typeIdx = i
		case colParticipant:
			r.participantIdx = i
		case colValueDecimal:
			r.decimalIdx = i
		case colValueConcept:
			r.conceptIdx = i
		}
	}
	if r.typeIdx < 0 || r.participantIdx < 0 {
		f.Close()
		return nil, fmt.Errorf("source %s is missing required columns (%s, %s)",
			path, colObservationType, colParticipant)
	}

	return r, nil
}

// Next returns the next row. It returns io.EOF at end of file, ErrBadRow
// (possibly wrapped) for a row that must be counted as malformed, and any
// other error for an unrecoverable read failure.
func (r *Reader) Next() (qaqc.Row, error) {
	record, err := r.cr.Read()
	if err == io.EOF {
		return qaqc.Row{}, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return qaqc.Row{}, fmt.Errorf("line %d: %w", parseErr.Line, ErrBadRow)
		}
		return qaqc.Row{}, err
	}

	row := qaqc.Row{}
	if r.typeIdx < len(record) {
		row.Type = strings.TrimSpace(record[r.typeIdx])
	}
	if r.participantIdx < len(record) {
		row.Participant = strings.TrimSpace(record[r.participantIdx])
	}

	// A row too short to carry the type column is structural damage, not
	// an empty type code.
	if r.typeIdx >= len(record) {
		return row, ErrBadRow
	}

	raw := r.valueField(record)
	if _, null := r.nullTokens[raw]; null {
		row.Null = true
		return row, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || badValue(v) {
		return row, fmt.Errorf("value %q: %w", raw, ErrBadRow)
	}
	row.Value = v
	return row, nil
}

// valueField picks the decimal value column, falling back to the concept
// column when the decimal one is null, mirroring the upstream remapping.
func (r *Reader) valueField(record []string) string {
	raw := ""
	if r.decimalIdx >= 0 && r.decimalIdx < len(record) {
		raw = strings.TrimSpace(record[r.decimalIdx])
	}
	if _, null := r.nullTokens[raw]; null && r.conceptIdx >= 0 && r.conceptIdx < len(record) {
		if alt := strings.TrimSpace(record[r.conceptIdx]); alt != "" {
			return alt
		}
	}
	return raw
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

func badValue(v float64) bool {
	// NaN and infinities would poison the accumulators downstream.
	return math.IsNaN(v) || math.IsInf(v, 0)
}
