// Package qaqc implements the core QA/QC aggregation engine: row
// classification against the priority vocabulary, per-source diagnostics,
// and cross-source summary statistics for harmonized measurement data.
package qaqc

// ReasonMalformed is the reserved exclusion code for rows whose value could
// not be parsed. Malformed rows are counted, never dropped.
const ReasonMalformed = "<malformed>"

// Vocabulary resolves observation type codes. It is supplied by an external
// controlled-vocabulary source and is frozen for the duration of a run.
type Vocabulary interface {
	// IsPriority reports whether the code is accepted for summarization.
	IsPriority(code string) bool
	// Label returns the human-readable label for a code, or the code
	// itself when no label is known.
	Label(code string) string
}

// Verdict is the classification of a single row.
type Verdict struct {
	Priority bool
	// Reason is the exclusion code when Priority is false. For a row
	// excluded by vocabulary this is the row's own type code, which may
	// be empty when the type field was empty.
	Reason string
}

// Row is one measurement observation as read from a source file.
type Row struct {
	Type        string
	Participant string
	Value       float64
	Null        bool
}

// Classify decides whether a row's type code is priority or excluded.
// It is a pure function of the code and the vocabulary: codes absent from
// the priority vocabulary are excluded with the code itself as the reason.
func Classify(typeCode string, vocab Vocabulary) Verdict {
	if vocab.IsPriority(typeCode) {
		return Verdict{Priority: true}
	}
	return Verdict{Priority: false, Reason: typeCode}
}

// Malformed returns the verdict for a row whose value could not be parsed.
func Malformed() Verdict {
	return Verdict{Priority: false, Reason: ReasonMalformed}
}
