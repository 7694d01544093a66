package qaqc

import "sort"

// DefaultTopExcluded is the number of exclusion codes reported per source.
const DefaultTopExcluded = 5

// SourceDiagnostics accumulates per-source row accounting. One instance is
// created per source file and never merged with other sources; Merge exists
// only to combine shards of the same source. Updates are order-independent.
type SourceDiagnostics struct {
	SourceDir  string
	SourceFile string

	totalRows    int64
	priorityRows int64
	excludedRows int64
	participants map[string]struct{}
	excluded     map[string]int64
}

// NewSourceDiagnostics creates an empty accumulator for one source file.
func NewSourceDiagnostics(dir, file string) *SourceDiagnostics {
	return &SourceDiagnostics{
		SourceDir:    dir,
		SourceFile:   file,
		participants: make(map[string]struct{}),
		excluded:     make(map[string]int64),
	}
}

// Observe records one classified row. Every call increments totalRows, so
// totalRows == priorityRows + excludedRows holds by construction. Empty
// participant identifiers are not counted toward the distinct cardinality.
func (d *SourceDiagnostics) Observe(v Verdict, participant string) {
	d.totalRows++
	if v.Priority {
		d.priorityRows++
	} else {
		d.excludedRows++
		d.excluded[v.Reason]++
	}
	if participant != "" {
		d.participants[participant] = struct{}{}
	}
}

// Merge folds another shard of the same source into d. The operation is
// associative and commutative.
func (d *SourceDiagnostics) Merge(o *SourceDiagnostics) {
	d.totalRows += o.totalRows
	d.priorityRows += o.priorityRows
	d.excludedRows += o.excludedRows
	for p := range o.participants {
		d.participants[p] = struct{}{}
	}
	for code, n := range o.excluded {
		d.excluded[code] += n
	}
}

// ExcludedCount is one entry of the top-excluded histogram.
type ExcludedCount struct {
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// DiagnosticsRow is the finalized, immutable diagnostics record for one
// source file, in the shape consumed by the report assembler.
type DiagnosticsRow struct {
	SourceDir    string          `json:"source_dir"`
	SourceFile   string          `json:"source_file"`
	TotalRows    int64           `json:"total_rows"`
	PriorityRows int64           `json:"priority_rows"`
	ExcludedRows int64           `json:"excluded_rows"`
	Participants int64           `json:"participants"`
	TopExcluded  []ExcludedCount `json:"top_excluded"`
}

// Finalize produces the diagnostics row. The exclusion histogram is sorted
// by descending count, ties broken by ascending code, and truncated to
// topK entries. A source with no exclusions yields an empty histogram.
func (d *SourceDiagnostics) Finalize(topK int) DiagnosticsRow {
	if topK <= 0 {
		topK = DefaultTopExcluded
	}

	top := make([]ExcludedCount, 0, len(d.excluded))
	for code, n := range d.excluded {
		top = append(top, ExcludedCount{Code: code, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Code < top[j].Code
	})
	if len(top) > topK {
		top = top[:topK]
	}

	return DiagnosticsRow{
		SourceDir:    d.SourceDir,
		SourceFile:   d.SourceFile,
		TotalRows:    d.totalRows,
		PriorityRows: d.priorityRows,
		ExcludedRows: d.excludedRows,
		Participants: int64(len(d.participants)),
		TopExcluded:  top,
	}
}
