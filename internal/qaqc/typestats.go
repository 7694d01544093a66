package qaqc

import (
	"fmt"
	"math"
	"sort"
)

// typeAccumulator holds the streaming state for one observation type.
// Counters, min/max and the Welford moments are order-independent; the
// retained value list makes the median exact regardless of arrival order.
type typeAccumulator struct {
	n            int64
	nulls        int64
	participants map[string]struct{}

	// Non-null accumulation. count == len(values).
	count int64
	mean  float64
	m2    float64
	min   float64
	max   float64

	// All non-null values, retained so the median is exact rather than
	// approximated from a sketch.
	values []float64
}

func newTypeAccumulator() *typeAccumulator {
	return &typeAccumulator{participants: make(map[string]struct{})}
}

func (a *typeAccumulator) observe(participant string, value float64, null bool) {
	a.n++
	if participant != "" {
		a.participants[participant] = struct{}{}
	}
	if null {
		a.nulls++
		return
	}

	a.count++
	if a.count == 1 {
		a.min = value
		a.max = value
	} else {
		if value < a.min {
			a.min = value
		}
		if value > a.max {
			a.max = value
		}
	}

	// Welford update
	delta := value - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (value - a.mean)

	a.values = append(a.values, value)
}

// merge combines two partial accumulators for the same type using the
// parallel Welford combination (Chan et al.).
func (a *typeAccumulator) merge(b *typeAccumulator) {
	a.n += b.n
	a.nulls += b.nulls
	for p := range b.participants {
		a.participants[p] = struct{}{}
	}

	if b.count == 0 {
		return
	}
	if a.count == 0 {
		a.count = b.count
		a.mean = b.mean
		a.m2 = b.m2
		a.min = b.min
		a.max = b.max
		a.values = append(a.values, b.values...)
		return
	}

	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}

	delta := b.mean - a.mean
	total := a.count + b.count
	a.mean += delta * float64(b.count) / float64(total)
	a.m2 += b.m2 + delta*delta*float64(a.count)*float64(b.count)/float64(total)
	a.count = total

	a.values = append(a.values, b.values...)
}

// SummaryRow is the finalized cross-source statistics for one observation
// type. Numeric fields are nil when undefined: all five when no non-null
// values were seen, SD additionally when fewer than two were.
type SummaryRow struct {
	ObservationType string   `json:"observation_type"`
	Label           string   `json:"label"`
	N               int64    `json:"n"`
	NullsMissing    int64    `json:"nulls_missing"`
	Participants    int64    `json:"participants"`
	Mean            *float64 `json:"mean,omitempty"`
	Median          *float64 `json:"median,omitempty"`
	Min             *float64 `json:"min,omitempty"`
	Max             *float64 `json:"max,omitempty"`
	SD              *float64 `json:"sd,omitempty"`
	// Err notes a per-type computation failure (e.g. overflow in the
	// variance accumulation). Robust statistics are still reported.
	Err string `json:"error,omitempty"`
}

// SummaryAccumulator accumulates TypeStatistics across all sources, keyed by
// harmonized observation type. It is not safe for concurrent use; run one
// per worker and Merge the partials.
type SummaryAccumulator struct {
	types map[string]*typeAccumulator
}

// NewSummaryAccumulator creates an empty accumulator.
func NewSummaryAccumulator() *SummaryAccumulator {
	return &SummaryAccumulator{types: make(map[string]*typeAccumulator)}
}

// Observe records one priority row. Excluded rows must never reach this
// accumulator. For null rows the value argument is ignored.
func (s *SummaryAccumulator) Observe(typeCode, participant string, value float64, null bool) {
	acc, ok := s.types[typeCode]
	if !ok {
		acc = newTypeAccumulator()
		s.types[typeCode] = acc
	}
	acc.observe(participant, value, null)
}

// Merge folds another accumulator into s. The operation is associative and
// commutative, which is what allows per-worker accumulation with a single
// combine step instead of a shared lock.
func (s *SummaryAccumulator) Merge(o *SummaryAccumulator) {
	for code, b := range o.types {
		if a, ok := s.types[code]; ok {
			a.merge(b)
		} else {
			s.types[code] = b
		}
	}
}

// Types returns the number of distinct observation types seen.
func (s *SummaryAccumulator) Types() int {
	return len(s.types)
}

// Participants returns the distinct participant count across all types.
func (s *SummaryAccumulator) Participants() int64 {
	all := make(map[string]struct{})
	for _, acc := range s.types {
		for p := range acc.participants {
			all[p] = struct{}{}
		}
	}
	return int64(len(all))
}

// Finalize derives the summary rows, sorted by observation type. Types that
// were never observed do not appear. SD uses the sample convention
// (n_nonnull - 1 divisor). Overflow in the moment accumulation is surfaced
// per type rather than emitted as a corrupted statistic.
func (s *SummaryAccumulator) Finalize(vocab Vocabulary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(s.types))
	for code, acc := range s.types {
		row := SummaryRow{
			ObservationType: code,
			N:               acc.n,
			NullsMissing:    acc.nulls,
			Participants:    int64(len(acc.participants)),
		}
		if vocab != nil {
			row.Label = vocab.Label(code)
		} else {
			row.Label = code
		}

		if acc.count > 0 {
			sorted := make([]float64, len(acc.values))
			copy(sorted, acc.values)
			sort.Float64s(sorted)

			med := median(sorted)
			row.Median = &med
			minV, maxV := acc.min, acc.max
			row.Min = &minV
			row.Max = &maxV

			if badFloat(acc.mean) || badFloat(acc.m2) {
				row.Err = fmt.Sprintf("variance accumulation overflowed after %d values", acc.count)
			} else {
				mean := acc.mean
				row.Mean = &mean
				if acc.count > 1 {
					sd := math.Sqrt(acc.m2 / float64(acc.count-1))
					row.SD = &sd
				}
			}
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ObservationType < rows[j].ObservationType
	})
	return rows
}

// median of a sorted, non-empty slice: middle element for odd length, mean
// of the two middle elements for even length.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func badFloat(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
