package engine

// run.go - scan orchestration across source files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
	"github.com/cohortkit/harmonyqc/internal/source"
)

// cancelCheckInterval is how many rows a source scan processes between
// context checks.
const cancelCheckInterval = 1024

// SourceFailure records a source that could not be scanned during a
// keep-going run. Its partial diagnostics were discarded wholesale.
type SourceFailure struct {
	Source source.Source
	Err    error
}

// Result is the finalized output of one run, in the shape consumed by the
// report assembler and the state store.
type Result struct {
	Diagnostics []qaqc.DiagnosticsRow
	Summary     []qaqc.SummaryRow
	Failures    []SourceFailure

	// Quick stats over the completed sources.
	SourcesScanned   int
	TotalRows        int64
	PriorityRows     int64
	ExcludedRows     int64
	ObservationTypes int
	Participants     int64
	Elapsed          time.Duration
}

// sourceScan is the partial state produced by scanning one source.
type sourceScan struct {
	src     source.Source
	diag    *qaqc.SourceDiagnostics
	partial *qaqc.SummaryAccumulator
}

// Run scans all discovered sources. Sources are processed independently,
// each on its own worker: per-source diagnostics never merge, while each
// source's partial summary accumulator is merged into the run-wide one only
// after the source completes, so a failed or cancelled source contributes
// nothing at all.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	sources, err := e.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources: %w", err)
	}
	e.logger.Info("starting run",
		slog.String("sources_dir", e.cfg.SourcesDir),
		slog.Int("sources", len(sources)),
		slog.Int("workers", e.cfg.Workers))

	var (
		mu       sync.Mutex
		scans    = make(map[string]sourceScan, len(sources))
		failures []SourceFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for _, src := range sources {
		g.Go(func() error {
			scan, err := e.scanSource(gctx, src)
			if err != nil {
				e.logger.Error("source scan failed",
					slog.String("source", src.Path),
					slog.Any("error", err))
				if e.cfg.FailFast || errors.Is(err, context.Canceled) {
					return fmt.Errorf("source %s: %w", src.Path, err)
				}
				mu.Lock()
				failures = append(failures, SourceFailure{Source: src, Err: err})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			scans[src.Path] = scan
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := e.finalize(sources, scans, failures)
	result.Elapsed = time.Since(start)

	e.logger.Info("run completed",
		slog.Int("sources", result.SourcesScanned),
		slog.Int("failed", len(result.Failures)),
		slog.Int64("rows", result.TotalRows),
		slog.Int("types", result.ObservationTypes),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}

// scanSource streams one source file through classification into a fresh
// diagnostics accumulator and a source-local summary partial.
func (e *Engine) scanSource(ctx context.Context, src source.Source) (sourceScan, error) {
	e.logger.Debug("scanning source",
		slog.String("dir", src.Dir),
		slog.String("file", src.File),
		slog.Int64("size_bytes", src.SizeBytes))

	r, err := source.Open(src.Path, e.cfg.NullTokens)
	if err != nil {
		return sourceScan{}, err
	}
	defer r.Close()

	diag := qaqc.NewSourceDiagnostics(src.Dir, src.File)
	partial := qaqc.NewSummaryAccumulator()

	var rows int64
	for {
		if rows%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return sourceScan{}, err
			}
		}
		rows++

		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, source.ErrBadRow) {
			diag.Observe(qaqc.Malformed(), row.Participant)
			continue
		}
		if err != nil {
			// Unrecoverable read failure. The caller discards diag and
			// partial wholesale.
			return sourceScan{}, err
		}

		verdict := qaqc.Classify(row.Type, e.vocab)
		diag.Observe(verdict, row.Participant)
		if verdict.Priority {
			partial.Observe(row.Type, row.Participant, row.Value, row.Null)
		}
	}

	return sourceScan{src: src, diag: diag, partial: partial}, nil
}

// finalize merges the per-source partials in discovery order and derives
// the report rows.
func (e *Engine) finalize(sources []source.Source, scans map[string]sourceScan, failures []SourceFailure) *Result {
	summary := qaqc.NewSummaryAccumulator()
	result := &Result{Failures: failures}

	for _, src := range sources {
		scan, ok := scans[src.Path]
		if !ok {
			continue
		}
		row := scan.diag.Finalize(e.cfg.TopExcluded)
		result.Diagnostics = append(result.Diagnostics, row)
		result.SourcesScanned++
		result.TotalRows += row.TotalRows
		result.PriorityRows += row.PriorityRows
		result.ExcludedRows += row.ExcludedRows
		summary.Merge(scan.partial)
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Source.Path < result.Failures[j].Source.Path
	})

	result.ObservationTypes = summary.Types()
	result.Participants = summary.Participants()
	result.Summary = summary.Finalize(e.vocab)
	return result
}
