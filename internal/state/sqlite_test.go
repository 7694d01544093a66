package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun()
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	stats := RunStats{
		SourcesScanned:   9,
		TotalRows:        13_600_000,
		PriorityRows:     12_900_000,
		ExcludedRows:     700_000,
		ObservationTypes: 42,
		Participants:     28_455,
		Elapsed:          3200 * time.Millisecond,
	}
	require.NoError(t, s.CompleteRun(run.ID, RunStatusCompleted, "", stats))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, stats, got.Stats)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_CompleteRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.CompleteRun("nope", RunStatusCompleted, "", RunStats{})
	require.Error(t, err)
}

func TestSQLiteStore_LatestRun(t *testing.T) {
	s := openTestStore(t)

	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, latest, "no completed run yet")

	r1, err := s.CreateRun()
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(r1.ID, RunStatusCompleted, "", RunStats{SourcesScanned: 1, TotalRows: 10}))

	// A still-running run must not shadow the completed one.
	_, err = s.CreateRun()
	require.NoError(t, err)

	latest, err = s.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, r1.ID, latest.ID)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		run, err := s.CreateRun()
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(run.ID, RunStatusCompleted, "", RunStats{SourcesScanned: i, TotalRows: int64(i)}))
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSQLiteStore_ReportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	run, err := s.CreateRun()
	require.NoError(t, err)

	mean, median, sd := 30.0, 30.0, 7.071
	lo, hi := 25.0, 35.0
	diags := []qaqc.DiagnosticsRow{
		{
			SourceDir:    "aric-remapped",
			SourceFile:   "aric_MeasurementObservation_v1.tsv",
			TotalRows:    3,
			PriorityRows: 2,
			ExcludedRows: 1,
			Participants: 2,
			TopExcluded:  []qaqc.ExcludedCount{{Code: "OBA:VT0000188", Count: 1}},
		},
		{
			SourceDir:    "mesa-remapped",
			SourceFile:   "mesa_MeasurementObservation_v1.tsv",
			TotalRows:    1,
			PriorityRows: 1,
			TopExcluded:  []qaqc.ExcludedCount{},
		},
	}
	summary := []qaqc.SummaryRow{
		{
			ObservationType: "bmi", Label: "BMI",
			N: 2, NullsMissing: 0, Participants: 2,
			Mean: &mean, Median: &median, Min: &lo, Max: &hi, SD: &sd,
		},
		{
			ObservationType: "cesd_score", Label: "CESD score",
			N: 4, NullsMissing: 4, Participants: 4,
		},
	}

	require.NoError(t, s.SaveReport(run.ID, diags, summary))

	gotDiags, gotSummary, err := s.GetReport(run.ID)
	require.NoError(t, err)
	assert.Equal(t, diags, gotDiags)
	assert.Equal(t, summary, gotSummary)

	// All-null type keeps nil statistics through the round trip.
	assert.Nil(t, gotSummary[1].Mean)
	assert.Nil(t, gotSummary[1].SD)
}

func TestSQLiteStore_DeleteOldRuns(t *testing.T) {
	s := openTestStore(t)
	var ids []string
	for i := 0; i < 6; i++ {
		run, err := s.CreateRun()
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(run.ID, RunStatusCompleted, "", RunStats{}))
		require.NoError(t, s.SaveReport(run.ID, []qaqc.DiagnosticsRow{
			{SourceDir: "d", SourceFile: fmt.Sprintf("f%d.tsv", i), TopExcluded: []qaqc.ExcludedCount{}},
		}, nil))
		ids = append(ids, run.ID)
	}

	require.NoError(t, s.DeleteOldRuns(2))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// Cascade removed the old report rows.
	gotDiags, _, err := s.GetReport(ids[0])
	require.NoError(t, err)
	assert.Empty(t, gotDiags)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)
	_, err := s.CreateRun()
	assert.Error(t, err)
	_, err = s.ListRuns(1)
	assert.Error(t, err)
	_, _, err = s.GetReport("x")
	assert.Error(t, err)
}

func TestSQLiteStore_SaveReport_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLiteStore(nil)
	s.db = db

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO source_diagnostics").
		ExpectExec().
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err = s.SaveReport("run-1", []qaqc.DiagnosticsRow{
		{SourceDir: "d", SourceFile: "f.tsv", TopExcluded: []qaqc.ExcludedCount{}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
