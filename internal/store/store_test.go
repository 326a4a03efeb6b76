package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/crosscheck"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/evaluate"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/tables"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(t *testing.T, id string, started time.Time) Run {
	t.Helper()
	res, err := tables.Normalize(paper.RawTable{Rows: [][]string{
		{"Alloy", "Variant", "Grain", "TYS", "CYS", "SD", "UTS", "Strain"},
		{"AZ31", "Sheet-RD", "15", "170", "72", "2.36", "254", "22.2"},
		{"", "Sheet-TD", "15", "186", "74", "2.5", "259", "21.0"},
	}}, tables.MechanicalSchema)
	require.NoError(t, err)

	micro, err := record.Decode([]byte(`{"alloy": "AZ31", "material_form": "extruded profile",
		"grain_morphology": "equi-axed", "avg_grain_size_um": 15,
		"evidence": {"snippet": "equi-axed grains of 15 μm"}}`), record.Microstructure)
	require.NoError(t, err)
	evs, err := evaluate.Evaluate(verify.New(), crosscheck.New(), []record.Record{micro}, nil)
	require.NoError(t, err)

	return Run{
		ID:           id,
		Paper:        "az31.pdf",
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
		Sections:     sections.Map{sections.Abstract: "a", sections.Results: "r"},
		TableRecords: res.Records,
		Evaluations:  map[string][]evaluate.Evaluated{string(record.Microstructure): evs},
	}
}

func TestOpenSetsSchemaVersion(t *testing.T) {
	db := openTestDB(t)
	v, err := schemaVersion(db.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), v)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	db, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())
}

func TestSaveRunAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.SaveRun(ctx, sampleRun(t, "run-1", base)))
	require.NoError(t, db.SaveRun(ctx, sampleRun(t, "run-2", base.Add(time.Hour))))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 2, runs[0].Sections)
	assert.Equal(t, 2, runs[0].Records)
	assert.Equal(t, 1, runs[0].Evaluations)
	assert.True(t, runs[1].StartedAt.Equal(base))

	limited, err := db.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := sampleRun(t, "dup", time.Now())
	require.NoError(t, db.SaveRun(ctx, r))
	require.Error(t, db.SaveRun(ctx, r))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestConfidenceCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveRun(ctx, sampleRun(t, "run-1", time.Now())))

	counts, err := db.ConfidenceCounts(ctx, "")
	require.NoError(t, err)
	// Verified ratio 1.0 is high; the extruded/equi-axed issue lowers it to medium.
	assert.Equal(t, map[verify.Confidence]int{verify.Medium: 1}, counts)

	none, err := db.ConfidenceCounts(ctx, string(record.Processing))
	require.NoError(t, err)
	assert.Empty(t, none)
}
