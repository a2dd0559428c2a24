package data

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	require.NoError(t, GenerateSyntheticCohort(200, 1, path))

	ds, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 200)
	assert.Equal(t, 14, len(ds.Columns))
	assert.Equal(t, 13, ds.Column("severity"))
	assert.Equal(t, -1, ds.Column("missing"))

	// all three severities plus the occasional missing label show up in a
	// cohort this size
	seen := map[string]bool{}
	for _, row := range ds.Rows {
		seen[row[13]] = true
	}
	for _, s := range []string{"mild", "moderate", "severe"} {
		assert.True(t, seen[s], "severity %s missing from cohort", s)
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, GenerateSyntheticCohort(50, 9, a))
	require.NoError(t, GenerateSyntheticCohort(50, 9, b))

	da, err := LoadCSV(a)
	require.NoError(t, err)
	db, err := LoadCSV(b)
	require.NoError(t, err)
	assert.Equal(t, da.Rows, db.Rows)
}

func TestLoadCSVMissing(t *testing.T) {
	_, err := LoadCSV("definitely/not/here.csv")
	require.Error(t, err)
}
