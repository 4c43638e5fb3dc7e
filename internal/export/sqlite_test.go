package export

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicelab/nicebids/internal/bidspath"
	"github.com/nicelab/nicebids/internal/metadata"
)

func entry(t *testing.T, rel string, kind bidspath.Kind) *bidspath.Entry {
	t.Helper()
	c, err := bidspath.Parse(rel, kind)
	require.NoError(t, err)
	return bidspath.NewEntry(rel, c, map[string]string{"age": "33"})
}

func TestWrite(t *testing.T) {
	files := []*bidspath.Entry{
		entry(t, "sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr", bidspath.Raw),
		entry(t, "sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_run-02_eeg.vhdr", bidspath.Raw),
	}
	derivs := []*bidspath.Entry{
		entry(t, "derivatives/preproc/sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_markers.csv", bidspath.Derivative),
	}
	table, err := metadata.Consolidate(files, []string{"age"})
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, Write(dbPath, Snapshot{Files: files, Derivatives: derivs, Metadata: table}))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM recordings").Scan(&n))
	assert.Equal(t, 3, n)

	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM recordings WHERE derivative = 'preproc'").Scan(&n))
	assert.Equal(t, 1, n)

	var run int
	var extra string
	require.NoError(t, db.QueryRow(
		"SELECT run, extra FROM metadata WHERE participant_id = 'sub-01'").Scan(&run, &extra))
	assert.Equal(t, 1, run)
	assert.Contains(t, extra, "33")
}

func TestWrite_Overwrites(t *testing.T) {
	files := []*bidspath.Entry{
		entry(t, "sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr", bidspath.Raw),
	}
	table, err := metadata.Consolidate(files, []string{"age"})
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, Write(dbPath, Snapshot{Files: files, Metadata: table}))
	require.NoError(t, Write(dbPath, Snapshot{Files: files, Metadata: table}))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM recordings").Scan(&n))
	assert.Equal(t, 1, n)
}
