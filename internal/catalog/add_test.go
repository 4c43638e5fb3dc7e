package catalog

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/participants"
)

func recordingZip(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "recording.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range []string{
		"sub-01_ses-01_task-lg_acq-02_eeg.vhdr",
		"sub-01_ses-01_task-lg_acq-02_eeg.eeg",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestAdd(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	err := d.Add(context.Background(), recordingZip(t), "01", "01", "lg", 2, "biosemi64")
	require.NoError(t, err)

	// Extracted contents are in place, the archive itself is gone.
	_, err = fs.Stat("sub-01/ses-01/eeg/sub-01_ses-01_task-lg_acq-02_eeg.vhdr")
	assert.NoError(t, err)
	_, err = fs.Stat("sub-01/ses-01/eeg/sub-01_ses-01_task-lg_acq-02_eeg.zip")
	assert.Error(t, err)

	// Sidecar records the setup description.
	sidecar, err := util.ReadFile(fs, "sub-01/ses-01/eeg/sub-01_ses-01_task-lg_acq-02_eeg.json")
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), `"setup"`)
	assert.Contains(t, string(sidecar), "biosemi64")

	// Participant table marks the task as present, on disk.
	tbl, err := participants.Load(fs)
	require.NoError(t, err)
	row, err := tbl.Get("sub-01")
	require.NoError(t, err)
	assert.Equal(t, "true", row["lg"])

	// The in-memory catalog stays as constructed until reindexing.
	assert.Empty(t, d.Get(api.Filter{Task: "lg"}))
}

func TestAdd_ConflictWithIndexedData(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	err := d.Add(context.Background(), recordingZip(t), "01", "01", "rest", 1, "biosemi64")
	assert.ErrorIs(t, err, ErrExists)
}

func TestAdd_SecondCallConflicts(t *testing.T) {
	fs := fixtureFS(t)
	d := open(t, api.Config{FS: fs})

	require.NoError(t, d.Add(context.Background(), recordingZip(t), "01", "01", "lg", 2, "setup A"))

	before, err := util.ReadFile(fs, participants.TableFile)
	require.NoError(t, err)

	err = d.Add(context.Background(), recordingZip(t), "01", "01", "lg", 2, "setup B")
	require.ErrorIs(t, err, ErrExists)

	// The failed attempt must not have rewritten the table.
	after, err := util.ReadFile(fs, participants.TableFile)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestAdd_UnknownSubject(t *testing.T) {
	fs := fixtureFS(t)
	d := open(t, api.Config{FS: fs})

	err := d.Add(context.Background(), recordingZip(t), "99", "01", "lg", 2, "setup")
	require.ErrorIs(t, err, participants.ErrNotFound)

	// Nothing was written for the rejected subject.
	_, statErr := fs.Stat("sub-99")
	assert.Error(t, statErr)
}

func TestAdd_ValidatesArguments(t *testing.T) {
	d := open(t, api.Config{FS: fixtureFS(t)})

	for _, tc := range []struct {
		sub, ses, task string
		acq            int
	}{
		{"", "01", "lg", 1},
		{"01", "", "lg", 1},
		{"01", "01", "", 1},
		{"01", "01", "lg", 0},
	} {
		err := d.Add(context.Background(), "whatever.zip", tc.sub, tc.ses, tc.task, tc.acq, "s")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "required"))
	}
}
