package catalog

import (
	"context"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/participants"
)

const fixtureTSV = "participant_id\tage\tgroup\n" +
	"sub-01\t33\tpatient\n" +
	"sub-02\t41\tcontrol\n" +
	"sub-10\t58\tcontrol\n"

func fixtureFS(t *testing.T, files ...string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, participants.TableFile, []byte(fixtureTSV), 0o644))
	for _, f := range files {
		require.NoError(t, util.WriteFile(fs, f, []byte("x"), 0o644))
	}
	return fs
}

func open(t *testing.T, cfg api.Config) *Dataset {
	t.Helper()
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return d
}

func TestNew(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-02/ses-01/eeg/sub-02_ses-01_task-lg_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "Subjects: 3, files: 2", d.String())
	assert.Equal(t, "sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr", d.At(0).Path)
	assert.Equal(t, 2, d.Table().Len())
}

func TestNew_SubSubsetRestrictsParticipants(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-02/ses-01/eeg/sub-02_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs, Sub: api.Values("01")})

	assert.Equal(t, 1, d.Len())
	assert.Equal(t, []string{"sub-01"}, d.Participants().IDs())
}

func TestNew_RequiresRootOrFS(t *testing.T) {
	_, err := New(context.Background(), api.Config{})
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-01/ses-01/eeg/sub-01_ses-01_task-lg_acq-01_eeg.vhdr",
		"sub-02/ses-01/eeg/sub-02_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	got := d.Get(api.Filter{Sub: "01", Task: "rest"})
	require.Len(t, got, 1)
	assert.Equal(t, "sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr", got[0].Path)

	assert.Len(t, d.Get(api.Filter{}), 3)
	assert.Empty(t, d.Get(api.Filter{Task: "none"}))
}

func TestGet_AcqTokenization(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-10_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	// Integer acq behaves like its zero-padded token. Exact component
	// matching keeps acq 1 away from acq-10; a substring test over the
	// path string would conflate them.
	got := d.Get(api.Filter{Acq: 1})
	require.Len(t, got, 1)
	assert.Equal(t, "01", got[0].Acq)

	got = d.Get(api.Filter{Acq: 10})
	require.Len(t, got, 1)
	assert.Equal(t, "10", got[0].Acq)
}

func TestGet_SubTokenization(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-10/ses-01/eeg/sub-10_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	got := d.Get(api.Filter{Sub: "1"})
	assert.Empty(t, got, "sub 1 must not match sub-01 or sub-10")
}

func TestGet_RunDefaultsToOne(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-01/ses-02/eeg/sub-01_ses-02_task-rest_acq-01_run-02_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	got := d.Get(api.Filter{Run: 1})
	require.Len(t, got, 1)
	assert.Equal(t, "01", got[0].Ses)

	got = d.Get(api.Filter{Run: 2})
	require.Len(t, got, 1)
	assert.Equal(t, "02", got[0].Ses)
}

func TestGet_SuffixAndExt(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-02_eeg.set",
	)
	d := open(t, api.Config{FS: fs})

	got := d.Get(api.Filter{Ext: "set"})
	require.Len(t, got, 1)
	assert.Equal(t, "02", got[0].Acq)

	// Leading dot is accepted too.
	assert.Len(t, d.Get(api.Filter{Ext: ".vhdr"}), 1)
	assert.Len(t, d.Get(api.Filter{Suffix: "eeg"}), 2)
}

func TestGetDerivatives(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"derivatives/preproc/sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_markers.csv",
		"derivatives/icav2/sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_report.html",
	)
	d := open(t, api.Config{FS: fs})

	got := d.GetDerivatives("preproc", api.Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, "preproc", got[0].Derivative)

	assert.Empty(t, d.GetDerivatives("missing", api.Filter{}))

	// Raw queries never see derivative entries.
	assert.Len(t, d.Get(api.Filter{}), 1)
}

func TestToTable(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
		"sub-02/ses-01/eeg/sub-02_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})

	got := d.ToTable(api.Filter{Sub: "02"})
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "sub-02", got.Rows[0]["participant_id"])
	// Filtering never mutates the source table.
	assert.Equal(t, 2, d.Table().Len())
}

func TestNew_InconsistentMetadataFailsConstruction(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_run-02_eeg.vhdr",
	)
	_, err := New(context.Background(), api.Config{FS: fs})
	assert.Error(t, err)
}

func TestReloadDerivatives(t *testing.T) {
	fs := fixtureFS(t,
		"sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_eeg.vhdr",
	)
	d := open(t, api.Config{FS: fs})
	assert.Empty(t, d.DerivativeEntries())

	// A pipeline writes its outputs after construction.
	require.NoError(t, util.WriteFile(fs,
		"derivatives/preproc/sub-01/ses-01/eeg/sub-01_ses-01_task-rest_acq-01_markers.csv",
		[]byte("x"), 0o644))

	require.NoError(t, d.ReloadDerivatives(context.Background()))
	assert.Len(t, d.GetDerivatives("preproc", api.Filter{}), 1)
}
