// Package bidspath parses and validates the BIDS-EEG naming convention:
//
//	sub-<id>/ses-<id>/eeg/sub-<id>_ses-<id>_task-<id>_acq-<NN>[_run-<NN>]_<suffix>.<ext>
//
// Raw recordings carry the "eeg" suffix; derivative outputs live under
// derivatives/<pipeline>/ with the same tail and may use any suffix.
package bidspath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind selects the validation mode of the classifier.
type Kind int

const (
	// Raw validates original recordings: the suffix must be "eeg".
	Raw Kind = iota
	// Derivative validates pipeline outputs: any suffix and extension
	// are accepted as long as the structural tokens are well-formed.
	Derivative
)

var ErrInvalidPath = errors.New("path does not follow the recording naming convention")

// filenameRe captures sub, ses, task, acq, optional run, suffix and
// extension from a recording filename. Extensions may be dotted
// (e.g. "set.gz").
var filenameRe = regexp.MustCompile(
	`^sub-([A-Za-z0-9]+)_ses-([A-Za-z0-9]+)_task-([A-Za-z0-9]+)_acq-([0-9]+)(?:_run-([0-9]+))?_([a-z][a-z0-9]*)\.([A-Za-z0-9.]+)$`)

// Components holds the parsed fields of a recording path.
type Components struct {
	Sub    string
	Ses    string
	Task   string
	Acq    string // zero-padded token as written on disk
	Run    int    // 0 when the run token is absent
	HasRun bool
	Suffix string
	Ext    string

	// Derivative is the owning pipeline name; empty for raw entries.
	Derivative string
}

// EffectiveRun returns the run number, defaulting to 1 when the path
// carries no run token.
func (c Components) EffectiveRun() int {
	if !c.HasRun {
		return 1
	}
	return c.Run
}

// Parse classifies a slash-separated root-relative path. For Derivative
// kind the path must start with "derivatives/<pipeline>/".
func Parse(rel string, kind Kind) (Components, error) {
	parts := strings.Split(rel, "/")

	var c Components
	if kind == Derivative {
		if len(parts) != 5 || parts[0] != "derivatives" || parts[1] == "" {
			return Components{}, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
		}
		c.Derivative = parts[1]
		parts = parts[2:]
	}
	if len(parts) != 4 || parts[2] != "eeg" {
		return Components{}, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}

	m := filenameRe.FindStringSubmatch(parts[3])
	if m == nil {
		return Components{}, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	c.Sub, c.Ses, c.Task, c.Acq = m[1], m[2], m[3], m[4]
	if m[5] != "" {
		run, err := strconv.Atoi(m[5])
		if err != nil {
			return Components{}, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
		}
		c.Run = run
		c.HasRun = true
	}
	c.Suffix, c.Ext = m[6], m[7]

	// Directory tokens must agree with the filename tokens.
	if parts[0] != "sub-"+c.Sub || parts[1] != "ses-"+c.Ses {
		return Components{}, fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}

	if kind == Raw {
		if c.Suffix != "eeg" {
			return Components{}, fmt.Errorf("%w: raw recording must carry the eeg suffix: %s", ErrInvalidPath, rel)
		}
		// JSON next to a raw recording is its sidecar, not data.
		if c.Ext == "json" {
			return Components{}, fmt.Errorf("%w: sidecar, not a recording: %s", ErrInvalidPath, rel)
		}
	}
	return c, nil
}

// Correct reports whether rel is a structurally valid recording path of
// the given kind.
func Correct(rel string, kind Kind) bool {
	_, err := Parse(rel, kind)
	return err == nil
}

// Pad renders n as a zero-padded token of the given width. Values wider
// than the pad are kept intact.
func Pad(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

// RawDir returns the directory holding a subject/session's raw
// recordings, relative to the dataset root.
func RawDir(sub, ses string) string {
	return fmt.Sprintf("sub-%s/ses-%s/eeg", sub, ses)
}

// RawName builds the canonical raw recording filename. A run of 0 omits
// the run token.
func RawName(sub, ses, task string, acq, run int, suffix, ext string, pad int) string {
	name := fmt.Sprintf("sub-%s_ses-%s_task-%s_acq-%s", sub, ses, task, Pad(acq, pad))
	if run > 0 {
		name += "_run-" + Pad(run, pad)
	}
	return name + "_" + suffix + "." + ext
}

// SidecarName returns the JSON sidecar filename paired with a raw
// recording package.
func SidecarName(sub, ses, task string, acq int, pad int) string {
	return RawName(sub, ses, task, acq, 0, "eeg", "json", pad)
}
