package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/bidspath"
	"github.com/nicelab/nicebids/internal/ingest"
)

// ErrExists marks an Add for a subject/session/task/acquisition that
// already has data. The check runs before any filesystem mutation.
var ErrExists = errors.New("data already exists")

// Add ingests a new raw recording package: it copies the zip archive to
// the canonical destination, extracts it there, deletes the copied
// archive, marks the subject's task as present in the participant table
// (rewritten atomically) and writes the setup sidecar.
//
// The in-memory catalog is not updated; construct a new Dataset to
// observe the added recording through Get and ToTable.
func (d *Dataset) Add(ctx context.Context, archive, sub, ses, task string, acq int, setup string) error {
	if sub == "" || ses == "" || task == "" || acq < 1 {
		return errors.New("add: sub, ses, task and a positive acq are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Validate the owner before touching the filesystem so a failure
	// never leaves partially applied state behind.
	id := "sub-" + sub
	if _, err := d.parts.Get(id); err != nil {
		return err
	}

	pad := d.cfg.Pad()
	conflict := len(d.Get(api.Filter{Sub: sub, Ses: ses, Task: task, Acq: acq})) != 0
	if !conflict {
		// The in-memory list is stale after a previous Add; the
		// destination directory is the source of truth for repeats.
		conflict = d.onDisk(sub, ses, task, acq, pad)
	}
	if conflict {
		return fmt.Errorf("%w for sub-%s ses-%s task-%s acq-%s",
			ErrExists, sub, ses, task, bidspath.Pad(acq, pad))
	}

	destDir := bidspath.RawDir(sub, ses)
	name := bidspath.RawName(sub, ses, task, acq, 0, "eeg", "zip", pad)
	if err := ingest.InstallArchive(d.fs, archive, destDir, name); err != nil {
		return fmt.Errorf("install archive: %w", err)
	}

	if err := d.parts.SetFlag(id, task, true); err != nil {
		return fmt.Errorf("flag %s for task %s: %w", id, task, err)
	}
	if err := d.parts.Save(d.fs); err != nil {
		return fmt.Errorf("persist participant table: %w", err)
	}

	sidecar := path.Join(destDir, bidspath.SidecarName(sub, ses, task, acq, pad))
	payload := oj.JSON(map[string]any{"setup": setup}, 4)
	if err := util.WriteFile(d.fs, sidecar, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", sidecar, err)
	}
	return nil
}

// onDisk reports whether the destination directory already holds a
// recording for the task/acquisition.
func (d *Dataset) onDisk(sub, ses, task string, acq, pad int) bool {
	dir := bidspath.RawDir(sub, ses)
	if _, err := d.fs.Stat(path.Join(dir, bidspath.SidecarName(sub, ses, task, acq, pad))); err == nil {
		return true
	}
	infos, err := d.fs.ReadDir(dir)
	if err != nil {
		return false
	}
	acqTok := bidspath.Pad(acq, pad)
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		comp, err := bidspath.Parse(path.Join(dir, info.Name()), bidspath.Raw)
		if err != nil {
			continue
		}
		if comp.Task == task && comp.Acq == acqTok {
			return true
		}
	}
	return false
}
