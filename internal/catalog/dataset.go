// Package catalog holds the queryable in-memory dataset: the loaded
// raw and derivative entry lists, the consolidated metadata table, and
// the ingestion operation for new recording packages.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/bidspath"
	"github.com/nicelab/nicebids/internal/ingest"
	"github.com/nicelab/nicebids/internal/metadata"
	"github.com/nicelab/nicebids/internal/participants"
	"github.com/nicelab/nicebids/internal/subset"
)

// Dataset is built once per construction call: participants, then raw
// files, then derivatives, then the consolidated metadata table.
// ReloadDerivatives is the only supported partial rebuild. A Dataset is
// not safe for concurrent mutation from multiple callers.
type Dataset struct {
	cfg     api.Config
	fs      billy.Filesystem
	pattern *subset.Pattern
	parts   *participants.Table
	dict    map[string]any
	engine  *ingest.Engine

	files  []*bidspath.Entry
	derivs []*bidspath.Entry
	meta   *metadata.Table

	index      *tokenIndex
	derivIndex *tokenIndex
}

// New indexes the dataset under cfg.Root (or cfg.FS when injected).
func New(ctx context.Context, cfg api.Config) (*Dataset, error) {
	fs := cfg.FS
	if fs == nil {
		if cfg.Root == "" {
			return nil, errors.New("catalog: a dataset root is required")
		}
		fs = osfs.New(cfg.Root)
	}

	pattern, err := subset.Build(cfg.Sub, cfg.Ses, cfg.Task, cfg.Acq, cfg.Pad())
	if err != nil {
		return nil, err
	}

	log.Printf("reading participants metadata")
	parts, err := participants.Load(fs)
	if err != nil {
		return nil, err
	}
	if subs := cfg.Sub.Alternatives(); subs != nil {
		keep := make(map[string]bool, len(subs))
		for _, s := range subs {
			keep["sub-"+s] = true
		}
		parts.Restrict(keep)
	}
	dict, err := participants.LoadDictionary(fs)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		cfg:     cfg,
		fs:      fs,
		pattern: pattern,
		parts:   parts,
		dict:    dict,
		engine:  ingest.NewEngine(fs, pattern, parts, cfg.Derivatives, cfg.WorkerCount()),
	}

	log.Printf("loading recording files")
	if d.files, err = d.engine.ReadFiles(ctx); err != nil {
		return nil, err
	}
	d.index = newTokenIndex(d.files)

	derivs, present, err := d.engine.ReadDerivatives(ctx)
	if err != nil {
		return nil, err
	}
	if present {
		d.derivs = derivs
	}
	d.derivIndex = newTokenIndex(d.derivs)

	if d.meta, err = metadata.Consolidate(d.files, parts.Columns()); err != nil {
		return nil, err
	}
	return d, nil
}

// ReloadDerivatives re-reads the derivatives subtree and re-runs
// metadata consolidation. It is the only supported way to observe
// pipeline outputs written after construction. A still-missing
// derivatives tree leaves the previously loaded list untouched.
func (d *Dataset) ReloadDerivatives(ctx context.Context) error {
	derivs, present, err := d.engine.ReadDerivatives(ctx)
	if err != nil {
		return err
	}
	if present {
		d.derivs = derivs
		d.derivIndex = newTokenIndex(d.derivs)
	}
	meta, err := metadata.Consolidate(d.files, d.parts.Columns())
	if err != nil {
		return err
	}
	d.meta = meta
	return nil
}

// Table returns the consolidated metadata table.
func (d *Dataset) Table() *metadata.Table {
	return d.meta
}

// ToTable returns a filtered copy of the consolidated metadata table.
func (d *Dataset) ToTable(f api.Filter) *metadata.Table {
	return d.meta.Filter(f, d.cfg.Pad())
}

// Participants returns the participant table.
func (d *Dataset) Participants() *participants.Table {
	return d.parts
}

// Dictionary returns the participants.json column descriptions, or nil
// when the dataset has no data dictionary.
func (d *Dataset) Dictionary() map[string]any {
	return d.dict
}

// Len returns the raw entry count.
func (d *Dataset) Len() int {
	return len(d.files)
}

// At returns the i-th raw entry in discovery order.
func (d *Dataset) At(i int) *bidspath.Entry {
	return d.files[i]
}

// Entries returns the raw entries in discovery order. The slice is a
// copy; the entries are shared and must not be mutated.
func (d *Dataset) Entries() []*bidspath.Entry {
	return append([]*bidspath.Entry(nil), d.files...)
}

// DerivativeEntries returns the loaded derivative entries.
func (d *Dataset) DerivativeEntries() []*bidspath.Entry {
	return append([]*bidspath.Entry(nil), d.derivs...)
}

func (d *Dataset) String() string {
	return fmt.Sprintf("Subjects: %d, files: %d", d.parts.Len(), len(d.files))
}
