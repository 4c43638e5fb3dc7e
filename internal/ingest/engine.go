// Package ingest discovers recording files under a dataset root,
// validates them against the naming convention and the subset pattern,
// and loads them into entries on a bounded worker pool.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/nicelab/nicebids/internal/bidspath"
	"github.com/nicelab/nicebids/internal/participants"
	"github.com/nicelab/nicebids/internal/subset"
)

// DerivativesDir is the derivative subtree name under the dataset root.
const DerivativesDir = "derivatives"

// ErrUnknownParticipant marks a structurally valid recording whose
// subject is missing from the participant table. A file with an unknown
// owner is a data-integrity failure, never a silent skip.
var ErrUnknownParticipant = errors.New("recording owner missing from participant table")

// Engine drives discovery and loading for one dataset.
type Engine struct {
	fs      billy.Filesystem
	pattern *subset.Pattern
	parts   *participants.Table
	allow   []string // derivative pipeline allow-list, nil = all
	workers int
}

func NewEngine(fs billy.Filesystem, pattern *subset.Pattern, parts *participants.Table, allow []string, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{fs: fs, pattern: pattern, parts: parts, allow: allow, workers: workers}
}

type candidate struct {
	rel  string
	comp bidspath.Components
	meta participants.Row
}

// ReadFiles enumerates raw recordings under sub-*/ses-*/eeg/, discards
// structurally invalid names, keeps paths matching the subset pattern,
// attaches the owning participant's metadata and loads the surviving
// candidates in parallel. Result order follows enumeration order and is
// deterministic for a fixed input set.
func (e *Engine) ReadFiles(ctx context.Context) ([]*bidspath.Entry, error) {
	var cands []candidate
	for _, sub := range e.dirNames(".", "sub-") {
		for _, ses := range e.dirNames(sub, "ses-") {
			eegDir := path.Join(sub, ses, "eeg")
			for _, name := range e.fileNames(eegDir) {
				rel := path.Join(eegDir, name)
				comp, err := bidspath.Parse(rel, bidspath.Raw)
				if err != nil {
					continue // not a recording
				}
				if !e.pattern.MatchRaw(rel) {
					continue
				}
				meta, err := e.parts.Get("sub-" + comp.Sub)
				if err != nil {
					return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, rel)
				}
				cands = append(cands, candidate{rel: rel, comp: comp, meta: meta})
			}
		}
	}
	return e.load(ctx, cands)
}

// ReadDerivatives enumerates derivatives/<pipeline>/sub-*/ses-*/eeg/*,
// restricted to the pipeline allow-list, using the permissive
// derivative classifier mode. The second result reports whether a
// derivatives tree exists at all; when it does not, the call is a no-op.
func (e *Engine) ReadDerivatives(ctx context.Context) ([]*bidspath.Entry, bool, error) {
	if _, err := e.fs.Stat(DerivativesDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("no %s folder, skipping derivative read", DerivativesDir)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat %s: %w", DerivativesDir, err)
	}

	derivRe, err := e.pattern.Derivative(e.allow)
	if err != nil {
		return nil, true, err
	}

	var cands []candidate
	for _, pipe := range e.dirNames(DerivativesDir, "") {
		pipeDir := path.Join(DerivativesDir, pipe)
		for _, sub := range e.dirNames(pipeDir, "sub-") {
			for _, ses := range e.dirNames(path.Join(pipeDir, sub), "ses-") {
				eegDir := path.Join(pipeDir, sub, ses, "eeg")
				for _, name := range e.fileNames(eegDir) {
					rel := path.Join(eegDir, name)
					comp, err := bidspath.Parse(rel, bidspath.Derivative)
					if err != nil {
						continue
					}
					if !derivRe.MatchString(rel) {
						continue
					}
					meta, err := e.parts.Get("sub-" + comp.Sub)
					if err != nil {
						return nil, true, fmt.Errorf("%w: %s", ErrUnknownParticipant, rel)
					}
					cands = append(cands, candidate{rel: rel, comp: comp, meta: meta})
				}
			}
		}
	}

	entries, err := e.load(ctx, cands)
	return entries, true, err
}

// load constructs entries on a bounded pool, preserving candidate order
// by index. A single failing load fails the whole batch.
func (e *Engine) load(ctx context.Context, cands []candidate) ([]*bidspath.Entry, error) {
	if len(cands) == 0 {
		return []*bidspath.Entry{}, nil
	}

	entries := make([]*bidspath.Entry, len(cands))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries[i] = bidspath.NewEntry(c.rel, c.comp, c.meta)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return entries, nil
}

// dirNames lists sorted subdirectory names of dir with the given name
// prefix. Unreadable directories yield nothing; missing directories are
// simply empty.
func (e *Engine) dirNames(dir, prefix string) []string {
	infos, err := e.fs.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() && (prefix == "" || strings.HasPrefix(info.Name(), prefix)) {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (e *Engine) fileNames(dir string) []string {
	infos, err := e.fs.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names
}
