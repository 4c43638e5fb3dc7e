package catalog

import (
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/bidspath"
)

// tokenIndex answers point queries over a fixed entry list. Each entry
// contributes one posting per parsed component ("sub-01", "run-2", ...),
// so matching is exact per field: acq 1 can never match acq-10 the way
// a substring test over the path string would.
type tokenIndex struct {
	n      int
	tokens map[string]*roaring.Bitmap
}

func newTokenIndex(entries []*bidspath.Entry) *tokenIndex {
	idx := &tokenIndex{n: len(entries), tokens: make(map[string]*roaring.Bitmap)}
	for i, e := range entries {
		idx.add("sub-"+e.Sub, i)
		idx.add("ses-"+e.Ses, i)
		idx.add("task-"+e.Task, i)
		idx.add("acq-"+e.Acq, i)
		idx.add("run-"+strconv.Itoa(e.EffectiveRun()), i)
		idx.add("suffix-"+e.Suffix, i)
		idx.add("ext-"+e.Ext, i)
		if e.Derivative != "" {
			idx.add("deriv-"+e.Derivative, i)
		}
	}
	return idx
}

func (idx *tokenIndex) add(token string, i int) {
	bm, ok := idx.tokens[token]
	if !ok {
		bm = roaring.New()
		idx.tokens[token] = bm
	}
	bm.Add(uint32(i))
}

// query returns the matching entry positions in ascending order. All
// supplied fields are ANDed; an absent field imposes no constraint.
func (idx *tokenIndex) query(f api.Filter, pad int, derivative string) []uint32 {
	var wanted []string
	if f.Sub != "" {
		wanted = append(wanted, "sub-"+f.Sub)
	}
	if f.Ses != "" {
		wanted = append(wanted, "ses-"+f.Ses)
	}
	if f.Task != "" {
		wanted = append(wanted, "task-"+f.Task)
	}
	if f.Acq != 0 {
		wanted = append(wanted, "acq-"+bidspath.Pad(f.Acq, pad))
	}
	if f.Run != 0 {
		wanted = append(wanted, "run-"+strconv.Itoa(f.Run))
	}
	if f.Suffix != "" {
		wanted = append(wanted, "suffix-"+f.Suffix)
	}
	if f.Ext != "" {
		wanted = append(wanted, "ext-"+strings.TrimPrefix(f.Ext, "."))
	}
	if derivative != "" {
		wanted = append(wanted, "deriv-"+derivative)
	}

	if len(wanted) == 0 {
		all := make([]uint32, idx.n)
		for i := range all {
			all[i] = uint32(i)
		}
		return all
	}

	bms := make([]*roaring.Bitmap, 0, len(wanted))
	for _, tok := range wanted {
		bm, ok := idx.tokens[tok]
		if !ok {
			return nil
		}
		bms = append(bms, bm)
	}
	return roaring.FastAnd(bms...).ToArray()
}

// Get returns every raw entry whose parsed components match the filter.
// Integer acq values are treated identically to their zero-padded token
// form; run compares against the effective run (absent token = run 1).
func (d *Dataset) Get(f api.Filter) []*bidspath.Entry {
	return pick(d.files, d.index.query(f, d.cfg.Pad(), ""))
}

// GetDerivatives returns every derivative entry of the named pipeline
// matching the filter. The pipeline name is compared exactly.
func (d *Dataset) GetDerivatives(derivative string, f api.Filter) []*bidspath.Entry {
	return pick(d.derivs, d.derivIndex.query(f, d.cfg.Pad(), derivative))
}

func pick(entries []*bidspath.Entry, positions []uint32) []*bidspath.Entry {
	out := make([]*bidspath.Entry, 0, len(positions))
	for _, i := range positions {
		out = append(out, entries[i])
	}
	return out
}
