package api

import (
	"runtime"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// DefaultPadWidth is the zero-pad width used for acq/run path tokens
// when Config.PadWidth is left unset.
const DefaultPadWidth = 2

// Selector restricts one path component (sub, ses or task) of the
// dataset subset. The zero value is unrestricted and matches any value.
type Selector struct {
	values []string
}

// Any returns an unrestricted selector.
func Any() Selector {
	return Selector{}
}

// Values returns a selector matching exactly the given literal values.
func Values(vals ...string) Selector {
	return Selector{values: append([]string(nil), vals...)}
}

// CSV parses a comma-separated value list ("01,02" or "01, 02") into a
// selector. An empty string yields an unrestricted selector.
func CSV(spec string) Selector {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Selector{}
	}
	parts := strings.Split(spec, ",")
	vals := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			vals = append(vals, p)
		}
	}
	return Selector{values: vals}
}

// Unrestricted reports whether the selector matches any value.
func (s Selector) Unrestricted() bool {
	return len(s.values) == 0
}

// Alternatives returns the literal values the selector allows,
// or nil when unrestricted.
func (s Selector) Alternatives() []string {
	if len(s.values) == 0 {
		return nil
	}
	return append([]string(nil), s.values...)
}

// AcqSelector restricts the acquisition component. Acquisitions are
// supplied as integers and rendered to zero-padded tokens at resolve
// time, so acq 1 and token "01" are the same value under width 2.
type AcqSelector struct {
	values []int
}

// AnyAcq returns an unrestricted acquisition selector.
func AnyAcq() AcqSelector {
	return AcqSelector{}
}

// Acqs returns a selector allowing exactly the given acquisitions.
func Acqs(ns ...int) AcqSelector {
	return AcqSelector{values: append([]int(nil), ns...)}
}

// Unrestricted reports whether the selector matches any acquisition.
func (s AcqSelector) Unrestricted() bool {
	return len(s.values) == 0
}

// Ints returns the raw integer values, or nil when unrestricted.
func (s AcqSelector) Ints() []int {
	if len(s.values) == 0 {
		return nil
	}
	return append([]int(nil), s.values...)
}

// Config is the construction surface of a Dataset.
type Config struct {
	// Root is the dataset root directory (holds participants.tsv).
	// Ignored when FS is set.
	Root string

	// FS overrides the backing filesystem. All paths are resolved
	// relative to its root. Defaults to the OS filesystem chrooted
	// at Root; tests typically inject a memfs.
	FS billy.Filesystem

	// Subset filters. Zero values match everything.
	Sub  Selector
	Ses  Selector
	Task Selector
	Acq  AcqSelector

	// Derivatives is an allow-list of derivative pipeline names.
	// Empty accepts every pipeline under derivatives/.
	Derivatives []string

	// PadWidth is the zero-pad width for acq/run tokens. Defaults to
	// DefaultPadWidth.
	PadWidth int

	// Workers bounds the parallel entry-load pool. Defaults to the
	// host's available parallelism. Never read from ambient state
	// after construction.
	Workers int
}

// Pad returns the effective zero-pad width.
func (c Config) Pad() int {
	if c.PadWidth > 0 {
		return c.PadWidth
	}
	return DefaultPadWidth
}

// WorkerCount returns the effective load-pool size.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Filter is a point-query filter over loaded entries and the
// consolidated metadata table. Zero-valued fields impose no constraint.
type Filter struct {
	Sub    string
	Ses    string
	Task   string
	Suffix string
	Ext    string
	Acq    int // 0 = unset; compared against the zero-padded token
	Run    int // 0 = unset; compared against the effective run
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return f == Filter{}
}
