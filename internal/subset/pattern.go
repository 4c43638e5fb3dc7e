// Package subset compiles user-supplied subject/session/task/acquisition
// filters into a single anchored pattern over root-relative recording
// paths. Alternation is segment-scoped: a filter value only matches
// inside its own path token, never as a raw substring elsewhere.
package subset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/bidspath"
)

// tokenAny matches one well-formed token value when a filter is absent.
const tokenAny = `[A-Za-z0-9]+`

// Pattern is the compiled subset filter. It must be rebuilt whenever a
// filter changes; Build is cheap.
type Pattern struct {
	raw  *regexp.Regexp
	tail string
}

// Build resolves each selector to a list of literal alternatives
// (wildcard when unrestricted, acquisition integers zero-padded to pad)
// and compiles the composite raw-path pattern.
func Build(sub, ses, task api.Selector, acq api.AcqSelector, pad int) (*Pattern, error) {
	subs := alternation(sub.Alternatives())
	sess := alternation(ses.Alternatives())
	tasks := alternation(task.Alternatives())

	var acqVals []string
	for _, n := range acq.Ints() {
		acqVals = append(acqVals, bidspath.Pad(n, pad))
	}
	acqs := alternation(acqVals)

	// Trailing run/suffix/extension are accepted unfiltered; they are
	// constrained later by the query engine, not the subset.
	tail := fmt.Sprintf(`sub-%s/ses-%s/eeg/sub-%[1]s_ses-%[2]s_task-%s_acq-%s_[^/]*\.[^/]*$`,
		subs, sess, tasks, acqs)

	raw, err := regexp.Compile("^" + tail)
	if err != nil {
		return nil, fmt.Errorf("compile subset pattern: %w", err)
	}
	return &Pattern{raw: raw, tail: tail}, nil
}

// MatchRaw reports whether a root-relative raw path is in the subset.
func (p *Pattern) MatchRaw(rel string) bool {
	return p.raw.MatchString(rel)
}

// Derivative compiles the derivative-path variant of the pattern with
// the given pipeline allow-list (nil accepts every pipeline).
func (p *Pattern) Derivative(allow []string) (*regexp.Regexp, error) {
	pipes := alternation(allow)
	re, err := regexp.Compile(`^derivatives/` + pipes + `/` + p.tail)
	if err != nil {
		return nil, fmt.Errorf("compile derivative subset pattern: %w", err)
	}
	return re, nil
}

func alternation(vals []string) string {
	if len(vals) == 0 {
		return "(" + tokenAny + ")"
	}
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return "(" + strings.Join(quoted, "|") + ")"
}
