// Package metadata consolidates per-recording metadata into one table
// keyed by subject/session/task/acquisition and answers exact-value
// filters over it.
package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/bidspath"
)

// GroupingColumns lead the consolidated table, in this order.
var GroupingColumns = []string{"participant_id", "ses", "task", "acq"}

// RunColumn carries the canonical run number of each group.
const RunColumn = "run"

// Row maps column name to value. Values are strings from the
// participant table, ints for run, and time.Time for parsed dates.
type Row map[string]any

// Table is the consolidated metadata table. Columns fixes the column
// order; Rows never share maps with callers.
type Table struct {
	Columns []string
	Rows    []Row
}

// Key identifies one subject/session/task/acquisition group.
type Key struct {
	Participant string
	Ses         string
	Task        string
	Acq         string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, ses-%s, task-%s, acq-%s)", k.Participant, k.Ses, k.Task, k.Acq)
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Filter returns a copy of the table keeping only rows that match every
// supplied field exactly. Acquisition integers are compared against the
// zero-padded token form; run against the stored run number. The source
// table is never mutated.
func (t *Table) Filter(f api.Filter, pad int) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		if f.Sub != "" && row["participant_id"] != "sub-"+f.Sub {
			continue
		}
		if f.Ses != "" && row["ses"] != f.Ses {
			continue
		}
		if f.Task != "" && row["task"] != f.Task {
			continue
		}
		if f.Acq != 0 && row["acq"] != bidspath.Pad(f.Acq, pad) {
			continue
		}
		if f.Run != 0 && row[RunColumn] != f.Run {
			continue
		}
		out.Rows = append(out.Rows, cloneRow(row))
	}
	return out
}

// WriteTSV renders the table as tab-separated values.
func (t *Table) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			rec[i] = formatValue(row[col])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// dateColumn reports whether a column holds date-typed values by the
// naming convention of the participant table.
func dateColumn(name string) bool {
	return strings.Contains(name, "date")
}

// dateLayouts are tried in order when reinterpreting date columns.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
