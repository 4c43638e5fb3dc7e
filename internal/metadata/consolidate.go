package metadata

import (
	"errors"
	"fmt"

	"github.com/nicelab/nicebids/internal/bidspath"
)

var (
	// ErrSingleRun marks a group with exactly one recording whose run
	// is not 1: a lone file must be the run-1 baseline.
	ErrSingleRun = errors.New("single recording must be run 1")

	// ErrInconsistent marks a group whose recordings disagree on a
	// non-run metadata column.
	ErrInconsistent = errors.New("metadata inconsistent across runs")
)

// Consolidate folds the raw entry list into one table row per
// subject/session/task/acquisition group. participantCols fixes the
// relative order of the metadata columns behind the grouping columns.
//
// Validation is all-or-nothing: any offending group aborts with an
// error naming its key and no table is produced. With no entries the
// result is an empty table that still carries the grouping columns.
func Consolidate(entries []*bidspath.Entry, participantCols []string) (*Table, error) {
	if len(entries) == 0 {
		return &Table{Columns: append([]string(nil), GroupingColumns...)}, nil
	}

	columns := buildColumns(participantCols)

	rows := make([]Row, len(entries))
	keys := make([]Key, len(entries))
	for i, e := range entries {
		rows[i] = buildRow(e)
		keys[i] = Key{
			Participant: "sub-" + e.Sub,
			Ses:         e.Ses,
			Task:        e.Task,
			Acq:         e.Acq,
		}
	}

	// Group row indices by key, keeping first-occurrence order.
	groups := make(map[Key][]int, len(rows))
	var order []Key
	for i, k := range keys {
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		idx := groups[k]
		if len(idx) == 1 {
			if run := rows[idx[0]][RunColumn].(int); run != 1 {
				return nil, fmt.Errorf("%w: %s has run %d", ErrSingleRun, k, run)
			}
			continue
		}
		first := rows[idx[0]]
		for _, i := range idx[1:] {
			if !equalExceptRun(first, rows[i], columns) {
				return nil, fmt.Errorf("%w: %s", ErrInconsistent, k)
			}
		}
	}

	// Collapse each group to its first row. Validation has already
	// shown the dropped rows identical on every non-run column, so
	// which run number survives is the only ambiguity; first occurrence
	// in discovery order wins, matching the collapse convention.
	t := &Table{Columns: columns}
	for _, k := range order {
		t.Rows = append(t.Rows, rows[groups[k][0]])
	}

	parseDates(t)
	return t, nil
}

// buildColumns puts the grouping columns first, then run and the
// participant columns in their original relative order.
func buildColumns(participantCols []string) []string {
	columns := append([]string(nil), GroupingColumns...)
	columns = append(columns, RunColumn)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}
	for _, c := range participantCols {
		if !seen[c] {
			columns = append(columns, c)
			seen[c] = true
		}
	}
	return columns
}

func buildRow(e *bidspath.Entry) Row {
	row := make(Row, len(e.Metadata)+len(GroupingColumns)+1)
	for k, v := range e.Metadata {
		row[k] = v
	}
	row["participant_id"] = "sub-" + e.Sub
	row["ses"] = e.Ses
	row["task"] = e.Task
	row["acq"] = e.Acq
	row[RunColumn] = e.EffectiveRun()
	return row
}

func equalExceptRun(a, b Row, columns []string) bool {
	for _, col := range columns {
		if col == RunColumn {
			continue
		}
		if a[col] != b[col] {
			return false
		}
	}
	return true
}

// parseDates reinterprets values of *date* columns as timestamps where
// parseable; unparsable values stay as-is.
func parseDates(t *Table) {
	for _, col := range t.Columns {
		if !dateColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			if s, ok := row[col].(string); ok {
				if ts, ok := parseDate(s); ok {
					row[col] = ts
				}
			}
		}
	}
}
