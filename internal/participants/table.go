// Package participants reads and writes the participant table
// (participants.tsv) and its optional data dictionary
// (participants.json) at the dataset root.
package participants

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
)

const (
	TableFile      = "participants.tsv"
	DictionaryFile = "participants.json"

	// IDColumn is the primary-key column of the participant table.
	IDColumn = "participant_id"
)

var ErrNotFound = errors.New("participant not found")

// Row is one participant's metadata, keyed by column name. The
// participant_id itself is kept out of the row and used as the map key
// in Table.
type Row map[string]string

// Table is the in-memory participant table. Row and column order from
// the TSV is preserved so a rewrite round-trips cleanly.
type Table struct {
	columns []string // without participant_id
	ids     []string // "sub-01" form, file order
	rows    map[string]Row
}

// Load reads participants.tsv from the root of fs.
func Load(fs billy.Filesystem) (*Table, error) {
	data, err := util.ReadFile(fs, TableFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TableFile, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", TableFile, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: empty table", TableFile)
	}

	header := records[0]
	idx := -1
	for i, col := range header {
		if col == IDColumn {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("parse %s: missing %s column", TableFile, IDColumn)
	}

	t := &Table{rows: make(map[string]Row, len(records)-1)}
	for i, col := range header {
		if i != idx {
			t.columns = append(t.columns, col)
		}
	}
	for _, rec := range records[1:] {
		id := rec[idx]
		row := make(Row, len(t.columns))
		for i, col := range header {
			if i != idx {
				row[col] = rec[i]
			}
		}
		t.ids = append(t.ids, id)
		t.rows[id] = row
	}
	return t, nil
}

// Columns returns the metadata column names in table order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// IDs returns the participant identifiers ("sub-01" form) in table order.
func (t *Table) IDs() []string {
	return append([]string(nil), t.ids...)
}

// Len returns the participant count.
func (t *Table) Len() int {
	return len(t.ids)
}

// Get returns the metadata row for a participant id.
func (t *Table) Get(id string) (Row, error) {
	row, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return row, nil
}

// Restrict drops every participant whose id is not in keep. Used when a
// subject subset is supplied at construction.
func (t *Table) Restrict(keep map[string]bool) {
	ids := t.ids[:0]
	for _, id := range t.ids {
		if keep[id] {
			ids = append(ids, id)
		} else {
			delete(t.rows, id)
		}
	}
	t.ids = ids
}

// SetFlag sets a boolean column for one participant, adding the column
// if the table does not have it yet. Other participants keep an empty
// value for a freshly added column.
func (t *Table) SetFlag(id, column string, v bool) error {
	row, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	known := false
	for _, col := range t.columns {
		if col == column {
			known = true
			break
		}
	}
	if !known {
		t.columns = append(t.columns, column)
	}
	row[column] = fmt.Sprintf("%t", v)
	return nil
}

// Save rewrites participants.tsv. The table is written to a temporary
// file first and renamed over the original so a failure never leaves a
// truncated table behind.
func (t *Table) Save(fs billy.Filesystem) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'

	if err := w.Write(append([]string{IDColumn}, t.columns...)); err != nil {
		return fmt.Errorf("write %s header: %w", TableFile, err)
	}
	for _, id := range t.ids {
		row := t.rows[id]
		rec := make([]string, 0, len(t.columns)+1)
		rec = append(rec, id)
		for _, col := range t.columns {
			rec = append(rec, row[col])
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s row %s: %w", TableFile, id, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", TableFile, err)
	}

	tmp, err := util.TempFile(fs, "", TableFile)
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("write temp table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("close temp table: %w", err)
	}
	if err := fs.Rename(tmpName, TableFile); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", TableFile, err)
	}
	return nil
}

// LoadDictionary reads the optional participants.json column
// descriptions. A missing file is not an error and yields nil.
func LoadDictionary(fs billy.Filesystem) (map[string]any, error) {
	data, err := util.ReadFile(fs, DictionaryFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", DictionaryFile, err)
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", DictionaryFile, err)
	}
	dict, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: expected a JSON object, got %T", DictionaryFile, parsed)
	}
	return dict, nil
}
