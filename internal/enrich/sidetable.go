package enrich

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
)

// SideTable holds precomputed columns keyed by entity identity.
type SideTable struct {
	key     string
	columns []string
	rows    map[string][]any
}

// NewSideTable returns an empty table carrying the given columns.
func NewSideTable(keyColumn string, columns ...string) *SideTable {
	return &SideTable{
		key:     keyColumn,
		columns: append([]string(nil), columns...),
		rows:    make(map[string][]any),
	}
}

func (t *SideTable) KeyColumn() string { return t.key }

func (t *SideTable) Columns() []string { return append([]string(nil), t.columns...) }

func (t *SideTable) Len() int { return len(t.rows) }

// Add stores values for key unless the key is already present. Reports whether it was stored.
func (t *SideTable) Add(key any, values ...any) bool {
	k := JoinKey(key)
	if k == "" {
		return false
	}
	if _, seen := t.rows[k]; seen {
		return false
	}
	row := make([]any, len(t.columns))
	copy(row, values)
	t.rows[k] = row
	return true
}

// Lookup returns the side values for key, in Columns order.
func (t *SideTable) Lookup(key any) ([]any, bool) {
	v, ok := t.rows[JoinKey(key)]
	return v, ok
}

// LoadSideTable reads header-first CSV files in order and keeps the first row seen
// for each key. Files that do not exist are skipped with a warning.
func LoadSideTable(keyColumn string, columns []string, paths ...string) (*SideTable, error) {
	table := NewSideTable(keyColumn, columns...)
	for _, path := range paths {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("[Enrichment] Side-data file not found, skipping",
				slog.String("path", path))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open side data %s: %w", path, err)
		}
		added, dupes, err := table.readCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read side data %s: %w", path, err)
		}
		slog.Info("[Enrichment] Loaded side data",
			slog.String("path", path),
			slog.Int("rows", added),
			slog.Int("duplicates", dupes))
	}
	return table, nil
}

func (t *SideTable) readCSV(r io.Reader) (added, dupes int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	keyIdx := slices.Index(header, t.key)
	if keyIdx < 0 {
		return 0, 0, fmt.Errorf("missing key column %q", t.key)
	}
	idx := make([]int, len(t.columns))
	for i, col := range t.columns {
		idx[i] = slices.Index(header, col)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return added, dupes, nil
		}
		if err != nil {
			return added, dupes, err
		}
		if keyIdx >= len(rec) {
			continue
		}
		values := make([]any, len(t.columns))
		for i, j := range idx {
			// absent or empty cells are treated as missing values
			if j >= 0 && j < len(rec) && rec[j] != "" {
				values[i] = rec[j]
			}
		}
		if t.Add(rec[keyIdx], values...) {
			added++
		} else {
			dupes++
		}
	}
}
