package enrich

import (
	"math"
	"strconv"
	"strings"

	"github.com/spacesedan/ytindex/internal/source"
)

// LeftJoin attaches the side table's columns to every row. Rows are never dropped and
// never mutated; unmatched rows get the side columns with nil values. A column the row
// already carries with a non-nil value is left alone.
func LeftJoin(rows []source.Row, keyColumn string, table *SideTable) []source.Row {
	out := make([]source.Row, len(rows))
	if table == nil {
		for i, r := range rows {
			out[i] = r.Clone()
		}
		return out
	}
	cols := table.Columns()
	for i, r := range rows {
		joined := r.Clone()
		values, _ := table.Lookup(r.Get(keyColumn))
		for c, col := range cols {
			if existing, ok := joined.Lookup(col); ok && existing != nil {
				continue
			}
			var v any
			if values != nil {
				v = values[c]
			}
			joined.Set(col, v)
		}
		out[i] = joined
	}
	return out
}

// Matched counts rows whose key is present in the table.
func Matched(rows []source.Row, keyColumn string, table *SideTable) int {
	if table == nil {
		return 0
	}
	n := 0
	for _, r := range rows {
		if _, ok := table.Lookup(r.Get(keyColumn)); ok {
			n++
		}
	}
	return n
}

// JoinKey renders an identity so that 123, "123" and 123.0 compare equal.
func JoinKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return trimIntegral(strings.TrimSpace(x))
	case []byte:
		return trimIntegral(strings.TrimSpace(string(x)))
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return floatKey(float64(x))
	case float64:
		return floatKey(x)
	case interface{ String() string }:
		return strings.TrimSpace(x.String())
	}
	return ""
}

func floatKey(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// trimIntegral turns "123.0" into "123"; anything else is returned as is.
func trimIntegral(s string) string {
	digits, frac, ok := strings.Cut(s, ".")
	if !ok || digits == "" || strings.Trim(frac, "0") != "" {
		return s
	}
	if strings.Trim(digits, "0123456789") != "" {
		return s
	}
	return digits
}
