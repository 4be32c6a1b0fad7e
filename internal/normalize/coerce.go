package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jackc/pgx/v5/pgtype"
)

// The coercions below are total: malformed input resolves to a default, never an error.

// Int coerces v to an integer. nil, NaN and unparseable values yield def.
func Int(v any, def int64) int64 {
	switch x := v.(type) {
	case nil:
		return def
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return uintToInt(uint64(x), def)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintToInt(x, def)
	case float32:
		return floatToInt(float64(x), def)
	case float64:
		return floatToInt(x, def)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return parseInt(x, def)
	case []byte:
		return parseInt(string(x), def)
	case json.Number:
		return parseInt(x.String(), def)
	case pgtype.Numeric:
		return numericToInt(x, def)
	case pgtype.Int8:
		if !x.Valid {
			return def
		}
		return x.Int64
	case pgtype.Float8:
		if !x.Valid {
			return def
		}
		return floatToInt(x.Float64, def)
	}
	return def
}

// String coerces v to text. nil becomes the empty string.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case pgtype.Text:
		if !x.Valid {
			return ""
		}
		return x.String
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return ""
		}
		if f, err := x.Float64Value(); err == nil && f.Valid {
			return formatFloat(f.Float64, 64)
		}
		return ""
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// ISODate renders v as an RFC 3339 UTC timestamp with at most millisecond precision.
// Values that cannot be read as a point in time yield nil.
func ISODate(v any) *string {
	t, ok := toTime(v)
	if !ok {
		return nil
	}
	s := t.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
	return &s
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return toTime(*x)
	case pgtype.Timestamptz:
		return x.Time, x.Valid && x.InfinityModifier == pgtype.Finite
	case pgtype.Timestamp:
		return x.Time, x.Valid && x.InfinityModifier == pgtype.Finite
	case pgtype.Date:
		return x.Time, x.Valid && x.InfinityModifier == pgtype.Finite
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case int, int32, int64:
		// epoch milliseconds, matching the index date format
		return time.UnixMilli(Int(x, 0)), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(x)), true
	}
	return time.Time{}, false
}

// DurationSeconds converts a duration-like value to whole seconds.
// Strings are only understood in HH:MM:SS form; everything unreadable is 0.
func DurationSeconds(v any) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case time.Duration:
		return int64(x / time.Second)
	case pgtype.Time:
		if !x.Valid {
			return 0
		}
		return x.Microseconds / int64(time.Second/time.Microsecond)
	case pgtype.Interval:
		if !x.Valid {
			return 0
		}
		days := int64(x.Months)*30 + int64(x.Days)
		return days*86400 + x.Microseconds/int64(time.Second/time.Microsecond)
	case time.Time:
		return int64(x.Hour()*3600 + x.Minute()*60 + x.Second())
	case float32:
		return floatToInt(float64(x), 0)
	case float64:
		return floatToInt(x, 0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, pgtype.Numeric:
		return Int(x, 0)
	case string:
		return clockToSeconds(x)
	case []byte:
		return clockToSeconds(string(x))
	}
	return 0
}

func clockToSeconds(s string) int64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0
	}
	var hms [3]int64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		hms[i] = int64(f)
	}
	return hms[0]*3600 + hms[1]*60 + hms[2]
}

func parseInt(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return floatToInt(f, def)
}

func floatToInt(f float64, def int64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return def
	}
	return int64(f)
}

func uintToInt(u uint64, def int64) int64 {
	if u > math.MaxInt64 {
		return def
	}
	return int64(u)
}

func numericToInt(n pgtype.Numeric, def int64) int64 {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return def
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return def
	}
	return floatToInt(f.Float64, def)
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
