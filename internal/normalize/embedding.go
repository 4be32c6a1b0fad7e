package normalize

import (
	"math"
	"strconv"
	"strings"
)

// EmbeddingStatus says why a vector was or was not kept.
type EmbeddingStatus int

const (
	EmbeddingOK EmbeddingStatus = iota
	EmbeddingMissing
	EmbeddingMalformed
	EmbeddingWrongDims
	EmbeddingZero
)

func (s EmbeddingStatus) String() string {
	switch s {
	case EmbeddingOK:
		return "ok"
	case EmbeddingMissing:
		return "missing"
	case EmbeddingMalformed:
		return "malformed"
	case EmbeddingWrongDims:
		return "wrong_dims"
	case EmbeddingZero:
		return "zero_vector"
	default:
		return "unknown"
	}
}

// Embedding returns a dims-long vector, or nil when v carries no usable signal.
func Embedding(v any, dims int) []float32 {
	vec, _ := ParseEmbedding(v, dims)
	return vec
}

// ParseEmbedding reads "[a, b, ...]" text or a float slice. Vectors of the wrong
// length, with non-finite elements, or with every element zero are rejected.
func ParseEmbedding(v any, dims int) ([]float32, EmbeddingStatus) {
	var (
		vec []float32
		ok  bool
	)
	switch x := v.(type) {
	case nil:
		return nil, EmbeddingMissing
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, EmbeddingMissing
		}
		vec, ok = parseVector(x)
	case []byte:
		vec, ok = parseVector(string(x))
	case []float32:
		vec, ok = append([]float32(nil), x...), true
	case []float64:
		vec = make([]float32, len(x))
		for i, f := range x {
			vec[i] = float32(f)
		}
		ok = true
	case []any:
		vec = make([]float32, len(x))
		ok = true
		for i, e := range x {
			f, fine := toFloat(e)
			if !fine {
				ok = false
				break
			}
			vec[i] = f
		}
	case float64:
		// pandas-style NaN for an absent join value
		if math.IsNaN(x) {
			return nil, EmbeddingMissing
		}
		return nil, EmbeddingMalformed
	default:
		return nil, EmbeddingMalformed
	}

	if !ok {
		return nil, EmbeddingMalformed
	}
	for _, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, EmbeddingMalformed
		}
	}
	if len(vec) != dims {
		return nil, EmbeddingWrongDims
	}
	if isZero(vec) {
		return nil, EmbeddingZero
	}
	return vec, EmbeddingOK
}

func parseVector(s string) ([]float32, bool) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, false
		}
		vec[i] = float32(f)
	}
	return vec, true
}

func toFloat(v any) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int:
		return float32(x), true
	case int64:
		return float32(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 32)
		return float32(f), err == nil
	}
	return 0, false
}

func isZero(vec []float32) bool {
	for _, f := range vec {
		if f != 0 {
			return false
		}
	}
	return true
}
