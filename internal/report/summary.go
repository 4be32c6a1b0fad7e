package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/spacesedan/ytindex/internal/models"
)

// EntityStats is the outcome of syncing one entity type.
type EntityStats struct {
	Entity  models.Entity
	Index   string
	Read    int
	Indexed int
	Errored int
	// Err is set when the entity could not be processed at all.
	Err error
}

func (s EntityStats) Failed() bool {
	return s.Err != nil || s.Errored > 0
}

func (s EntityStats) MarshalJSON() ([]byte, error) {
	out := struct {
		Entity  models.Entity `json:"entity"`
		Index   string        `json:"index"`
		Read    int           `json:"read"`
		Indexed int           `json:"indexed"`
		Errored int           `json:"errored"`
		Error   string        `json:"error,omitempty"`
	}{s.Entity, s.Index, s.Read, s.Indexed, s.Errored, ""}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}

type Summary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Entities  []EntityStats `json:"entities"`
	// IndexCounts holds the post-refresh document count per index; nil means unknown.
	IndexCounts map[string]*int64 `json:"index_counts"`
}

func NewSummary(startedAt time.Time) *Summary {
	return &Summary{
		RunID:       uuid.NewString(),
		StartedAt:   startedAt,
		IndexCounts: map[string]*int64{},
	}
}

// OK reports whether every entity was read and indexed without errors.
func (s *Summary) OK() bool {
	for _, e := range s.Entities {
		if e.Failed() {
			return false
		}
	}
	return true
}

func (s *Summary) Totals() (indexed, errored int) {
	for _, e := range s.Entities {
		indexed += e.Indexed
		errored += e.Errored
	}
	return indexed, errored
}
