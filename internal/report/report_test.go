package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/ytindex/internal/models"
)

func sampleSummary() *Summary {
	s := NewSummary(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Duration = 3 * time.Second
	s.Entities = []EntityStats{
		{Entity: models.EntityChannel, Index: models.IndexChannels, Read: 2, Indexed: 2},
		{Entity: models.EntityVideo, Index: models.IndexVideos, Read: 5, Indexed: 4, Errored: 1},
		{Entity: models.EntityComment, Index: models.IndexComments, Err: errors.New("relation does not exist")},
	}
	n := int64(2)
	s.IndexCounts[models.IndexChannels] = &n
	s.IndexCounts[models.IndexVideos] = nil
	return s
}

func TestSummary_OKAndTotals(t *testing.T) {
	s := sampleSummary()
	assert.False(t, s.OK())
	indexed, errored := s.Totals()
	assert.Equal(t, 6, indexed)
	assert.Equal(t, 1, errored)

	s.Entities = s.Entities[:1]
	assert.True(t, s.OK())
	assert.NotEmpty(t, s.RunID)
}

func TestSummary_JSON(t *testing.T) {
	raw, err := json.Marshal(sampleSummary())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	entities := got["entities"].([]any)
	require.Len(t, entities, 3)
	assert.Equal(t, "relation does not exist", entities[2].(map[string]any)["error"])
	assert.NotContains(t, entities[0].(map[string]any), "error")

	counts := got["index_counts"].(map[string]any)
	assert.Equal(t, float64(2), counts["channels"])
	assert.Nil(t, counts["videos"])
}

type fakeStore struct {
	last, history string
	payload       []byte
	keep          int64
}

func (f *fakeStore) RecordRun(_ context.Context, last, history string, payload []byte, keep int64) error {
	f.last, f.history, f.payload, f.keep = last, history, payload, keep
	return nil
}

type fakePublisher struct {
	topic      string
	key, value []byte
	err        error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func TestValkeySink(t *testing.T) {
	store := &fakeStore{}
	s := sampleSummary()
	require.NoError(t, ValkeySink{Store: store}.Publish(context.Background(), s))

	assert.Equal(t, LastRunKey, store.last)
	assert.Equal(t, RunHistoryKey, store.history)
	assert.Equal(t, int64(RunHistorySize), store.keep)
	assert.Contains(t, string(store.payload), s.RunID)
}

func TestKafkaSink(t *testing.T) {
	pub := &fakePublisher{}
	s := sampleSummary()
	require.NoError(t, KafkaSink{Publisher: pub, Topic: "ytindex.sync.completed"}.Publish(context.Background(), s))

	assert.Equal(t, "ytindex.sync.completed", pub.topic)
	assert.Equal(t, s.RunID, string(pub.key))
	assert.True(t, json.Valid(pub.value))
}

type countingSink struct {
	calls int
	err   error
}

func (c *countingSink) Name() string { return "counting" }

func (c *countingSink) Publish(context.Context, *Summary) error {
	c.calls++
	return c.err
}

func TestPublish_ContinuesPastFailures(t *testing.T) {
	failing := &countingSink{err: errors.New("down")}
	ok := &countingSink{}
	Publish(context.Background(), sampleSummary(), LogSink{}, failing, ok)

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestPushgatewaySink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/metrics/job/"+PushJob))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "ytindex_documents_indexed")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, PushgatewaySink{URL: srv.URL}.Publish(context.Background(), sampleSummary()))
}

func TestPushgatewaySink_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, PushgatewaySink{URL: srv.URL}.Publish(context.Background(), sampleSummary()))
}
