package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/ytindex/config"
	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/provision"
	"github.com/spacesedan/ytindex/internal/sentiment"
	"github.com/spacesedan/ytindex/internal/source"
)

type fakeReader struct {
	rows map[string][]source.Row
	errs map[string]error
}

func (f *fakeReader) ReadAll(_ context.Context, query string) ([]source.Row, error) {
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.rows[query], nil
}

type fakeStore struct {
	existing   map[string]bool
	created    []string
	createErr  error
	refreshErr error
	countErr   error
	// docs holds every indexed source document by index and id.
	docs map[string]map[string]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: map[string]bool{}, docs: map[string]map[string]map[string]any{}}
}

func (f *fakeStore) IndexExists(_ context.Context, index string) (bool, error) {
	return f.existing[index], nil
}

func (f *fakeStore) CreateIndex(_ context.Context, index string, _ []byte) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, index)
	f.existing[index] = true
	return nil
}

func (f *fakeStore) Bulk(_ context.Context, body []byte) (models.BulkResponse, error) {
	var res models.BulkResponse
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	var target struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	for line := 0; sc.Scan(); line++ {
		if line%2 == 0 {
			if err := json.Unmarshal(sc.Bytes(), &target); err != nil {
				return res, err
			}
			continue
		}
		var src map[string]any
		if err := json.Unmarshal(sc.Bytes(), &src); err != nil {
			return res, err
		}
		if f.docs[target.Index.Index] == nil {
			f.docs[target.Index.Index] = map[string]map[string]any{}
		}
		f.docs[target.Index.Index][target.Index.ID] = src
		res.Items = append(res.Items, map[string]models.BulkItemResult{
			"index": {Index: target.Index.Index, ID: target.Index.ID, Status: 201},
		})
	}
	return res, nil
}

func (f *fakeStore) Refresh(context.Context, ...string) error { return f.refreshErr }

func (f *fakeStore) Count(_ context.Context, index string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.docs[index])), nil
}

func vec(dims int, v string) string {
	parts := make([]string, dims)
	for i := range parts {
		parts[i] = v
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func testConfig(t *testing.T) config.SyncConfig {
	dir := t.TempDir()
	videos := writeFile(t, dir, "videos.csv",
		"id,title_embedding,description_embedding,topic_embedding\n"+
			`v1,"`+vec(4, "0.5")+`","`+vec(4, "0")+`","[1,2]"`+"\n")
	comments := writeFile(t, dir, "comments.csv",
		"id,comment_embedding\n"+`10,"`+vec(4, "0.1")+`"`+"\n")
	sentimentFile := writeFile(t, dir, "sentiment.csv",
		"id,sentiment_label,sentiment_score\n11,negative,1\n")

	return config.SyncConfig{
		EmbeddingDims:         4,
		BatchSize:             2,
		VideoEmbeddingFiles:   []string{videos},
		CommentEmbeddingFiles: []string{comments, filepath.Join(dir, "missing.csv")},
		CommentSentimentFiles: []string{sentimentFile},
	}
}

func sourceRows() map[string][]source.Row {
	return map[string][]source.Row{
		source.ChannelQuery: {
			source.NewRow(source.Field{Name: "id", Value: "c1"}, source.Field{Name: "suscriber_count", Value: int64(10)}),
			source.NewRow(source.Field{Name: "id", Value: "c2"}, source.Field{Name: "suscriber_count", Value: nil}),
		},
		source.VideoQuery: {
			source.NewRow(
				source.Field{Name: "id", Value: "v1"},
				source.Field{Name: "duration", Value: "02:00"},
				source.Field{Name: "like_count", Value: nil},
			),
			source.NewRow(source.Field{Name: "id", Value: "v2"}, source.Field{Name: "duration", Value: "00:01:05"}),
		},
		source.CommentQuery: {
			source.NewRow(
				source.Field{Name: "id", Value: int64(10)},
				source.Field{Name: "text", Value: "I love it, wonderful!"},
				source.Field{Name: "sentiment_score", Value: nil},
			),
			source.NewRow(
				source.Field{Name: "id", Value: int64(11)},
				source.Field{Name: "text", Value: "bad"},
				source.Field{Name: "sentiment_score", Value: nil},
			),
			source.NewRow(
				source.Field{Name: "id", Value: int64(12)},
				source.Field{Name: "text", Value: "ok"},
				source.Field{Name: "sentiment_score", Value: int64(3)},
			),
		},
	}
}

func TestRun_SyncsEveryEntity(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	store.existing[models.IndexChannels] = true

	p := New(&fakeReader{rows: sourceRows()}, store, Entities(cfg), Options{
		BatchSize: cfg.BatchSize,
		Scorer:    sentiment.VADER{},
	})
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{models.IndexVideos, models.IndexComments}, store.created)
	assert.True(t, summary.OK())
	require.Len(t, summary.Entities, 3)
	for _, e := range summary.Entities {
		assert.Equal(t, e.Read, e.Indexed, string(e.Entity))
	}
	require.NotNil(t, summary.IndexCounts[models.IndexComments])
	assert.Equal(t, int64(3), *summary.IndexCounts[models.IndexComments])

	v1 := store.docs[models.IndexVideos]["v1"]
	assert.Equal(t, float64(0), v1["duration_seconds"])
	assert.Equal(t, float64(0), v1["like_count"])
	assert.Len(t, v1["title_embedding"], 4)
	assert.Nil(t, v1["description_embedding"])
	assert.Nil(t, v1["topic_embedding"])

	v2 := store.docs[models.IndexVideos]["v2"]
	assert.Equal(t, float64(65), v2["duration_seconds"])
	assert.Contains(t, v2, "title_embedding")
	assert.Nil(t, v2["title_embedding"])

	comments := store.docs[models.IndexComments]
	assert.Len(t, comments["10"]["comment_embedding"], 4)
	assert.Equal(t, "positive", comments["10"]["sentiment_label"])
	assert.Equal(t, "negative", comments["11"]["sentiment_label"])
	assert.Equal(t, float64(1), comments["11"]["sentiment_score"])
	assert.Equal(t, float64(3), comments["12"]["sentiment_score"])
}

func TestRun_IsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	p := New(&fakeReader{rows: sourceRows()}, store, Entities(cfg), Options{BatchSize: 500})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.created, 3)
	assert.Equal(t, int64(2), *second.IndexCounts[models.IndexVideos])
}

func TestRun_ReadFailureSkipsOnlyThatEntity(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	reader := &fakeReader{
		rows: sourceRows(),
		errs: map[string]error{source.VideoQuery: errors.New(`relation "public.video" does not exist`)},
	}

	summary, err := New(reader, store, Entities(cfg), Options{BatchSize: 500}).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.OK())
	assert.Error(t, summary.Entities[1].Err)
	assert.Equal(t, 2, summary.Entities[0].Indexed)
	assert.Equal(t, 3, summary.Entities[2].Indexed)
	assert.Empty(t, store.docs[models.IndexVideos])
}

func TestRun_MalformedSideDataFailsEntity(t *testing.T) {
	cfg := testConfig(t)
	cfg.VideoEmbeddingFiles = []string{writeFile(t, t.TempDir(), "bad.csv", "video_id,title_embedding\nv1,[1]\n")}

	summary, err := New(&fakeReader{rows: sourceRows()}, newFakeStore(), Entities(cfg), Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, summary.Entities[1].Err)
	assert.NoError(t, summary.Entities[2].Err)
}

func TestRun_ProvisioningFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("cluster_block_exception")

	_, err := New(&fakeReader{rows: sourceRows()}, store, Entities(testConfig(t)), Options{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, provision.ErrIndexProvisioning)
	assert.Empty(t, store.docs)
}

func TestRun_RefreshAndCountFailuresAreNotFatal(t *testing.T) {
	store := newFakeStore()
	store.refreshErr = errors.New("timeout")
	store.countErr = errors.New("timeout")

	summary, err := New(&fakeReader{rows: sourceRows()}, store, Entities(testConfig(t)), Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.OK())
	assert.Contains(t, summary.IndexCounts, models.IndexVideos)
	assert.Nil(t, summary.IndexCounts[models.IndexVideos])
}
