package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/ytindex/internal/models"
)

func TestSentimentServiceClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var in models.SentimentAnalysisBatchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		out := make(models.SentimentAnalysisBatchResponse, len(in))
		for i, req := range in {
			out[i] = models.SentimentAnalysisResponse{ContentID: req.ContentID, SentimentScore: 0.5, SentimentLabel: "positive"}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	client := NewSentimentServiceClient(srv.URL, time.Second)
	client.Backoff = time.Millisecond

	res, err := client.GetBatchedSentimentAnalysis(context.Background(), models.SentimentAnalysisBatchRequest{
		{ContentID: "c1", Text: "nice"},
		{ContentID: "c2", Text: "great"},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "c2", res[1].ContentID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSentimentServiceClient_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSentimentServiceClient(srv.URL, time.Second)
	client.Backoff = time.Millisecond

	_, err := client.GetBatchedSentimentAnalysis(context.Background(), models.SentimentAnalysisBatchRequest{{ContentID: "c1"}})
	require.Error(t, err)
	assert.Equal(t, int32(MAX_RETRIES), calls.Load())
}

func TestSentimentServiceClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"bad input"}`)
	}))
	defer srv.Close()

	client := NewSentimentServiceClient(srv.URL, time.Second)
	_, err := client.GetBatchedSentimentAnalysis(context.Background(), models.SentimentAnalysisBatchRequest{{ContentID: "c1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), calls.Load())
}
