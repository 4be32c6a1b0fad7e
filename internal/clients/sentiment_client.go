package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spacesedan/ytindex/internal/models"
)

// SentimentServiceClient talks to an HTTP sentiment analysis service that scores batches.
type SentimentServiceClient struct {
	Client   *http.Client
	Endpoint string
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

func NewSentimentServiceClient(endpoint string, timeout time.Duration) *SentimentServiceClient {
	slog.Info("[SentimentClient] Initializing Client",
		slog.String("endpoint", endpoint),
		slog.Duration("timeout", timeout))
	return &SentimentServiceClient{
		Client:   &http.Client{Timeout: timeout},
		Endpoint: endpoint,
		Backoff:  INITIAL_BACKOFF,
	}
}

// DoWithRetry retries transport errors and 5xx responses with exponential backoff.
// build is called per attempt so the request body can be replayed.
func (s *SentimentServiceClient) DoWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := s.Backoff

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		var req *http.Request
		req, err = build()
		if err != nil {
			return nil, err
		}
		resp, err = s.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		slog.Warn("[SentimentClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		if resp != nil {
			resp.Body.Close()
			if err == nil {
				err = fmt.Errorf("status code %d", resp.StatusCode)
			}
			resp = nil
		}

		if attempt == MAX_RETRIES-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	return nil, err
}

func (s *SentimentServiceClient) GetBatchedSentimentAnalysis(ctx context.Context, input models.SentimentAnalysisBatchRequest) (models.SentimentAnalysisBatchResponse, error) {
	var result models.SentimentAnalysisBatchResponse
	slog.Info("[SentimentClient] Requesting sentiment analysis",
		slog.Int("batch_size", len(input)))
	start := time.Now()

	err := s.postJSON(ctx, input, &result)
	if err != nil {
		slog.Error("[SentimentClient] Sentiment Analysis request failed",
			slog.Duration("elapsed", time.Since(start)))
		return result, err
	}

	slog.Info("[SentimentClient] Sentiment Analysis request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (s *SentimentServiceClient) postJSON(ctx context.Context, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	resp, err := s.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)
		return req, nil
	})
	if err != nil {
		slog.Error("[SentimentClient] Failed request after retries",
			slog.String("endpoint", s.Endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sentiment service returned %d: %s", resp.StatusCode, getPreview(respBody).Value.String())
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[SentimentClient] Failed to unmarshal response",
			slog.String("endpoint", s.Endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))

		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
