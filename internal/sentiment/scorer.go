package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/source"
)

// Score is an opaque sentiment judgement for one text.
type Score struct {
	Label string
	Stars int64
}

// Scorer returns one Score per input text, in order.
type Scorer interface {
	Name() string
	Score(ctx context.Context, texts []string) ([]Score, error)
}

// BatchAnalyzer is implemented by the sentiment service client.
type BatchAnalyzer interface {
	GetBatchedSentimentAnalysis(ctx context.Context, input models.SentimentAnalysisBatchRequest) (models.SentimentAnalysisBatchResponse, error)
}

// Remote delegates scoring to an HTTP sentiment service that answers with compound
// polarity scores.
type Remote struct {
	Client BatchAnalyzer
}

func (Remote) Name() string { return "remote" }

func (r Remote) Score(ctx context.Context, texts []string) ([]Score, error) {
	req := make(models.SentimentAnalysisBatchRequest, len(texts))
	for i, t := range texts {
		req[i] = models.SentimentAnalysisRequest{ContentID: strconv.Itoa(i), Text: t}
	}

	res, err := r.Client.GetBatchedSentimentAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]Score, len(texts))
	seen := make([]bool, len(texts))
	for _, item := range res {
		i, err := strconv.Atoi(item.ContentID)
		if err != nil || i < 0 || i >= len(texts) {
			continue
		}
		label := item.SentimentLabel
		if label == "" {
			label = Label(item.SentimentScore)
		}
		out[i] = Score{Label: label, Stars: Stars(item.SentimentScore)}
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("sentiment service returned no score for item %d", i)
		}
	}
	return out, nil
}

const (
	scoreColumn = "sentiment_score"
	labelColumn = "sentiment_label"
	textColumn  = "text"
)

// FillMissing scores the rows whose sentiment score is null, batchSize texts per
// call. Rows are updated in place. A failing batch is logged and left unscored.
func FillMissing(ctx context.Context, scorer Scorer, rows []source.Row, batchSize int) int {
	if scorer == nil {
		return 0
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	var pending []int
	for i, r := range rows {
		if r.Get(scoreColumn) == nil {
			pending = append(pending, i)
		}
	}

	filled := 0
	for start := 0; start < len(pending); start += batchSize {
		batch := pending[start:min(start+batchSize, len(pending))]
		texts := make([]string, len(batch))
		for j, idx := range batch {
			if s, ok := rows[idx].Get(textColumn).(string); ok {
				texts[j] = s
			}
		}

		scores, err := scorer.Score(ctx, texts)
		if err != nil || len(scores) != len(batch) {
			msg := "score count mismatch"
			if err != nil {
				msg = err.Error()
			}
			slog.Warn("[Sentiment] Scoring batch failed",
				slog.String("scorer", scorer.Name()),
				slog.Int("batch_size", len(batch)),
				slog.String("error", msg))
			continue
		}

		for j, idx := range batch {
			rows[idx].Set(scoreColumn, scores[j].Stars)
			if rows[idx].Get(labelColumn) == nil {
				rows[idx].Set(labelColumn, scores[j].Label)
			}
			filled++
		}
	}

	if len(pending) > 0 {
		slog.Info("[Sentiment] Filled missing comment sentiment",
			slog.String("scorer", scorer.Name()),
			slog.Int("missing", len(pending)),
			slog.Int("filled", filled))
	}
	return filled
}

// New returns the scorer named kind: "none" (nil scorer), "vader" or "remote".
func New(kind string, client BatchAnalyzer) (Scorer, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "vader":
		return VADER{}, nil
	case "remote":
		if client == nil {
			return nil, fmt.Errorf("remote scorer needs a sentiment service client")
		}
		return Remote{Client: client}, nil
	}
	return nil, fmt.Errorf("unknown sentiment scorer %q", kind)
}
