package normalize

import (
	"log/slog"

	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/source"
)

// DefaultCount is used for missing or unreadable counters.
const DefaultCount = 0

// Channel builds the channels index document for a channel row.
func Channel(row source.Row) models.ChannelDocument {
	return models.ChannelDocument{
		ID:              String(row.Get("id")),
		Name:            String(row.Get("name")),
		Language:        String(row.Get("language")),
		Description:     String(row.Get("description")),
		SubscriberCount: Int(row.Get("suscriber_count"), DefaultCount),
		Banner:          String(row.Get("banner")),
		CategoryLink:    String(row.Get("category_link")),
	}
}

// Video builds the videos index document for a (possibly enriched) video row.
func Video(row source.Row, dims int) models.VideoDocument {
	id := String(row.Get("id"))
	return models.VideoDocument{
		ID:                   id,
		TitleRaw:             String(row.Get("title_raw")),
		DurationSeconds:      DurationSeconds(row.Get("duration")),
		Topic:                String(row.Get("topic")),
		PublishedAt:          ISODate(row.Get("published_at")),
		ViewCount:            Int(row.Get("view_count"), DefaultCount),
		LikeCount:            Int(row.Get("like_count"), DefaultCount),
		Language:             String(row.Get("language")),
		ChannelID:            String(row.Get("id_channel")),
		Description:          String(row.Get("description")),
		TitleEmbedding:       embeddingField(row, "title_embedding", dims, models.EntityVideo, id),
		DescriptionEmbedding: embeddingField(row, "description_embedding", dims, models.EntityVideo, id),
		TopicEmbedding:       embeddingField(row, "topic_embedding", dims, models.EntityVideo, id),
	}
}

// Comment builds the comments index document for a (possibly enriched) comment row.
func Comment(row source.Row, dims int) models.CommentDocument {
	id := String(row.Get("id"))
	return models.CommentDocument{
		ID:               id,
		VideoID:          String(row.Get("id_video")),
		Text:             String(row.Get("text")),
		PublishedAt:      ISODate(row.Get("published_at")),
		LikeCount:        Int(row.Get("like_count"), DefaultCount),
		SentimentScore:   Int(row.Get("sentiment_score"), DefaultCount),
		SentimentLabel:   String(row.Get("sentiment_label")),
		CommentEmbedding: embeddingField(row, "comment_embedding", dims, models.EntityComment, id),
	}
}

func embeddingField(row source.Row, column string, dims int, entity models.Entity, id string) []float32 {
	vec, status := ParseEmbedding(row.Get(column), dims)
	switch status {
	case EmbeddingZero:
		slog.Warn("[Normalizer] Zero vector discarded",
			slog.String("entity", string(entity)),
			slog.String("id", id),
			slog.String("field", column))
	case EmbeddingMalformed, EmbeddingWrongDims:
		slog.Debug("[Normalizer] Unusable embedding discarded",
			slog.String("entity", string(entity)),
			slog.String("id", id),
			slog.String("field", column),
			slog.String("reason", status.String()))
	}
	return vec
}
