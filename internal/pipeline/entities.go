package pipeline

import (
	"github.com/spacesedan/ytindex/config"
	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/normalize"
	"github.com/spacesedan/ytindex/internal/provision"
	"github.com/spacesedan/ytindex/internal/source"
)

// SideData describes one set of flat files joined onto an entity by id.
type SideData struct {
	Name      string
	KeyColumn string
	Columns   []string
	Paths     []string
}

// EntitySpec is everything that differs between the synced entity types.
type EntitySpec struct {
	Entity    models.Entity
	Index     string
	Query     string
	Mapping   provision.Mapping
	SideData  []SideData
	Normalize func(source.Row) models.Document
	// Sentiment enables the scorer fallback for rows without a sentiment score.
	Sentiment bool
}

// Entities returns the channel, video and comment specs in sync order.
func Entities(cfg config.SyncConfig) []EntitySpec {
	dims := cfg.EmbeddingDims
	return []EntitySpec{
		{
			Entity:  models.EntityChannel,
			Index:   models.IndexChannels,
			Query:   source.ChannelQuery,
			Mapping: provision.ChannelsMapping(),
			Normalize: func(r source.Row) models.Document {
				return normalize.Channel(r)
			},
		},
		{
			Entity:  models.EntityVideo,
			Index:   models.IndexVideos,
			Query:   source.VideoQuery,
			Mapping: provision.VideosMapping(dims),
			SideData: []SideData{{
				Name:      "video embeddings",
				KeyColumn: "id",
				Columns:   []string{"title_embedding", "description_embedding", "topic_embedding"},
				Paths:     cfg.VideoEmbeddingFiles,
			}},
			Normalize: func(r source.Row) models.Document {
				return normalize.Video(r, dims)
			},
		},
		{
			Entity:  models.EntityComment,
			Index:   models.IndexComments,
			Query:   source.CommentQuery,
			Mapping: provision.CommentsMapping(dims),
			SideData: []SideData{
				{
					Name:      "comment embeddings",
					KeyColumn: "id",
					Columns:   []string{"comment_embedding"},
					Paths:     cfg.CommentEmbeddingFiles,
				},
				{
					Name:      "comment sentiment",
					KeyColumn: "id",
					Columns:   []string{"sentiment_label", "sentiment_score"},
					Paths:     cfg.CommentSentimentFiles,
				},
			},
			Normalize: func(r source.Row) models.Document {
				return normalize.Comment(r, dims)
			},
			Sentiment: true,
		},
	}
}
