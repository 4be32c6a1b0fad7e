package models

// Document is anything the bulk indexer can write. DocumentID is the natural key
// and becomes the index _id, so re-syncing a row overwrites its document.
type Document interface {
	DocumentID() string
}

type ChannelDocument struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Language        string `json:"language"`
	Description     string `json:"description"`
	SubscriberCount int64  `json:"suscriber_count"`
	Banner          string `json:"banner"`
	CategoryLink    string `json:"category_link"`
}

func (d ChannelDocument) DocumentID() string { return d.ID }

// VideoDocument embeddings are nil when no usable vector exists; they encode as null.
type VideoDocument struct {
	ID                   string    `json:"id"`
	TitleRaw             string    `json:"title_raw"`
	DurationSeconds      int64     `json:"duration_seconds"`
	Topic                string    `json:"topic"`
	PublishedAt          *string   `json:"published_at"`
	ViewCount            int64     `json:"view_count"`
	LikeCount            int64     `json:"like_count"`
	Language             string    `json:"language"`
	ChannelID            string    `json:"id_channel"`
	Description          string    `json:"description"`
	TitleEmbedding       []float32 `json:"title_embedding"`
	DescriptionEmbedding []float32 `json:"description_embedding"`
	TopicEmbedding       []float32 `json:"topic_embedding"`
}

func (d VideoDocument) DocumentID() string { return d.ID }

type CommentDocument struct {
	ID               string    `json:"id"`
	VideoID          string    `json:"id_video"`
	Text             string    `json:"text"`
	PublishedAt      *string   `json:"published_at"`
	LikeCount        int64     `json:"like_count"`
	SentimentScore   int64     `json:"sentiment_score"`
	SentimentLabel   string    `json:"sentiment_label"`
	CommentEmbedding []float32 `json:"comment_embedding"`
}

func (d CommentDocument) DocumentID() string { return d.ID }
