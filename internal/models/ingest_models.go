package models

import "time"

// ChannelInput is one entry of the channels export, keyed by display name in the file.
type ChannelInput struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Language        string `json:"language"`
	Description     string `json:"description"`
	SubscriberCount any    `json:"subscriber_count"`
	Banner          string `json:"banner"`
	CustomURL       string `json:"custom_url"`
	Handle          string `json:"handle"`
}

type ChannelRecord struct {
	ID              string
	Name            string
	Language        string
	Description     string
	SubscriberCount int64
	Banner          string
	CategoryLink    string
}

type VideoRecord struct {
	ID             string
	TitleRaw       string
	TitleProcessed string
	Description    string
	PublishedAt    time.Time
	Language       string
	Duration       int64
	ViewCount      int64
	LikeCount      int64
	Thumbnail      string
	CommentCount   int64
	Topic          string
	ChannelID      string
	CategoryID     string
}

type CommentRecord struct {
	ID          string
	Text        string
	PublishedAt time.Time
	LikeCount   int64
	IsPositive  bool
	VideoID     string
}

type CategoryRecord struct {
	ID   string `json:"id"`
	Name string `json:"title"`
}
