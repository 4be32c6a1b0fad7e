package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/normalize"
)

const (
	maxTopicRunes    = 500
	missingThumbnail = "No thumbnail available"
	defaultLanguage  = "en"
)

// ParseChannels reads a JSON object of display name to channel. Entries without an id,
// name, subscriber count or banner are skipped and counted.
func ParseChannels(r io.Reader) ([]models.ChannelRecord, int, error) {
	var raw map[string]models.ChannelInput
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode channels: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var (
		out     []models.ChannelRecord
		skipped int
	)
	for _, k := range keys {
		c := raw[k]
		if c.ID == "" || c.Name == "" || c.SubscriberCount == nil || c.Banner == "" {
			slog.Warn("[Ingest] Channel missing required fields, skipping",
				slog.String("channel", k))
			skipped++
			continue
		}
		link := c.CustomURL
		if link == "" {
			link = c.Handle
		}
		out = append(out, models.ChannelRecord{
			ID:              c.ID,
			Name:            c.Name,
			Language:        c.Language,
			Description:     c.Description,
			SubscriberCount: normalize.Int(c.SubscriberCount, 0),
			Banner:          c.Banner,
			CategoryLink:    link,
		})
	}
	return out, skipped, nil
}

// ParseVideos reads a JSON list of videos, or a single video object.
func ParseVideos(r io.Reader, now time.Time) ([]models.VideoRecord, int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	data = bytes.TrimSpace(data)

	var items []map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if len(data) > 0 && data[0] == '{' {
		var one map[string]any
		if err := dec.Decode(&one); err != nil {
			return nil, 0, fmt.Errorf("decode videos: %w", err)
		}
		items = []map[string]any{one}
	} else if err := dec.Decode(&items); err != nil {
		return nil, 0, fmt.Errorf("decode videos: %w", err)
	}

	var (
		out     []models.VideoRecord
		skipped int
	)
	for i, v := range items {
		rec, err := videoRecord(v, now)
		if err != nil {
			slog.Warn("[Ingest] Invalid video, skipping",
				slog.Int("position", i+1),
				slog.String("error", err.Error()))
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

func videoRecord(v map[string]any, now time.Time) (models.VideoRecord, error) {
	id := normalize.String(v["video_id"])
	title, hasTitle := v["title"].(string)
	channel := normalize.String(v["id_channel"])
	if id == "" || !hasTitle || channel == "" {
		return models.VideoRecord{}, errors.New("video_id, title and id_channel are required")
	}
	if _, ok := v["video_category_id"]; !ok {
		return models.VideoRecord{}, fmt.Errorf("video %s: video_category_id is required", id)
	}

	summary := normalize.String(v["summary"])
	if summary == "" {
		summary = title
	}

	language := defaultLanguage
	if l, ok := v["language"]; ok {
		language = normalize.String(l)
	}

	return models.VideoRecord{
		ID:             id,
		TitleRaw:       title,
		TitleProcessed: title,
		Description:    normalize.String(v["description"]),
		PublishedAt:    publishedAt(v["published_at"], now),
		Language:       language,
		Duration:       normalize.Int(v["duration"], 0),
		ViewCount:      normalize.Int(v["view_count"], 0),
		LikeCount:      normalize.Int(v["like_count"], 0),
		Thumbnail:      thumbnail(v["thumbnails"]),
		CommentCount:   normalize.Int(v["comment_count"], 0),
		Topic:          truncateRunes(summary, maxTopicRunes),
		ChannelID:      channel,
		CategoryID:     normalize.String(v["video_category_id"]),
	}, nil
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateTime, time.DateOnly}

// publishedAt accepts ISO 8601 text or epoch milliseconds and falls back to now.
func publishedAt(v any, now time.Time) time.Time {
	switch x := v.(type) {
	case string:
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return t
			}
		}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return time.UnixMilli(int64(f))
		}
	case float64:
		return time.UnixMilli(int64(x))
	}
	if v != nil {
		slog.Warn("[Ingest] Unrecognized date, using current time",
			slog.Any("published_at", v))
	}
	return now
}

func thumbnail(v any) string {
	thumbs, ok := v.(map[string]any)
	if !ok {
		return missingThumbnail
	}
	def, ok := thumbs["default"].(map[string]any)
	if !ok {
		return missingThumbnail
	}
	url, ok := def["url"].(string)
	if !ok {
		return missingThumbnail
	}
	return url
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var commentColumns = []string{"id", "text", "published_at", "like_count", "is_possitive", "id_video"}

// ParseComments reads the comments CSV export. Rows without an id or video id are
// skipped and counted; unreadable dates fall back to today.
func ParseComments(r io.Reader, today time.Time) ([]models.CommentRecord, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read comments header: %w", err)
	}
	idx := make(map[string]int, len(commentColumns))
	for _, col := range commentColumns {
		i := slices.Index(header, col)
		if i < 0 {
			return nil, 0, fmt.Errorf("comments file is missing column %q", col)
		}
		idx[col] = i
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var (
		out     []models.CommentRecord
		skipped int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, skipped, nil
		}
		if err != nil {
			return out, skipped, fmt.Errorf("read comments line %d: %w", line, err)
		}
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		id, video := get("id"), get("id_video")
		if id == "" || video == "" {
			slog.Warn("[Ingest] Comment missing required fields, skipping",
				slog.Int("line", line))
			skipped++
			continue
		}
		out = append(out, models.CommentRecord{
			ID:          id,
			Text:        get("text"),
			PublishedAt: commentDate(get("published_at"), day),
			LikeCount:   normalize.Int(get("like_count"), 0),
			IsPositive:  normalize.Int(get("is_possitive"), 0) != 0,
			VideoID:     video,
		})
	}
}

// commentDate keeps the YYYY-MM-DD part of a timestamp.
func commentDate(s string, fallback time.Time) time.Time {
	s, _, _ = strings.Cut(s, "T")
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fallback
	}
	return t
}

// ParseCategories reads a JSON list of {id, title}.
func ParseCategories(r io.Reader) ([]models.CategoryRecord, error) {
	var out []models.CategoryRecord
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}
