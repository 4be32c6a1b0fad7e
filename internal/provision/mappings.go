package provision

const dateFormat = "strict_date_optional_time||epoch_millis"

// Mapping is an index creation body: settings plus mappings.
type Mapping map[string]any

func settings(knn bool) map[string]any {
	s := map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	}
	if knn {
		s["knn"] = true
	}
	return map[string]any{"index": s}
}

func keyword() map[string]any { return map[string]any{"type": "keyword"} }

func text() map[string]any { return map[string]any{"type": "text"} }

func integer() map[string]any { return map[string]any{"type": "integer"} }

func long() map[string]any { return map[string]any{"type": "long"} }

func date() map[string]any { return map[string]any{"type": "date", "format": dateFormat} }

// textWithKeyword is full-text searchable and sortable/aggregatable through .keyword.
func textWithKeyword() map[string]any {
	return map[string]any{
		"type": "text",
		"fields": map[string]any{
			"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
		},
	}
}

// vector is a dense vector compared by cosine similarity.
func vector(dims int) map[string]any {
	return map[string]any{
		"type":      "knn_vector",
		"dimension": dims,
		"method": map[string]any{
			"name":       "hnsw",
			"space_type": "cosinesimil",
			"engine":     "lucene",
		},
	}
}

func ChannelsMapping() Mapping {
	return Mapping{
		"settings": settings(false),
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":              keyword(),
				"name":            textWithKeyword(),
				"language":        keyword(),
				"description":     text(),
				"suscriber_count": long(),
				"banner":          keyword(),
				"category_link":   keyword(),
			},
		},
	}
}

func VideosMapping(dims int) Mapping {
	return Mapping{
		"settings": settings(true),
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":                    keyword(),
				"title_raw":             textWithKeyword(),
				"duration_seconds":      integer(),
				"topic":                 textWithKeyword(),
				"published_at":          date(),
				"view_count":            long(),
				"like_count":            long(),
				"language":              keyword(),
				"id_channel":            keyword(),
				"description":           text(),
				"title_embedding":       vector(dims),
				"description_embedding": vector(dims),
				"topic_embedding":       vector(dims),
			},
		},
	}
}

func CommentsMapping(dims int) Mapping {
	return Mapping{
		"settings": settings(true),
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":                keyword(),
				"id_video":          keyword(),
				"text":              text(),
				"published_at":      date(),
				"like_count":        long(),
				"sentiment_score":   integer(),
				"sentiment_label":   keyword(),
				"comment_embedding": vector(dims),
			},
		},
	}
}
