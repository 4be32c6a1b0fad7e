package models

// BulkResponse is the subset of the _bulk response the indexer reads.
type BulkResponse struct {
	Took   int                         `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]BulkItemResult `json:"items"`
}

type BulkItemResult struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Error  *BulkItemError `json:"error,omitempty"`
}

type BulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Failed reports whether the item was rejected.
func (r BulkItemResult) Failed() bool {
	return r.Error != nil || r.Status >= 300
}
