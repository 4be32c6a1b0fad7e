package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"time"

	"github.com/spacesedan/ytindex/internal/models"
	"github.com/spacesedan/ytindex/internal/utils"
)

// BulkWriter submits one NDJSON _bulk body.
type BulkWriter interface {
	Bulk(ctx context.Context, body []byte) (models.BulkResponse, error)
}

type Result struct {
	Indexed int `json:"indexed"`
	Errored int `json:"errored"`
}

func (r *Result) add(o Result) {
	r.Indexed += o.Indexed
	r.Errored += o.Errored
}

type Indexer struct {
	writer    BulkWriter
	batchSize int
	timeout   time.Duration
}

// NewIndexer returns an indexer that sends batchSize documents per request, each request
// bounded by timeout (zero means no per-request bound).
func NewIndexer(writer BulkWriter, batchSize int, timeout time.Duration) *Indexer {
	if batchSize <= 0 {
		batchSize = utils.DEFAULT_BATCH_SIZE
	}
	return &Indexer{writer: writer, batchSize: batchSize, timeout: timeout}
}

type encodedDoc struct {
	id     string
	action []byte
	source []byte
}

type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// Index writes every document in docs to index using the document's natural key as _id.
// It never fails: transport errors, rejected batches and per-item failures are all
// folded into the returned counts.
func (ix *Indexer) Index(ctx context.Context, index string, docs iter.Seq[models.Document]) Result {
	var (
		total   Result
		batches int
	)
	buffer := utils.NewBatchBuffer[encodedDoc](ix.batchSize)

	flush := func() {
		batch := buffer.GetAndClear()
		if len(batch) == 0 {
			return
		}
		batches++
		res := ix.submit(ctx, index, batches, batch)
		total.add(res)
		slog.Info("[BulkIndexer] Batch submitted",
			slog.String("index", index),
			slog.Int("batch", batches),
			slog.Int("batch_size", len(batch)),
			slog.Int("batch_indexed", res.Indexed),
			slog.Int("batch_errored", res.Errored),
			slog.Int("total_indexed", total.Indexed),
			slog.Int("total_errored", total.Errored))
	}

	for doc := range docs {
		enc, ok := encode(index, doc)
		if !ok {
			total.Errored++
			continue
		}
		if buffer.Add(enc) {
			flush()
		}
	}
	if buffer.HasData() {
		flush()
	}

	slog.Info("[BulkIndexer] Indexing finished",
		slog.String("index", index),
		slog.Int("batches", batches),
		slog.Int("indexed", total.Indexed),
		slog.Int("errored", total.Errored))
	return total
}

func encode(index string, doc models.Document) (encodedDoc, bool) {
	id := doc.DocumentID()
	if id == "" {
		slog.Warn("[BulkIndexer] Document without identity skipped",
			slog.String("index", index))
		return encodedDoc{}, false
	}
	action, err := json.Marshal(bulkAction{Index: bulkTarget{Index: index, ID: id}})
	if err != nil {
		return encodedDoc{}, false
	}
	source, err := json.Marshal(doc)
	if err != nil {
		slog.Warn("[BulkIndexer] Failed to encode document",
			slog.String("index", index),
			slog.String("id", id),
			slog.String("error", err.Error()))
		return encodedDoc{}, false
	}
	return encodedDoc{id: id, action: action, source: source}, true
}

func (ix *Indexer) submit(ctx context.Context, index string, n int, batch []encodedDoc) Result {
	var body bytes.Buffer
	for _, d := range batch {
		body.Write(d.action)
		body.WriteByte('\n')
		body.Write(d.source)
		body.WriteByte('\n')
	}

	if ix.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.timeout)
		defer cancel()
	}

	res, err := ix.writer.Bulk(ctx, body.Bytes())
	if err != nil {
		slog.Error("[BulkIndexer] Bulk request failed",
			slog.String("index", index),
			slog.Int("batch", n),
			slog.Int("documents", len(batch)),
			slog.String("error", err.Error()))
		return Result{Errored: len(batch)}
	}

	failed := 0
	var sample *models.BulkItemResult
	for _, item := range res.Items {
		for _, r := range item {
			if r.Failed() {
				failed++
				if sample == nil {
					sample = &r
				}
			}
		}
	}
	if failed > len(batch) {
		failed = len(batch)
	}

	if sample != nil {
		attrs := []any{
			slog.String("index", index),
			slog.Int("batch", n),
			slog.Int("failed", failed),
			slog.String("sample_id", sample.ID),
			slog.Int("sample_status", sample.Status),
		}
		if sample.Error != nil {
			attrs = append(attrs,
				slog.String("sample_error_type", sample.Error.Type),
				slog.String("sample_error", sample.Error.Reason))
		}
		slog.Warn("[BulkIndexer] Documents rejected", attrs...)
	}

	return Result{Indexed: len(batch) - failed, Errored: failed}
}
