// Package scheduler partitions extracted rows into bounded chunks and
// drives their normalization with bounded concurrency, so large uploads
// never block the caller's serving path. Small inputs are processed inline
// without chunking overhead; both strategies sit behind one entry point and
// produce the same multiset of results.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/pipeerror"
)

// NormalizeFunc converts one raw record; exactly one of the returns is
// non-nil. The scheduler is agnostic of the normalizer so tests can inject
// failing or counting implementations.
type NormalizeFunc func(models.RawRecord) (*models.SalesRecord, *models.RejectedRow)

// Options tune one processing run.
type Options struct {
	// ChunkSize is the number of rows per chunk.
	ChunkSize int
	// MaxConcurrentChunks bounds how many chunks normalize at once.
	MaxConcurrentChunks int
	// InlineThreshold is the row count at or below which the input is
	// processed synchronously without chunking.
	InlineThreshold int
}

// Defaults mirror the configuration package's defaults; they apply when an
// option is left at zero.
const (
	DefaultChunkSize           = 500
	DefaultMaxConcurrentChunks = 4
	DefaultInlineThreshold     = 1000
)

func (o Options) withDefaults() Options {
	if o.ChunkSize < 1 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxConcurrentChunks < 1 {
		o.MaxConcurrentChunks = DefaultMaxConcurrentChunks
	}
	if o.InlineThreshold < 0 {
		o.InlineThreshold = DefaultInlineThreshold
	}
	return o
}

// Result is the merged outcome of one run: accepted records plus the
// rejection side channel. Within a chunk row order is preserved; across
// chunks no order is guaranteed.
type Result struct {
	Accepted []models.SalesRecord
	Rejected []models.RejectedRow
}

// Scheduler coordinates chunked normalization.
type Scheduler struct {
	opts   Options
	logger logging.Logger
}

// New creates a Scheduler. Zero ChunkSize and MaxConcurrentChunks fall back
// to defaults; an InlineThreshold of zero forces chunking for any input.
func New(opts Options, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Scheduler{opts: opts.withDefaults(), logger: logger}
}

// Process normalizes all records, inline below the threshold and chunked
// with a bounded worker pool above it. Cancellation is honored between
// chunk dispatches: in-flight chunks run to completion and their results
// are discarded when ctx was canceled before the merge.
func (s *Scheduler) Process(ctx context.Context, records []models.RawRecord, normalize NormalizeFunc) (Result, error) {
	if len(records) <= s.opts.InlineThreshold {
		return s.processInline(records, normalize), nil
	}
	return s.processChunked(ctx, records, normalize)
}

func (s *Scheduler) processInline(records []models.RawRecord, normalize NormalizeFunc) Result {
	var res Result
	for _, raw := range records {
		rec, rej := normalize(raw)
		if rej != nil {
			res.Rejected = append(res.Rejected, *rej)
			continue
		}
		res.Accepted = append(res.Accepted, *rec)
	}
	return res
}

func (s *Scheduler) processChunked(ctx context.Context, records []models.RawRecord, normalize NormalizeFunc) (Result, error) {
	chunks := partition(records, s.opts.ChunkSize)
	s.logger.Debug("Dispatching chunks",
		logging.Field{Key: "rows", Value: len(records)},
		logging.Field{Key: "chunks", Value: len(chunks)},
		logging.Field{Key: "max_concurrent", Value: s.opts.MaxConcurrentChunks})

	results := make([]Result, len(chunks))
	sem := make(chan struct{}, s.opts.MaxConcurrentChunks)
	var wg sync.WaitGroup

	canceled := false
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			// Already-dispatched chunks run to completion; nothing
			// new is started and all results are discarded below.
			canceled = true
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, rows []models.RawRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = s.runChunk(idx, rows, normalize)
		}(i, chunk)
	}
	wg.Wait()

	if canceled || ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	// Chunk-local results are merged exactly once, so no counter is
	// contended while chunks are in flight.
	var merged Result
	for _, r := range results {
		merged.Accepted = append(merged.Accepted, r.Accepted...)
		merged.Rejected = append(merged.Rejected, r.Rejected...)
	}
	return merged, nil
}

// runChunk normalizes one chunk, isolating panics: a failed chunk rejects
// all of its rows with cause chunk-processing-error and leaves siblings
// untouched.
func (s *Scheduler) runChunk(idx int, rows []models.RawRecord, normalize NormalizeFunc) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := &pipeerror.ChunkError{
				ChunkIndex: idx,
				Rows:       len(rows),
				Err:        fmt.Errorf("panic: %v", r),
			}
			s.logger.WithError(err).Error("Chunk processing failed",
				logging.Field{Key: "chunk", Value: idx},
				logging.Field{Key: "rows", Value: len(rows)})

			rejected := make([]models.RejectedRow, len(rows))
			for i, raw := range rows {
				rejected[i] = models.RejectedRow{
					Cause:      models.CauseChunkProcessingError,
					Provenance: raw.Provenance,
				}
			}
			res = Result{Rejected: rejected}
		}
	}()

	for _, raw := range rows {
		rec, rej := normalize(raw)
		if rej != nil {
			res.Rejected = append(res.Rejected, *rej)
			continue
		}
		res.Accepted = append(res.Accepted, *rec)
	}
	return res
}

func partition(records []models.RawRecord, size int) [][]models.RawRecord {
	var chunks [][]models.RawRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}
