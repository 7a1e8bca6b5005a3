package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sellout-ingest/internal/gateway"
	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/pipeerror"
)

// persist writes accepted records in batches no larger than the configured
// persistence batch size, with its own concurrency bound (independent of
// chunk concurrency, so the downstream connection pool is never exhausted).
// It returns the number of records that could not be persisted.
func (p *Pipeline) persist(ctx context.Context, uploadID string, records []models.SalesRecord, log logging.Logger) int {
	if len(records) == 0 {
		return 0
	}

	var batches [][]models.SalesRecord
	for start := 0; start < len(records); start += p.opts.PersistBatchSize {
		end := start + p.opts.PersistBatchSize
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}

	sem := make(chan struct{}, p.opts.PersistConcurrency)
	var wg sync.WaitGroup
	var unpersisted int64

	for _, batch := range batches {
		sem <- struct{}{}
		wg.Add(1)
		go func(batch []models.SalesRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := p.insertWithRetry(ctx, uploadID, batch); err != nil {
				atomic.AddInt64(&unpersisted, int64(len(batch)))
				log.WithError(err).Error("Batch not persisted",
					logging.Field{Key: "records", Value: len(batch)})
			}
		}(batch)
	}
	wg.Wait()

	return int(unpersisted)
}

// insertWithRetry retries transient persistence failures with linear
// backoff. Non-transient errors fail the batch immediately.
func (p *Pipeline) insertWithRetry(ctx context.Context, uploadID string, batch []models.SalesRecord) error {
	attempts := p.opts.PersistRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = p.store.InsertBatch(ctx, uploadID, batch)
		if lastErr == nil {
			return nil
		}
		if !gateway.IsTransient(lastErr) {
			break
		}
		if attempt == attempts {
			break
		}

		backoff := time.Duration(attempt) * p.opts.PersistBackoff
		p.logger.WithError(lastErr).Warn("Transient persistence failure, retrying",
			logging.Field{Key: "upload_id", Value: uploadID},
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "backoff", Value: backoff.String()})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &pipeerror.PersistenceError{
		UploadID: uploadID,
		Records:  len(batch),
		Attempts: attempts,
		Err:      lastErr,
	}
}
