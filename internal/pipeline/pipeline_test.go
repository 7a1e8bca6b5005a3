package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellout-ingest/internal/gateway"
	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/pipeerror"
	"sellout-ingest/internal/profile"
)

const flatProfileYAML = `
code: acme
display_name: ACME Retail
currency: EUR
filename_patterns:
  - "(?i)acme"
content_signatures:
  - "EAN"
  - "Amount"
header_row: 0
data_start_row: 1
required_fields:
  - product_ean
fields:
  reseller:
    rule: fixed
    value: ACME
  product_ean:
    rule: column
    column: EAN
  month:
    rule: column
    column: Month
  year:
    rule: column
    column: Year
  quantity:
    rule: column
    column: Qty
  sales_lc:
    rule: column
    column: Amount
  currency:
    rule: fixed
    value: EUR
`

const flatCSV = `EAN,Month,Year,Qty,Amount
111,3,2025,10,150.00
222,13,2025,5,80.00
333,4,2025,2,30.50
`

func testSet(t *testing.T) *profile.Set {
	t.Helper()
	p, err := profile.Parse([]byte(flatProfileYAML))
	require.NoError(t, err)
	set, err := profile.NewSet([]*profile.Profile{p})
	require.NoError(t, err)
	return set
}

func newTestPipeline(t *testing.T, store gateway.Store, opts Options) *Pipeline {
	t.Helper()
	return New(testSet(t), store, nil, opts, &logging.MockLogger{})
}

func TestProcessFileCompleted(t *testing.T) {
	store := &gateway.MockStore{}
	p := newTestPipeline(t, store, Options{})

	report, err := p.ProcessFile(context.Background(), "u1", "acme-march.csv", []byte(flatCSV))
	require.NoError(t, err)

	assert.Equal(t, "acme", report.VendorCode)
	assert.Equal(t, 3, report.RowsSeen)
	assert.Equal(t, 2, report.RowsAccepted)
	assert.Equal(t, 1, report.RowsRejected)
	assert.Equal(t, 0, report.RowsSkipped)
	assert.Equal(t, 0, report.Unpersisted)
	require.Len(t, report.Rejections, 1)
	assert.Equal(t, models.CauseInvalidMonth, report.Rejections[0].Cause)

	records := store.Records()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "u1", rec.UploadID)
		assert.Equal(t, "ACME", rec.Reseller)
		assert.Equal(t, "EUR", rec.Currency)
	}
	assert.Equal(t, "111", records[0].ProductEAN)
	assert.Equal(t, 3, records[0].Month)
	assert.Equal(t, 2025, records[0].Year)
	require.NotNil(t, records[0].Quantity)
	assert.Equal(t, "10", records[0].Quantity.String())
	assert.Equal(t, "150.00", records[0].SalesLC)
	assert.Nil(t, records[0].SalesEUR)

	require.NotEmpty(t, store.Statuses)
	assert.Equal(t, models.StatusProcessing, store.Statuses[0].Status)
	last := store.LastStatus()
	require.NotNil(t, last)
	assert.Equal(t, models.StatusCompleted, last.Status)
	assert.Equal(t, 2, last.Report.RowsAccepted)
}

func TestProcessFileUnrecognizedVendor(t *testing.T) {
	store := &gateway.MockStore{}
	p := newTestPipeline(t, store, Options{})

	_, err := p.ProcessFile(context.Background(), "u1", "mystery-vendor.csv", []byte(flatCSV))
	var unrecognized *pipeerror.UnrecognizedVendorError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "mystery-vendor.csv", unrecognized.Filename)

	assert.Empty(t, store.Records(), "nothing is persisted for an unrecognized file")
	last := store.LastStatus()
	require.NotNil(t, last)
	assert.Equal(t, models.StatusFailed, last.Status)
	assert.Contains(t, last.Report.ErrorSummary, "mystery-vendor.csv",
		"the status row must explain why the upload failed")
	assert.Contains(t, last.Report.ErrorSummary, "EAN",
		"sampled headers are part of the diagnostic")
}

func TestProcessFileRetriesTransientFailure(t *testing.T) {
	store := &gateway.MockStore{
		FailInserts: 1,
		FailWith:    errors.New("dial tcp: connection refused"),
	}
	p := newTestPipeline(t, store, Options{
		PersistRetries: 2,
		PersistBackoff: time.Millisecond,
	})

	report, err := p.ProcessFile(context.Background(), "u1", "acme-march.csv", []byte(flatCSV))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Unpersisted)
	assert.Len(t, store.Records(), 2)
	assert.Equal(t, models.StatusCompleted, store.LastStatus().Status)
}

func TestProcessFileNonTransientFailureIsNotRetried(t *testing.T) {
	store := &gateway.MockStore{
		FailInserts: 1,
		FailWith:    errors.New("Error 1064: You have an error in your SQL syntax"),
	}
	p := newTestPipeline(t, store, Options{
		PersistRetries: 3,
		PersistBackoff: time.Millisecond,
	})

	report, err := p.ProcessFile(context.Background(), "u1", "acme-march.csv", []byte(flatCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Unpersisted)
	assert.Empty(t, store.Records())
	assert.Equal(t, models.StatusPartialFailure, store.LastStatus().Status)
}

func TestProcessFilePartialFailureAfterExhaustedRetries(t *testing.T) {
	store := &gateway.MockStore{
		FailInserts: 10,
		FailWith:    errors.New("invalid connection"),
	}
	p := newTestPipeline(t, store, Options{
		PersistRetries: 1,
		PersistBackoff: time.Millisecond,
	})

	report, err := p.ProcessFile(context.Background(), "u1", "acme-march.csv", []byte(flatCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Unpersisted)
	last := store.LastStatus()
	require.NotNil(t, last)
	assert.Equal(t, models.StatusPartialFailure, last.Status)
	assert.Equal(t, 2, last.Report.Unpersisted)
	assert.Contains(t, last.Report.ErrorSummary, "not persisted",
		"exhausted retries surface in the status row")
}

func TestProcessFileBatchSizing(t *testing.T) {
	store := &gateway.MockStore{}
	p := newTestPipeline(t, store, Options{PersistBatchSize: 1})

	_, err := p.ProcessFile(context.Background(), "u1", "acme-march.csv", []byte(flatCSV))
	require.NoError(t, err)

	assert.Len(t, store.Batches, 2, "one batch per record at batch size 1")
	assert.Len(t, store.Records(), 2)
}

func TestProcessFileCanceled(t *testing.T) {
	store := &gateway.MockStore{}
	// InlineThreshold zero forces the chunked path, which honors ctx.
	p := newTestPipeline(t, store, Options{ChunkSize: 1, InlineThreshold: 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessFile(ctx, "u1", "acme-march.csv", []byte(flatCSV))
	require.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, store.Records(), "canceled uploads persist nothing")
	last := store.LastStatus()
	require.NotNil(t, last)
	assert.Equal(t, models.StatusCanceled, last.Status)
	assert.Equal(t, "processing canceled", last.Report.ErrorSummary)
}
