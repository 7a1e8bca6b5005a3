// Package pipeline orchestrates one upload end to end: open the container,
// detect the vendor, extract raw records, normalize them in chunks, and
// persist the survivors in batches. Only vendor detection and configuration
// failures are fatal for an upload; everything row- or chunk-local is
// recorded in the report and processing continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sellout-ingest/internal/detector"
	"sellout-ingest/internal/extractor"
	"sellout-ingest/internal/gateway"
	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/normalizer"
	"sellout-ingest/internal/pipeerror"
	"sellout-ingest/internal/profile"
	"sellout-ingest/internal/scheduler"
	"sellout-ingest/internal/sheet"
)

// Options tune persistence and scheduling for one Pipeline instance.
type Options struct {
	ChunkSize           int
	MaxConcurrentChunks int
	InlineThreshold     int
	// PersistBatchSize must not exceed ChunkSize; config validates this.
	PersistBatchSize   int
	PersistConcurrency int
	PersistRetries     int
	PersistBackoff     time.Duration
}

func (o Options) withDefaults() Options {
	if o.PersistBatchSize < 1 {
		o.PersistBatchSize = 250
	}
	if o.PersistConcurrency < 1 {
		o.PersistConcurrency = 2
	}
	if o.PersistBackoff <= 0 {
		o.PersistBackoff = 200 * time.Millisecond
	}
	return o
}

// Pipeline converts uploaded files into persisted canonical records.
type Pipeline struct {
	profiles  *profile.Set
	detector  *detector.Detector
	extractor *extractor.Extractor
	scheduler *scheduler.Scheduler
	store     gateway.Store
	opts      Options
	logger    logging.Logger
}

// New wires a Pipeline. catalog may be nil when no profile uses lookups.
func New(profiles *profile.Set, store gateway.Store, catalog extractor.ProductCatalog, opts Options, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Pipeline{
		profiles:  profiles,
		detector:  detector.New(profiles, logger),
		extractor: extractor.New(catalog, logger),
		scheduler: scheduler.New(scheduler.Options{
			ChunkSize:           opts.ChunkSize,
			MaxConcurrentChunks: opts.MaxConcurrentChunks,
			InlineThreshold:     opts.InlineThreshold,
		}, logger),
		store:  store,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// detectionSampleRows bounds how much sheet content detection inspects.
const detectionSampleRows = 5

// ProcessFile runs the full pipeline for one uploaded file. The returned
// report is valid even when err is non-nil; err is only set for
// upload-fatal conditions (unrecognized vendor, unreadable container,
// extraction-context failure, cancellation).
func (p *Pipeline) ProcessFile(ctx context.Context, uploadID, filename string, data []byte) (models.UploadReport, error) {
	report := models.UploadReport{UploadID: uploadID}
	log := p.logger.WithFields(
		logging.Field{Key: "upload_id", Value: uploadID},
		logging.Field{Key: "file", Value: filename})

	reader, err := sheet.ForFilename(filename)
	if err != nil {
		p.failUpload(ctx, uploadID, &report, err)
		return report, err
	}

	sheetNames, err := reader.ListSheets(data)
	if err != nil {
		p.failUpload(ctx, uploadID, &report, err)
		return report, err
	}

	samples, grids := p.sampleSheets(reader, data, sheetNames)

	prof, err := p.detector.Detect(filename, sheetNames, samples)
	if err != nil {
		// Unrecognized vendor: whole upload fails, zero rows processed.
		// The error text carries the sampled evidence for the status row.
		p.failUpload(ctx, uploadID, &report, err)
		return report, err
	}
	report.VendorCode = prof.Code
	log = log.WithField("vendor", prof.Code)

	grid, ok := pickSheet(prof, sheetNames, grids)
	if !ok {
		err := &pipeerror.ExtractionError{
			ProfileCode: prof.Code,
			Reason:      "no readable sheet in container",
		}
		p.failUpload(ctx, uploadID, &report, err)
		return report, err
	}

	p.updateStatus(ctx, uploadID, models.StatusProcessing, report)

	extraction, err := p.extractor.Extract(ctx, grid, prof, filename)
	if err != nil {
		p.failUpload(ctx, uploadID, &report, err)
		return report, err
	}
	report.RowsSkipped = extraction.Skipped
	report.RowsSeen = len(extraction.Records) + extraction.Skipped

	norm := normalizer.New(prof)
	result, err := p.scheduler.Process(ctx, extraction.Records, norm.Normalize)
	if err != nil {
		// Cancellation between chunk dispatches: in-flight results were
		// discarded by the scheduler, nothing is persisted.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.ErrorSummary = "processing canceled"
			p.updateStatus(context.WithoutCancel(ctx), uploadID, models.StatusCanceled, report)
		} else {
			p.failUpload(ctx, uploadID, &report, err)
		}
		return report, err
	}

	report.RowsAccepted = len(result.Accepted)
	report.RowsRejected = len(result.Rejected)
	report.Rejections = result.Rejected

	report.Unpersisted = p.persist(ctx, uploadID, result.Accepted, log)

	status := models.StatusCompleted
	if report.Unpersisted > 0 {
		status = models.StatusPartialFailure
		report.ErrorSummary = fmt.Sprintf("%d records not persisted after %d attempts",
			report.Unpersisted, p.opts.PersistRetries+1)
	}
	p.updateStatus(ctx, uploadID, status, report)

	log.Info("Upload processed",
		logging.Field{Key: "rows_seen", Value: report.RowsSeen},
		logging.Field{Key: "accepted", Value: report.RowsAccepted},
		logging.Field{Key: "rejected", Value: report.RowsRejected},
		logging.Field{Key: "skipped", Value: report.RowsSkipped},
		logging.Field{Key: "unpersisted", Value: report.Unpersisted})
	return report, nil
}

// sampleSheets reads every sheet once and keeps both the full grids (for
// processing) and the first rows as text (for detection).
func (p *Pipeline) sampleSheets(reader sheet.Reader, data []byte, sheetNames []string) ([][]string, map[string]sheet.Grid) {
	var samples [][]string
	grids := make(map[string]sheet.Grid, len(sheetNames))
	for _, name := range sheetNames {
		grid, err := reader.ReadGrid(data, name)
		if err != nil {
			p.logger.WithError(err).Warn("Skipping unreadable sheet",
				logging.Field{Key: "sheet", Value: name})
			continue
		}
		grids[name] = grid
		for i := 0; i < detectionSampleRows && i < len(grid.Rows); i++ {
			samples = append(samples, grid.RowTexts(i))
		}
	}
	return samples, grids
}

// pickSheet selects the first sheet matching the profile's sheet name
// patterns, falling back to the first readable sheet. Sheet name patterns
// are detection evidence, not a hard selector: CSV containers carry a
// synthetic sheet name yet can still be detected through content signatures.
func pickSheet(prof *profile.Profile, sheetNames []string, grids map[string]sheet.Grid) (sheet.Grid, bool) {
	for _, name := range sheetNames {
		if prof.MatchesSheetName(name) {
			if g, ok := grids[name]; ok {
				return g, true
			}
		}
	}
	for _, name := range sheetNames {
		if g, ok := grids[name]; ok {
			return g, true
		}
	}
	return sheet.Grid{}, false
}

// failUpload records the fatal diagnostic on the report and marks the
// upload failed, so the status row explains the failure.
func (p *Pipeline) failUpload(ctx context.Context, uploadID string, report *models.UploadReport, err error) {
	report.ErrorSummary = err.Error()
	p.updateStatus(ctx, uploadID, models.StatusFailed, *report)
}

func (p *Pipeline) updateStatus(ctx context.Context, uploadID string, status models.JobStatus, report models.UploadReport) {
	if err := p.store.UpdateJobStatus(ctx, uploadID, status, report); err != nil {
		p.logger.WithError(err).Warn("Failed to update job status",
			logging.Field{Key: "upload_id", Value: uploadID},
			logging.Field{Key: "status", Value: status})
	}
}
