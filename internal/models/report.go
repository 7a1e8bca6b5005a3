package models

// RejectionCause classifies why a row was rejected by the pipeline.
type RejectionCause string

const (
	CauseMissingRequiredField RejectionCause = "missing-required-field"
	CauseInvalidMonth         RejectionCause = "invalid-month"
	CauseInvalidYear          RejectionCause = "invalid-year"
	CauseUnparseableNumber    RejectionCause = "unparseable-number"
	CauseChunkProcessingError RejectionCause = "chunk-processing-error"
)

// RejectedRow records a single dropped row together with its cause and
// provenance, so uploads never lose rows silently.
type RejectedRow struct {
	Cause      RejectionCause
	Field      string
	Value      string
	Provenance Provenance
}

// JobStatus is the lifecycle state reported for an upload.
type JobStatus string

const (
	StatusProcessing     JobStatus = "processing"
	StatusCompleted      JobStatus = "completed"
	StatusPartialFailure JobStatus = "partial_failure"
	StatusFailed         JobStatus = "failed"
	StatusCanceled       JobStatus = "canceled"
)

// UploadReport aggregates the outcome of processing one uploaded file.
type UploadReport struct {
	UploadID     string
	VendorCode   string
	RowsSeen     int
	RowsAccepted int
	RowsRejected int
	RowsSkipped  int // filtered out before extraction (missing identifier)
	Rejections   []RejectedRow
	Unpersisted  int // accepted records that failed to persist after retries
	// ErrorSummary carries the upload-fatal diagnostic (unrecognized vendor
	// evidence, unreadable container, exhausted persistence retries) so the
	// job status records why an upload failed, not just that it did.
	ErrorSummary string
}

// CauseBreakdown returns rejection counts keyed by cause.
func (r UploadReport) CauseBreakdown() map[RejectionCause]int {
	breakdown := make(map[RejectionCause]int)
	for _, rej := range r.Rejections {
		breakdown[rej.Cause]++
	}
	return breakdown
}

// Merge folds another report's counters into this one. Used when chunk-local
// reports are combined after all chunks of an upload complete.
func (r *UploadReport) Merge(other UploadReport) {
	r.RowsSeen += other.RowsSeen
	r.RowsAccepted += other.RowsAccepted
	r.RowsRejected += other.RowsRejected
	r.RowsSkipped += other.RowsSkipped
	r.Rejections = append(r.Rejections, other.Rejections...)
	r.Unpersisted += other.Unpersisted
	if r.ErrorSummary == "" {
		r.ErrorSummary = other.ErrorSummary
	}
}
