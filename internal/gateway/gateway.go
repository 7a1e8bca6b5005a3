// Package gateway defines the persistence boundary of the pipeline and its
// MySQL implementation. The pipeline only ever talks to the Store
// interface; tests substitute MockStore.
package gateway

import (
	"context"
	"errors"
	"net"
	"strings"

	"sellout-ingest/internal/models"
)

// Store accepts batches of canonical records and upload status updates.
type Store interface {
	// InsertBatch persists one batch of records for an upload.
	InsertBatch(ctx context.Context, uploadID string, records []models.SalesRecord) error

	// UpdateJobStatus reports upload progress or its terminal state.
	UpdateJobStatus(ctx context.Context, uploadID string, status models.JobStatus, report models.UploadReport) error
}

// IsTransient reports whether a persistence error is worth retrying:
// timeouts, connection loss and driver-reported temporary conditions.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"invalid connection",
		"try again",
		"too many connections",
		"deadlock",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
