// Package pipeerror defines the error taxonomy of the ingestion pipeline.
// Vendor-detection and profile-configuration failures are fatal for an
// upload; row- and chunk-level failures are local and recorded, never fatal.
package pipeerror

import (
	"fmt"
	"strings"
)

// UnrecognizedVendorError is returned when no vendor profile matches an
// uploaded file. It carries the rejected filename and a sample of the
// headers that were seen, so a new profile can be written from the report.
type UnrecognizedVendorError struct {
	Filename       string
	SheetNames     []string
	SampledHeaders []string
}

func (e *UnrecognizedVendorError) Error() string {
	return fmt.Sprintf("no vendor profile matches file '%s' (sheets: %s; sampled headers: %s)",
		e.Filename,
		strings.Join(e.SheetNames, ", "),
		strings.Join(e.SampledHeaders, " | "))
}

// MalformedProfileError reports an invalid or ambiguous vendor profile set.
// It is raised at profile-load time, never during detection.
type MalformedProfileError struct {
	ProfileCode string
	Reason      string
}

func (e *MalformedProfileError) Error() string {
	if e.ProfileCode == "" {
		return fmt.Sprintf("malformed profile set: %s", e.Reason)
	}
	return fmt.Sprintf("malformed profile '%s': %s", e.ProfileCode, e.Reason)
}

// ExtractionError reports a failure to apply a field rule against a grid,
// e.g. a named header column that does not exist in the sheet.
type ExtractionError struct {
	ProfileCode string
	Field       string
	Reason      string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: cannot extract field '%s': %s", e.ProfileCode, e.Field, e.Reason)
}

// ChunkError wraps a failure that took down a whole chunk. The chunk's rows
// are reported as rejected; sibling chunks are unaffected.
type ChunkError struct {
	ChunkIndex int
	Rows       int
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d failed (%d rows affected): %v", e.ChunkIndex, e.Rows, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed batch insert after retries were
// exhausted. Records counts the rows that were not persisted.
type PersistenceError struct {
	UploadID string
	Records  int
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %d records for upload %s after %d attempts: %v",
		e.Records, e.UploadID, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
