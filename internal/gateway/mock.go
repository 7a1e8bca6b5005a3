package gateway

import (
	"context"
	"sync"

	"sellout-ingest/internal/models"
)

// MockStore is an in-memory Store for tests. It is safe for concurrent use
// and can simulate transient failures for the retry path.
type MockStore struct {
	mu       sync.Mutex
	Batches  [][]models.SalesRecord
	Statuses []StatusUpdate

	// FailInserts makes the next N InsertBatch calls fail with FailWith.
	FailInserts int
	FailWith    error
}

// StatusUpdate captures one UpdateJobStatus call.
type StatusUpdate struct {
	UploadID string
	Status   models.JobStatus
	Report   models.UploadReport
}

// InsertBatch records the batch, or fails if failures are queued.
func (m *MockStore) InsertBatch(ctx context.Context, uploadID string, records []models.SalesRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInserts > 0 {
		m.FailInserts--
		return m.FailWith
	}
	batch := make([]models.SalesRecord, len(records))
	copy(batch, records)
	for i := range batch {
		batch[i].UploadID = uploadID
	}
	m.Batches = append(m.Batches, batch)
	return nil
}

// UpdateJobStatus records the status update.
func (m *MockStore) UpdateJobStatus(ctx context.Context, uploadID string, status models.JobStatus, report models.UploadReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, StatusUpdate{UploadID: uploadID, Status: status, Report: report})
	return nil
}

// Records flattens all persisted batches.
func (m *MockStore) Records() []models.SalesRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.SalesRecord
	for _, b := range m.Batches {
		all = append(all, b...)
	}
	return all
}

// LastStatus returns the most recent status update, or nil.
func (m *MockStore) LastStatus() *StatusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Statuses) == 0 {
		return nil
	}
	last := m.Statuses[len(m.Statuses)-1]
	return &last
}
