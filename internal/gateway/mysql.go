package gateway

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
)

// MySQLStore persists canonical records and job status to MySQL via sqlx.
type MySQLStore struct {
	db     *sqlx.DB
	logger logging.Logger
}

// NewMySQLStore connects to MySQL with the given DSN.
func NewMySQLStore(dsn string, logger logging.Logger) (*MySQLStore, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &MySQLStore{db: db, logger: logger}, nil
}

// NewMySQLStoreFromDB wraps an existing connection pool.
func NewMySQLStoreFromDB(db *sqlx.DB, logger logging.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: logger}
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool so collaborators (the product catalog)
// can share connections.
func (s *MySQLStore) DB() *sqlx.DB {
	return s.db
}

const insertRecordQuery = `
	INSERT INTO sales_records
		(upload_id, reseller, product_ean, month, year, quantity,
		 sales_lc, sales_eur, currency, functional_name)
	VALUES
		(:upload_id, :reseller, :product_ean, :month, :year, :quantity,
		 :sales_lc, :sales_eur, :currency, :functional_name)`

// InsertBatch writes one batch inside a transaction so a failed batch never
// leaves partial rows behind.
func (s *MySQLStore) InsertBatch(ctx context.Context, uploadID string, records []models.SalesRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range records {
		records[i].UploadID = uploadID
	}
	if _, err := tx.NamedExecContext(ctx, insertRecordQuery, records); err != nil {
		return fmt.Errorf("inserting batch of %d records: %w", len(records), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	s.logger.Debug("Batch persisted",
		logging.Field{Key: "upload_id", Value: uploadID},
		logging.Field{Key: "records", Value: len(records)})
	return nil
}

const updateStatusQuery = `
	UPDATE uploads
	SET status = ?, rows_seen = ?, rows_accepted = ?, rows_rejected = ?,
	    error_summary = ?
	WHERE id = ?`

// UpdateJobStatus writes the upload's current state and counters. The
// error_summary column carries the fatal diagnostic first, then the
// rejection cause counts.
func (s *MySQLStore) UpdateJobStatus(ctx context.Context, uploadID string, status models.JobStatus, report models.UploadReport) error {
	summary := report.ErrorSummary
	for cause, count := range report.CauseBreakdown() {
		if summary != "" {
			summary += "; "
		}
		summary += fmt.Sprintf("%s=%d", cause, count)
	}

	_, err := s.db.ExecContext(ctx, updateStatusQuery,
		string(status), report.RowsSeen, report.RowsAccepted, report.RowsRejected,
		summary, uploadID)
	if err != nil {
		return fmt.Errorf("updating job status for %s: %w", uploadID, err)
	}
	return nil
}
