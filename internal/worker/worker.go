// Package worker runs uploads through the pipeline in the background. An
// asynq task carries the upload ID and file location; progress is mirrored
// to Redis so the serving process can answer status polls cheaply.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/pipeline"
)

// TaskIngestUpload is the asynq task type for one uploaded file.
const TaskIngestUpload = "upload:ingest"

// IngestPayload is the task payload.
type IngestPayload struct {
	UploadID string `json:"upload_id"`
	FilePath string `json:"file_path"`
}

// NewIngestTask builds the asynq task for a stored upload, minting the
// upload ID when the caller has none yet.
func NewIngestTask(uploadID, filePath string) (*asynq.Task, string, error) {
	if uploadID == "" {
		uploadID = uuid.NewString()
	}
	payload, err := json.Marshal(IngestPayload{UploadID: uploadID, FilePath: filePath})
	if err != nil {
		return nil, "", fmt.Errorf("marshaling ingest payload: %w", err)
	}
	return asynq.NewTask(TaskIngestUpload, payload), uploadID, nil
}

// IngestHandler processes upload:ingest tasks.
type IngestHandler struct {
	pipeline *pipeline.Pipeline
	redis    *redis.Client
	logger   logging.Logger
}

// NewIngestHandler wires the handler. redis may be nil; progress mirroring
// is then skipped.
func NewIngestHandler(p *pipeline.Pipeline, rdb *redis.Client, logger logging.Logger) *IngestHandler {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &IngestHandler{pipeline: p, redis: rdb, logger: logger}
}

// Register attaches the handler to an asynq mux.
func (h *IngestHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestUpload, h.Handle)
}

// Handle loads the stored file and runs it through the pipeline. Pipeline
// failures are not returned to asynq: the job status already records the
// outcome and a retry would re-fail the same way.
func (h *IngestHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log := h.logger.WithField("upload_id", payload.UploadID)
	log.Info("Ingesting upload", logging.Field{Key: "file", Value: payload.FilePath})

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return fmt.Errorf("reading upload file: %w", err)
	}

	report, err := h.pipeline.ProcessFile(ctx, payload.UploadID, filepath.Base(payload.FilePath), data)
	if err != nil {
		log.WithError(err).Error("Upload failed")
	}

	h.mirrorProgress(ctx, payload.UploadID, report.RowsSeen, report.RowsAccepted, report.RowsRejected)
	return nil
}

func (h *IngestHandler) mirrorProgress(ctx context.Context, uploadID string, seen, accepted, rejected int) {
	if h.redis == nil {
		return
	}
	key := fmt.Sprintf("ingest:progress:%s", uploadID)
	value := fmt.Sprintf("%d/%d/%d", seen, accepted, rejected)
	if err := h.redis.Set(ctx, key, value, 24*time.Hour).Err(); err != nil {
		h.logger.WithError(err).Warn("Failed to mirror progress to redis",
			logging.Field{Key: "upload_id", Value: uploadID})
	}
}
