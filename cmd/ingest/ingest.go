// Package ingest implements the one-shot file ingestion command.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sellout-ingest/cmd/root"
	"sellout-ingest/internal/catalog"
	"sellout-ingest/internal/exporter"
	"sellout-ingest/internal/extractor"
	"sellout-ingest/internal/gateway"
	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/pipeline"
	"sellout-ingest/internal/profile"
)

var (
	inputFile  string
	outputFile string
	uploadID   string

	// Cmd is the ingest command.
	Cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Process one reseller export file",
		Long: `Detect the vendor of a reseller export file, extract and normalize its
rows, and either persist them to the configured database or write them to a
CSV file when no database is configured.`,
		RunE: run,
	}
)

func init() {
	Cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input spreadsheet file (required)")
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (offline mode)")
	Cmd.Flags().StringVar(&uploadID, "upload-id", "", "Upload ID (generated when omitted)")
	_ = Cmd.MarkFlagRequired("input")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := root.Cfg
	log := root.Log

	profiles, err := profile.LoadDir(cfg.Profiles.Directory, log)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	if uploadID == "" {
		uploadID = uuid.NewString()
	}

	var store gateway.Store
	var products extractor.ProductCatalog
	memory := &gateway.MockStore{}
	if cfg.Database.DSN != "" {
		mysqlStore, err := gateway.NewMySQLStore(cfg.Database.DSN, log)
		if err != nil {
			return err
		}
		defer mysqlStore.Close()
		store = mysqlStore
		products = catalog.NewMySQLCatalog(mysqlStore.DB())
	} else {
		// Offline mode: collect in memory and write CSV below.
		store = memory
	}

	p := pipeline.New(profiles, store, products, pipeline.Options{
		ChunkSize:           cfg.Pipeline.ChunkSize,
		MaxConcurrentChunks: cfg.Pipeline.MaxConcurrentChunks,
		InlineThreshold:     cfg.Pipeline.InlineThreshold,
		PersistBatchSize:    cfg.Pipeline.PersistBatchSize,
		PersistConcurrency:  cfg.Pipeline.PersistConcurrency,
		PersistRetries:      cfg.Pipeline.PersistRetries,
		PersistBackoff:      time.Duration(cfg.Pipeline.PersistBackoffMillis) * time.Millisecond,
	}, log)

	report, err := p.ProcessFile(cmd.Context(), uploadID, filepath.Base(inputFile), data)
	if err != nil {
		return err
	}

	log.Info("Ingestion finished",
		logging.Field{Key: "upload_id", Value: report.UploadID},
		logging.Field{Key: "vendor", Value: report.VendorCode},
		logging.Field{Key: "rows_seen", Value: report.RowsSeen},
		logging.Field{Key: "accepted", Value: report.RowsAccepted},
		logging.Field{Key: "rejected", Value: report.RowsRejected})
	for cause, count := range report.CauseBreakdown() {
		log.Info("Rejection cause",
			logging.Field{Key: "cause", Value: string(cause)},
			logging.Field{Key: "count", Value: count})
	}

	if cfg.Database.DSN == "" && outputFile != "" {
		return exporter.WriteRecordsToCSV(memory.Records(), outputFile, log)
	}
	return nil
}
