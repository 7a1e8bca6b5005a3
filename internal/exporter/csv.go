// Package exporter writes canonical sales records to CSV. This is the
// CLI's offline output path when no database is configured.
package exporter

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
)

// WriteRecordsToCSV writes records to path, sorted by year, month and
// reseller so output is stable regardless of chunk completion order.
func WriteRecordsToCSV(records []models.SalesRecord, path string, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	sorted := make([]models.SalesRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		if sorted[i].Month != sorted[j].Month {
			return sorted[i].Month < sorted[j].Month
		}
		if sorted[i].Reseller != sorted[j].Reseller {
			return sorted[i].Reseller < sorted[j].Reseller
		}
		return sorted[i].ProductEAN < sorted[j].ProductEAN
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&sorted, f); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}

	logger.Info("Records written to CSV",
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: "count", Value: len(sorted)})
	return nil
}
