package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
)

func TestWriteRecordsToCSV(t *testing.T) {
	qty := decimal.NewFromInt(10)
	records := []models.SalesRecord{
		{Reseller: "ZETA", ProductEAN: "222", Month: 4, Year: 2025, Quantity: &qty, SalesLC: "80.00", Currency: "EUR"},
		{Reseller: "ACME", ProductEAN: "111", Month: 3, Year: 2025, Quantity: &qty, SalesLC: "150.00", Currency: "EUR"},
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	err := WriteRecordsToCSV(records, path, &logging.MockLogger{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header plus one line per record")
	assert.Contains(t, lines[1], "111", "records are sorted by period then reseller")
	assert.Contains(t, lines[2], "222")
}

func TestWriteRecordsToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	err := WriteRecordsToCSV(nil, path, &logging.MockLogger{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(string(data)), "header row is always written")
}
