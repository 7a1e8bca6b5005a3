package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Reader exposes the sheets of an opaque spreadsheet container.
type Reader interface {
	// ListSheets returns the sheet names of the container in order.
	ListSheets(data []byte) ([]string, error)

	// ReadGrid returns the named sheet as a grid of typed cells.
	ReadGrid(data []byte, sheetName string) (Grid, error)
}

// ForFilename picks a Reader by file extension. XLSX and XLSM go through
// excelize; CSV and TSV are wrapped as single-sheet containers.
func ForFilename(filename string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return XLSXReader{}, nil
	case ".csv":
		return CSVReader{Comma: ','}, nil
	case ".tsv":
		return CSVReader{Comma: '\t'}, nil
	default:
		return nil, fmt.Errorf("unsupported spreadsheet container: %s", filename)
	}
}

// XLSXReader reads XLSX containers via excelize.
type XLSXReader struct{}

// ListSheets returns the workbook's sheet names.
func (XLSXReader) ListSheets(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadGrid reads one sheet into a Grid.
func (XLSXReader) ReadGrid(data []byte, sheetName string) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Grid{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return Grid{}, fmt.Errorf("reading sheet %s: %w", sheetName, err)
	}
	return NewGrid(sheetName, rows), nil
}

// CSVReader wraps a delimited text export as a single-sheet container with
// a synthetic sheet name.
type CSVReader struct {
	Comma rune
}

// CSVSheetName is the sheet name CSV containers report.
const CSVSheetName = "Sheet1"

// ListSheets returns the single synthetic sheet name.
func (CSVReader) ListSheets(data []byte) ([]string, error) {
	return []string{CSVSheetName}, nil
}

// ReadGrid parses the delimited text into a Grid. Ragged rows are allowed.
func (r CSVReader) ReadGrid(data []byte, sheetName string) (Grid, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = r.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Grid{}, fmt.Errorf("reading delimited text: %w", err)
	}
	return NewGrid(sheetName, records), nil
}
