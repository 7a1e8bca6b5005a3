// Package extractor applies a vendor profile's declarative field rules to a
// sheet grid and emits one raw record per data row. All grid-static work --
// header position resolution, pivot group boundaries, filename-derived
// values -- happens once per grid, never per row.
package extractor

import (
	"context"

	"github.com/shopspring/decimal"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/numeric"
	"sellout-ingest/internal/profile"
	"sellout-ingest/internal/sheet"
)

// ProductCatalog resolves canonical product identifiers from secondary
// identifiers such as SKUs. External collaborator, used only by lookup rules.
type ProductCatalog interface {
	// ResolveEAN returns the EAN for a secondary identifier, or
	// ErrNotFound when the catalog has no mapping.
	ResolveEAN(ctx context.Context, secondaryID, vendorCode string) (string, error)
}

// Extractor turns grids into raw record sequences.
type Extractor struct {
	catalog ProductCatalog
	logger  logging.Logger
}

// New creates an Extractor. catalog may be nil when no profile uses lookup
// rules; a lookup against a nil catalog yields a blank value.
func New(catalog ProductCatalog, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Extractor{catalog: catalog, logger: logger}
}

// Result is one extraction pass over a grid.
type Result struct {
	Records []models.RawRecord
	// Skipped counts rows dropped before emission because the profile's
	// skip_row_when_blank field was empty. SkippedRows samples their
	// zero-based grid indices for the processing log.
	Skipped     int
	SkippedRows []int
}

const skippedRowSampleLimit = 20

// Extract walks the grid from the profile's data start row and emits one
// raw record per surviving row. A fresh call restarts from the beginning;
// the pass is single and forward-only.
func (e *Extractor) Extract(ctx context.Context, grid sheet.Grid, p *profile.Profile, filename string) (Result, error) {
	gc, err := resolveGridContext(grid, p, filename, e.logger)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for rowIdx := p.DataStartRow; rowIdx < len(grid.Rows); rowIdx++ {
		if rowBlank(grid.Row(rowIdx)) {
			continue
		}

		fields := make(map[string]string, len(p.Fields)+2)
		for name, rule := range p.Fields {
			if rule.Kind == profile.RuleLookup {
				continue // second pass, needs source values
			}
			fields[name] = gc.apply(name, rule, grid, rowIdx)
		}
		for name, rule := range p.Fields {
			if rule.Kind != profile.RuleLookup {
				continue
			}
			fields[name] = e.lookup(ctx, p.Code, fields[rule.From])
		}

		// Vendor-level fixed values win over absent rules.
		if p.Currency != "" {
			fields[models.FieldCurrency] = p.Currency
		}
		if fields[models.FieldReseller] == "" {
			fields[models.FieldReseller] = p.Code
		}

		if p.SkipRowWhenBlank != "" && fields[p.SkipRowWhenBlank] == "" {
			res.Skipped++
			if len(res.SkippedRows) < skippedRowSampleLimit {
				res.SkippedRows = append(res.SkippedRows, rowIdx)
			}
			continue
		}

		res.Records = append(res.Records, models.RawRecord{
			Fields: fields,
			Provenance: models.Provenance{
				Filename: filename,
				Sheet:    grid.Sheet,
				RowIndex: rowIdx,
			},
		})
	}

	if res.Skipped > 0 {
		e.logger.Info("Rows without required identifier excluded",
			logging.Field{Key: "vendor", Value: p.Code},
			logging.Field{Key: "count", Value: res.Skipped},
			logging.Field{Key: "sample_rows", Value: res.SkippedRows})
	}
	return res, nil
}

func (e *Extractor) lookup(ctx context.Context, vendorCode, secondaryID string) string {
	if e.catalog == nil || secondaryID == "" {
		return ""
	}
	ean, err := e.catalog.ResolveEAN(ctx, secondaryID, vendorCode)
	if err != nil {
		e.logger.WithError(err).Debug("Catalog lookup failed",
			logging.Field{Key: "vendor", Value: vendorCode},
			logging.Field{Key: "secondary_id", Value: secondaryID})
		return ""
	}
	return ean
}

func rowBlank(cells []sheet.Cell) bool {
	for _, c := range cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// sumGroups sums one measure across all store column groups, blanks as
// zero. Group boundaries were resolved once in the grid context.
func sumGroups(grid sheet.Grid, rowIdx int, groups []int, offset int) string {
	total := decimal.Zero
	for _, start := range groups {
		cell := grid.CellAt(rowIdx, start+offset)
		if cell.IsBlank() {
			continue
		}
		v, err := numeric.Parse(cell.Value)
		if err != nil {
			// Unparseable member cells surface through the raw value
			// so the normalizer rejects the row with a recorded cause.
			return cell.Value
		}
		total = total.Add(v)
	}
	return total.String()
}
