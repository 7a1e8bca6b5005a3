package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellout-ingest/internal/catalog"
	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/pipeerror"
	"sellout-ingest/internal/profile"
	"sellout-ingest/internal/sheet"
)

func mustProfile(t *testing.T, yaml string) *profile.Profile {
	t.Helper()
	p, err := profile.Parse([]byte(yaml))
	require.NoError(t, err)
	return p
}

const flatYAML = `
code: BOXNOX
currency: EUR
filename_patterns: ["(?i)^boxnox"]
content_signatures: ["EAN"]
header_row: 0
data_start_row: 1
fields:
  reseller: {rule: fixed, value: BOXNOX}
  product_ean: {rule: column, column: EAN}
  month: {rule: column, column: MONTH}
  year: {rule: column, column: YEAR}
  quantity: {rule: column, column: QTY}
  sales_lc: {rule: column, column: AMOUNT}
  functional_name: {rule: column, column: SKU}
`

func TestExtractFlatLayout(t *testing.T) {
	p := mustProfile(t, flatYAML)
	grid := sheet.NewGrid("Sell Out", [][]string{
		{"YEAR", "MONTH", "EAN", "QTY", "AMOUNT", "SKU"},
		{"2025", "3", "1234567890123", "10", "150.00", "SKU001"},
		{"2025", "3", "9876543210987", "2", "30.00", "SKU002"},
	})

	e := New(nil, &logging.MockLogger{})
	res, err := e.Extract(context.Background(), grid, p, "boxnox_03_2025.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Zero(t, res.Skipped)

	first := res.Records[0]
	assert.Equal(t, "BOXNOX", first.Get(models.FieldReseller))
	assert.Equal(t, "1234567890123", first.Get(models.FieldEAN))
	assert.Equal(t, "3", first.Get(models.FieldMonth))
	assert.Equal(t, "2025", first.Get(models.FieldYear))
	assert.Equal(t, "10", first.Get(models.FieldQuantity))
	assert.Equal(t, "150.00", first.Get(models.FieldSalesLC))
	assert.Equal(t, "EUR", first.Get(models.FieldCurrency))
	assert.Equal(t, "SKU001", first.Get(models.FieldFunctionalName))
	assert.Equal(t, models.Provenance{
		Filename: "boxnox_03_2025.xlsx",
		Sheet:    "Sell Out",
		RowIndex: 1,
	}, first.Provenance)
}

func TestExtractSkipsFullyBlankRows(t *testing.T) {
	p := mustProfile(t, flatYAML)
	grid := sheet.NewGrid("Sell Out", [][]string{
		{"YEAR", "MONTH", "EAN", "QTY", "AMOUNT", "SKU"},
		{"2025", "3", "111", "1", "10.00", "A"},
		{"", "", "", "", "", ""},
		{"2025", "3", "222", "2", "20.00", "B"},
	})

	e := New(nil, &logging.MockLogger{})
	res, err := e.Extract(context.Background(), grid, p, "boxnox.xlsx")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestExtractMissingHeaderColumn(t *testing.T) {
	p := mustProfile(t, flatYAML)
	grid := sheet.NewGrid("Sell Out", [][]string{
		{"YEAR", "MONTH", "EAN"}, // no QTY/AMOUNT/SKU
		{"2025", "3", "111"},
	})

	e := New(nil, &logging.MockLogger{})
	_, err := e.Extract(context.Background(), grid, p, "boxnox.xlsx")
	require.Error(t, err)
	var extraction *pipeerror.ExtractionError
	assert.ErrorAs(t, err, &extraction)
}

const pivotYAML = `
code: AROMATECA
currency: EUR
filename_patterns: ["(?i)^aromateca"]
content_signatures: ["Total"]
header_row: 1
data_start_row: 2
pivot:
  enabled: true
  first_group_column: 2
  group_width: 2
  quantity_offset: 0
  amount_offset: 1
  total_marker: Total
skip_row_when_blank: product_ean
fields:
  product_ean: {rule: column, position: 0}
  functional_name: {rule: column, position: 1}
  month: {rule: filename, pattern: '(\d{2})-(\d{4})', group: 1}
  year: {rule: filename, pattern: '(\d{2})-(\d{4})', group: 2}
  quantity: {rule: group_sum, measure: quantity}
  sales_lc: {rule: group_sum, measure: amount}
`

// pivotGrid has three store groups of (qty, amount) pairs, then the total
// group that aggregation must exclude.
func pivotGrid() sheet.Grid {
	return sheet.NewGrid("Stores", [][]string{
		{"", "", "Store A", "", "Store B", "", "Store C", "", "Total", ""},
		{"EAN", "Product", "Qty", "Amount", "Qty", "Amount", "Qty", "Amount", "Qty", "Amount"},
		{"111", "Lip Balm", "3", "30.00", "2", "20.00", "1", "10.00", "6", "60.00"},
		{"222", "Hand Cream", "", "", "5", "50.00", "", "", "5", "50.00"},
		{"", "Subtotal row", "9", "90.00", "9", "90.00", "9", "90.00", "27", "270.00"},
	})
}

func TestExtractPivotAggregation(t *testing.T) {
	p := mustProfile(t, pivotYAML)
	e := New(nil, &logging.MockLogger{})

	res, err := e.Extract(context.Background(), pivotGrid(), p, "Aromateca_sellout_03-2025.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	first := res.Records[0]
	assert.Equal(t, "6", first.Get(models.FieldQuantity), "sum across store groups, total group excluded")
	assert.Equal(t, "60", first.Get(models.FieldSalesLC))
	assert.Equal(t, "3", first.Get(models.FieldMonth), "filename-derived month broadcast to rows")
	assert.Equal(t, "2025", first.Get(models.FieldYear))

	second := res.Records[1]
	assert.Equal(t, "5", second.Get(models.FieldQuantity), "blank store cells count as zero")

	// Aggregate equals the layout's own Total column for well-formed rows.
	grid := pivotGrid()
	assert.Equal(t, grid.CellAt(2, 8).Value, first.Get(models.FieldQuantity))
}

func TestExtractPivotBlankMix(t *testing.T) {
	p := mustProfile(t, `
code: AROMATECA
currency: EUR
filename_patterns: ["(?i)^aromateca"]
content_signatures: ["Total"]
header_row: 0
data_start_row: 1
pivot:
  enabled: true
  first_group_column: 1
  group_width: 1
  quantity_offset: 0
  amount_offset: 0
  total_marker: Total
fields:
  product_ean: {rule: column, position: 0}
  month: {rule: fixed, value: "3"}
  year: {rule: fixed, value: "2025"}
  quantity: {rule: group_sum, measure: quantity}
`)
	// Six single-column store groups with quantities [ , ,3,2, ,1].
	grid := sheet.NewGrid("Stores", [][]string{
		{"EAN", "S1", "S2", "S3", "S4", "S5", "S6", "Total"},
		{"111", "", "", "3", "2", "", "1", "6"},
	})

	e := New(nil, &logging.MockLogger{})
	res, err := e.Extract(context.Background(), grid, p, "aromateca.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "6", res.Records[0].Get(models.FieldQuantity))
}

func TestExtractSkipRowWhenBlank(t *testing.T) {
	p := mustProfile(t, pivotYAML)
	e := New(nil, &logging.MockLogger{})

	res, err := e.Extract(context.Background(), pivotGrid(), p, "Aromateca_sellout_03-2025.xlsx")
	require.NoError(t, err)

	// The subtotal row has no EAN and must never become a tuple.
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []int{4}, res.SkippedRows)
	for _, rec := range res.Records {
		assert.NotEmpty(t, rec.Get(models.FieldEAN))
	}
}

func TestExtractPivotMissingTotalMarker(t *testing.T) {
	p := mustProfile(t, pivotYAML)
	grid := sheet.NewGrid("Stores", [][]string{
		{"", "", "Store A", ""},
		{"EAN", "Product", "Qty", "Amount"},
		{"111", "Lip Balm", "3", "30.00"},
	})

	e := New(nil, &logging.MockLogger{})
	_, err := e.Extract(context.Background(), grid, p, "aromateca.xlsx")
	require.Error(t, err)
	var extraction *pipeerror.ExtractionError
	assert.ErrorAs(t, err, &extraction)
}

func TestExtractCellAndMarkerRules(t *testing.T) {
	p := mustProfile(t, `
code: SKINLAB
currency: ""
filename_patterns: ["(?i)^skinlab"]
content_signatures: ["SKU"]
header_row: 2
data_start_row: 3
fields:
  reseller: {rule: fixed, value: SKINLAB}
  functional_name: {rule: column, column: SKU}
  month: {rule: column, column: Month}
  year: {rule: column, column: Year}
  quantity: {rule: column, marker: Units, offset: 0}
  sales_lc: {rule: column, marker: Units, offset: 1}
  currency: {rule: cell, marker: "Currency:", offset: 1}
`)
	grid := sheet.NewGrid("Sheet1", [][]string{
		{"SkinLab monthly report", ""},
		{"Currency:", "SEK"},
		{"SKU", "Month", "Year", "Units", "Net Sales"},
		{"SL-001", "3", "2025", "7", "799,50"},
	})

	e := New(nil, &logging.MockLogger{})
	res, err := e.Extract(context.Background(), grid, p, "skinlab_03.csv")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "SEK", rec.Get(models.FieldCurrency), "cell rule broadcasts the labelled currency")
	assert.Equal(t, "7", rec.Get(models.FieldQuantity), "marker-addressed column")
	assert.Equal(t, "799,50", rec.Get(models.FieldSalesLC), "marker offset column")
}

func TestExtractLookupRule(t *testing.T) {
	p := mustProfile(t, `
code: SKINLAB
currency: SEK
filename_patterns: ["(?i)^skinlab"]
content_signatures: ["SKU"]
header_row: 0
data_start_row: 1
fields:
  functional_name: {rule: column, column: SKU}
  product_ean: {rule: lookup, from: functional_name}
  month: {rule: fixed, value: "3"}
  year: {rule: fixed, value: "2025"}
  quantity: {rule: column, column: Units}
`)
	grid := sheet.NewGrid("Sheet1", [][]string{
		{"SKU", "Units"},
		{"SL-001", "7"},
		{"SL-UNKNOWN", "1"},
	})

	cat := &catalog.MockCatalog{}
	cat.Add("SKINLAB", "SL-001", "7310000000001")

	e := New(cat, &logging.MockLogger{})
	res, err := e.Extract(context.Background(), grid, p, "skinlab.csv")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, "7310000000001", res.Records[0].Get(models.FieldEAN))
	assert.Empty(t, res.Records[1].Get(models.FieldEAN), "unresolved lookups stay blank")
	assert.Equal(t, 2, cat.Calls)
}

func TestExtractFilenamePatternMismatchBroadcastsBlank(t *testing.T) {
	p := mustProfile(t, pivotYAML)
	log := &logging.MockLogger{}
	e := New(nil, log)

	res, err := e.Extract(context.Background(), pivotGrid(), p, "aromateca_nodate.xlsx")
	require.NoError(t, err)
	require.NotEmpty(t, res.Records)
	assert.Empty(t, res.Records[0].Get(models.FieldMonth))
}
