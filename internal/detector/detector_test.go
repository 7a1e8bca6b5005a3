package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/pipeerror"
	"sellout-ingest/internal/profile"
)

func mustProfile(t *testing.T, yaml string) *profile.Profile {
	t.Helper()
	p, err := profile.Parse([]byte(yaml))
	require.NoError(t, err)
	return p
}

func testSet(t *testing.T) *profile.Set {
	t.Helper()
	boxnox := mustProfile(t, `
code: BOXNOX
currency: EUR
filename_patterns: ["(?i)^boxnox"]
sheet_name_patterns: ["(?i)^sell ?out"]
content_signatures: ["EAN", "QTY"]
data_start_row: 1
fields:
  month: {rule: column, column: MONTH}
  year: {rule: column, column: YEAR}
`)
	generic := mustProfile(t, `
code: GENERIC
currency: EUR
filename_patterns: ["(?i)sellout"]
content_signatures: ["Units"]
data_start_row: 1
fields:
  month: {rule: column, column: Month}
  year: {rule: column, column: Year}
`)
	set, err := profile.NewSet([]*profile.Profile{boxnox, generic})
	require.NoError(t, err)
	return set
}

func TestDetectMatchesFilenameAndContent(t *testing.T) {
	d := New(testSet(t), &logging.MockLogger{})

	p, err := d.Detect("Boxnox_sellout_03_2025.xlsx",
		[]string{"Sell Out"},
		[][]string{{"YEAR", "MONTH", "EAN", "QTY", "AMOUNT"}})
	require.NoError(t, err)
	assert.Equal(t, "BOXNOX", p.Code)
}

func TestDetectRequiresContentEvidence(t *testing.T) {
	d := New(testSet(t), &logging.MockLogger{})

	// Filename matches BOXNOX but neither sheet names nor content do;
	// the generic profile matches both filename and signature.
	p, err := d.Detect("boxnox_sellout.xlsx",
		[]string{"Data"},
		[][]string{{"Month", "Year", "Units"}})
	require.NoError(t, err)
	assert.Equal(t, "GENERIC", p.Code)
}

func TestDetectIsDeterministic(t *testing.T) {
	d := New(testSet(t), &logging.MockLogger{})

	filename := "Boxnox_sellout.xlsx"
	sheets := []string{"Sell Out"}
	samples := [][]string{{"EAN", "QTY"}}

	first, err := d.Detect(filename, sheets, samples)
	require.NoError(t, err)
	second, err := d.Detect(filename, sheets, samples)
	require.NoError(t, err)
	assert.Same(t, first, second, "identical input must select the identical profile")
}

func TestDetectUnrecognizedVendor(t *testing.T) {
	d := New(testSet(t), &logging.MockLogger{})

	_, err := d.Detect("mystery_partner.xlsx",
		[]string{"Tabelle1"},
		[][]string{{"Artikel", "Menge", "Umsatz"}})
	require.Error(t, err)

	var unrecognized *pipeerror.UnrecognizedVendorError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "mystery_partner.xlsx", unrecognized.Filename)
	assert.Equal(t, []string{"Tabelle1"}, unrecognized.SheetNames)
	assert.Contains(t, unrecognized.SampledHeaders, "Artikel", "diagnostic carries sampled headers")
}
