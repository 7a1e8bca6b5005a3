// Package detector selects the vendor profile for an uploaded file.
// Detection is a pure function of the filename, the sheet names and a
// sample of header text: profiles are tried in the set's fixed priority
// order and the first one whose filename pattern and at least one content
// signature both match wins. Ambiguity cannot arise at this point because
// overlapping equal-specificity profiles were rejected at load time.
package detector

import (
	"strings"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/pipeerror"
	"sellout-ingest/internal/profile"
)

// Detector matches uploads against a loaded profile set.
type Detector struct {
	profiles *profile.Set
	logger   logging.Logger
}

// New creates a Detector over an immutable profile set.
func New(profiles *profile.Set, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Detector{profiles: profiles, logger: logger}
}

// Detect returns the single profile matching the upload, or an
// UnrecognizedVendorError carrying the sampled evidence. sampleRows should
// hold the first few rows of each candidate sheet, flattened to text.
func (d *Detector) Detect(filename string, sheetNames []string, sampleRows [][]string) (*profile.Profile, error) {
	for _, p := range d.profiles.Profiles() {
		if !p.MatchesFilename(filename) {
			continue
		}
		if !matchesContent(p, sheetNames, sampleRows) {
			continue
		}
		d.logger.Info("Vendor detected",
			logging.Field{Key: "file", Value: filename},
			logging.Field{Key: "vendor", Value: p.Code})
		return p, nil
	}

	headers := sampleHeaders(sampleRows, 12)
	d.logger.Warn("No vendor profile matches upload",
		logging.Field{Key: "file", Value: filename},
		logging.Field{Key: "sheets", Value: strings.Join(sheetNames, ", ")},
		logging.Field{Key: "sampled_headers", Value: strings.Join(headers, " | ")})

	return nil, &pipeerror.UnrecognizedVendorError{
		Filename:       filename,
		SheetNames:     sheetNames,
		SampledHeaders: headers,
	}
}

// matchesContent requires at least one content signature: a matching sheet
// name, or a signature fragment found in the sampled rows.
func matchesContent(p *profile.Profile, sheetNames []string, sampleRows [][]string) bool {
	for _, name := range sheetNames {
		if p.MatchesSheetName(name) {
			return true
		}
	}
	for _, sig := range p.ContentSignatures {
		for _, row := range sampleRows {
			for _, cell := range row {
				if strings.Contains(strings.ToLower(cell), strings.ToLower(sig)) {
					return true
				}
			}
		}
	}
	return false
}

// sampleHeaders flattens the first non-blank cells of the sampled rows for
// the unrecognized-vendor diagnostic.
func sampleHeaders(sampleRows [][]string, limit int) []string {
	var headers []string
	for _, row := range sampleRows {
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			headers = append(headers, cell)
			if len(headers) >= limit {
				return headers
			}
		}
	}
	return headers
}
