// Package profile defines the declarative vendor profile format that drives
// detection and extraction. One YAML document describes one retail partner:
// how to recognize its files, where its data starts, and how each canonical
// field is derived. Adding a partner means adding a document, not code.
package profile

import (
	"regexp"
)

// RuleKind names the extraction rule variants a field rule can take.
type RuleKind string

const (
	// RuleFixed emits a constant value for every row.
	RuleFixed RuleKind = "fixed"
	// RuleColumn reads a cell from the current row, addressed by header
	// name, absolute position, or marker-relative offset.
	RuleColumn RuleKind = "column"
	// RuleFilename extracts a value from the source filename with a
	// regex, once per file, and broadcasts it to every row.
	RuleFilename RuleKind = "filename"
	// RuleCell reads a single cell (absolute or marker-relative) and
	// broadcasts it to every row.
	RuleCell RuleKind = "cell"
	// RuleGroupSum sums one measure across all store column groups of a
	// pivoted layout, excluding the total group.
	RuleGroupSum RuleKind = "group_sum"
	// RuleLookup resolves the value from another extracted field through
	// the external product catalog.
	RuleLookup RuleKind = "lookup"
)

// Measure selects which offset of a pivot column group a group_sum reads.
type Measure string

const (
	MeasureQuantity Measure = "quantity"
	MeasureAmount   Measure = "amount"
)

// FieldRule describes how one canonical field is derived. Kind selects the
// variant; the remaining members are variant-specific.
type FieldRule struct {
	Kind RuleKind `yaml:"rule"`

	// fixed
	Value string `yaml:"value,omitempty"`

	// column / cell addressing. Position and Row are zero-based.
	// Exactly one of Column, Position or Marker addresses a column rule.
	Column   string `yaml:"column,omitempty"`
	Position *int   `yaml:"position,omitempty"`
	Marker   string `yaml:"marker,omitempty"`
	Offset   int    `yaml:"offset,omitempty"`
	Row      *int   `yaml:"row,omitempty"`

	// filename
	Pattern string `yaml:"pattern,omitempty"`
	Group   int    `yaml:"group,omitempty"`

	// group_sum
	Measure Measure `yaml:"measure,omitempty"`

	// lookup
	From string `yaml:"from,omitempty"`

	re *regexp.Regexp
}

// FilenameRegexp returns the compiled filename pattern. Compilation happens
// at profile load; calling this on an uncompiled rule returns nil.
func (r *FieldRule) FilenameRegexp() *regexp.Regexp {
	return r.re
}

// Pivot configures column-group aggregation for wide store-by-store layouts.
// Groups start at FirstGroupColumn and repeat every GroupWidth columns until
// the header cell containing TotalMarker, which begins the total group.
type Pivot struct {
	Enabled          bool   `yaml:"enabled"`
	FirstGroupColumn int    `yaml:"first_group_column"`
	GroupWidth       int    `yaml:"group_width"`
	QuantityOffset   int    `yaml:"quantity_offset"`
	AmountOffset     int    `yaml:"amount_offset"`
	TotalMarker      string `yaml:"total_marker"`
}

// Profile is the full declarative description of one partner format.
// Profiles are loaded once at startup and treated as read-only afterwards.
type Profile struct {
	Code              string   `yaml:"code"`
	DisplayName       string   `yaml:"display_name"`
	Currency          string   `yaml:"currency"`
	FilenamePatterns  []string `yaml:"filename_patterns"`
	SheetNamePatterns []string `yaml:"sheet_name_patterns"`
	ContentSignatures []string `yaml:"content_signatures"`
	HeaderRow         int      `yaml:"header_row"`
	DataStartRow      int      `yaml:"data_start_row"`
	Pivot             Pivot    `yaml:"pivot"`
	// SkipRowWhenBlank names the field whose blank extracted value means
	// the row is structural noise (subtotals, spacers) and is dropped
	// before a tuple is emitted.
	SkipRowWhenBlank string `yaml:"skip_row_when_blank"`
	// RequiredFields must be non-blank after normalization or the row is
	// rejected with cause missing-required-field.
	RequiredFields []string             `yaml:"required_fields"`
	ZeroOnBlank    []string             `yaml:"zero_on_blank"`
	Fields         map[string]FieldRule `yaml:"fields"`

	filenameRes  []*regexp.Regexp
	sheetNameRes []*regexp.Regexp
}

// Specificity orders profiles for detection: more detection evidence wins.
// Ties between matching profiles are a configuration error caught at load.
func (p *Profile) Specificity() int {
	return len(p.FilenamePatterns) + len(p.SheetNamePatterns) + len(p.ContentSignatures)
}

// MatchesFilename reports whether any filename pattern matches.
func (p *Profile) MatchesFilename(filename string) bool {
	for _, re := range p.filenameRes {
		if re.MatchString(filename) {
			return true
		}
	}
	return false
}

// MatchesSheetName reports whether any sheet name pattern matches the name.
func (p *Profile) MatchesSheetName(name string) bool {
	for _, re := range p.sheetNameRes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ZeroOnBlankField reports whether blank numeric cells of the given field
// coerce to zero instead of null.
func (p *Profile) ZeroOnBlankField(field string) bool {
	for _, f := range p.ZeroOnBlank {
		if f == field {
			return true
		}
	}
	return false
}

// RequiredField reports whether the given field must be present.
func (p *Profile) RequiredField(field string) bool {
	for _, f := range p.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}
