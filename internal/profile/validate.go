package profile

import (
	"fmt"
	"strings"

	"sellout-ingest/internal/models"
	"sellout-ingest/internal/pipeerror"
)

func malformed(code, format string, args ...interface{}) error {
	return &pipeerror.MalformedProfileError{
		ProfileCode: code,
		Reason:      fmt.Sprintf(format, args...),
	}
}

// validateProfile checks a single profile for internal consistency.
func validateProfile(p *Profile) error {
	if p.Code == "" {
		return malformed("", "profile code is required")
	}
	if len(p.FilenamePatterns) == 0 {
		return malformed(p.Code, "at least one filename pattern is required")
	}
	if len(p.SheetNamePatterns) == 0 && len(p.ContentSignatures) == 0 {
		return malformed(p.Code, "at least one sheet name pattern or content signature is required")
	}
	if p.DataStartRow <= p.HeaderRow {
		return malformed(p.Code, "data_start_row (%d) must be after header_row (%d)",
			p.DataStartRow, p.HeaderRow)
	}
	if len(p.Fields) == 0 {
		return malformed(p.Code, "field rules are required")
	}
	for _, required := range []string{models.FieldMonth, models.FieldYear} {
		if _, ok := p.Fields[required]; !ok {
			return malformed(p.Code, "missing field rule for %s", required)
		}
	}
	if p.Currency == "" {
		if _, ok := p.Fields[models.FieldCurrency]; !ok {
			return malformed(p.Code, "either a fixed currency or a currency field rule is required")
		}
	}

	groupSums := 0
	for name, rule := range p.Fields {
		if err := validateRule(p, name, rule); err != nil {
			return err
		}
		if rule.Kind == RuleGroupSum {
			groupSums++
		}
	}

	if p.Pivot.Enabled {
		if p.Pivot.GroupWidth < 1 {
			return malformed(p.Code, "pivot group_width must be at least 1")
		}
		if p.Pivot.TotalMarker == "" {
			return malformed(p.Code, "pivot total_marker is required")
		}
		if p.Pivot.QuantityOffset >= p.Pivot.GroupWidth || p.Pivot.AmountOffset >= p.Pivot.GroupWidth {
			return malformed(p.Code, "pivot measure offsets must be inside the group width")
		}
		if groupSums == 0 {
			return malformed(p.Code, "pivot profiles need at least one group_sum rule")
		}
	} else if groupSums > 0 {
		return malformed(p.Code, "group_sum rules require pivot to be enabled")
	}

	if p.SkipRowWhenBlank != "" {
		if _, ok := p.Fields[p.SkipRowWhenBlank]; !ok {
			return malformed(p.Code, "skip_row_when_blank references unknown field %s", p.SkipRowWhenBlank)
		}
	}
	for _, f := range p.RequiredFields {
		if _, ok := p.Fields[f]; !ok {
			return malformed(p.Code, "required field %s has no rule", f)
		}
	}
	for _, f := range p.ZeroOnBlank {
		if _, ok := p.Fields[f]; !ok {
			return malformed(p.Code, "zero_on_blank references unknown field %s", f)
		}
	}
	return nil
}

func validateRule(p *Profile, name string, rule FieldRule) error {
	switch rule.Kind {
	case RuleFixed:
		if rule.Value == "" {
			return malformed(p.Code, "field %s: fixed rule needs a value", name)
		}
	case RuleColumn:
		addressings := 0
		if rule.Column != "" {
			addressings++
		}
		if rule.Position != nil {
			addressings++
		}
		if rule.Marker != "" {
			addressings++
		}
		if addressings != 1 {
			return malformed(p.Code, "field %s: column rule needs exactly one of column, position or marker", name)
		}
		// A column cannot be both directly read and aggregated as part
		// of a pivot group; ambiguous layouts are a configuration error,
		// not a precedence decision.
		if p.Pivot.Enabled && rule.Position != nil && *rule.Position >= p.Pivot.FirstGroupColumn {
			return malformed(p.Code, "field %s: position %d lies inside the pivot group region (starts at %d)",
				name, *rule.Position, p.Pivot.FirstGroupColumn)
		}
	case RuleFilename:
		if rule.Pattern == "" {
			return malformed(p.Code, "field %s: filename rule needs a pattern", name)
		}
		if rule.Group < 1 {
			return malformed(p.Code, "field %s: filename rule needs a capture group index >= 1", name)
		}
	case RuleCell:
		if rule.Marker == "" && (rule.Row == nil || rule.Position == nil) {
			return malformed(p.Code, "field %s: cell rule needs either a marker or row and position", name)
		}
	case RuleGroupSum:
		if rule.Measure != MeasureQuantity && rule.Measure != MeasureAmount {
			return malformed(p.Code, "field %s: group_sum measure must be quantity or amount", name)
		}
	case RuleLookup:
		if rule.From == "" {
			return malformed(p.Code, "field %s: lookup rule needs a source field", name)
		}
		if _, ok := p.Fields[rule.From]; !ok {
			return malformed(p.Code, "field %s: lookup source %s has no rule", name, rule.From)
		}
	default:
		return malformed(p.Code, "field %s: unknown rule kind %q", name, rule.Kind)
	}
	return nil
}

// validateSet checks cross-profile constraints: unique codes and no two
// profiles of equal specificity sharing a detection signature. Ambiguity is
// rejected here so detection itself never has to break a tie.
//
// Overlap is judged on textually equal patterns (case-insensitive), not on
// regex language intersection: two distinct regexes that match the same
// filenames pass this check. Such profiles still detect deterministically,
// ordered by specificity then code, but which one wins is an accident of
// naming; keep detection patterns disjoint when adding partners.
func validateSet(profiles []*Profile) error {
	seen := make(map[string]bool)
	for _, p := range profiles {
		if seen[p.Code] {
			return malformed(p.Code, "duplicate profile code")
		}
		seen[p.Code] = true
	}

	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			a, b := profiles[i], profiles[j]
			if a.Specificity() != b.Specificity() {
				continue
			}
			if sharePattern(a.FilenamePatterns, b.FilenamePatterns) && shareSignature(a, b) {
				return malformed(a.Code, "detection signatures overlap with profile %s at equal specificity", b.Code)
			}
		}
	}
	return nil
}

func sharePattern(a, b []string) bool {
	for _, pa := range a {
		for _, pb := range b {
			if strings.EqualFold(pa, pb) {
				return true
			}
		}
	}
	return false
}

func shareSignature(a, b *Profile) bool {
	if sharePattern(a.SheetNamePatterns, b.SheetNamePatterns) {
		return true
	}
	for _, sa := range a.ContentSignatures {
		for _, sb := range b.ContentSignatures {
			if strings.EqualFold(sa, sb) {
				return true
			}
		}
	}
	return false
}
