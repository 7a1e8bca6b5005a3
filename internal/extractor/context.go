package extractor

import (
	"strings"

	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/models"
	"sellout-ingest/internal/pipeerror"
	"sellout-ingest/internal/profile"
	"sellout-ingest/internal/sheet"
)

// gridContext holds everything a profile resolves once per grid: header
// column positions, pivot group boundaries, and file-level broadcast values
// (filename-derived dates, cell-derived constants).
type gridContext struct {
	profile   *profile.Profile
	columns   map[string]int // field name -> resolved column index
	broadcast map[string]string
	groups    []int // start column of each store group, total group excluded
	totalCol  int   // start column of the total group, -1 when not pivoted
}

func resolveGridContext(grid sheet.Grid, p *profile.Profile, filename string, logger logging.Logger) (*gridContext, error) {
	gc := &gridContext{
		profile:   p,
		columns:   make(map[string]int),
		broadcast: make(map[string]string),
		totalCol:  -1,
	}

	header := grid.RowTexts(p.HeaderRow)
	headerIdx := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, dup := headerIdx[key]; !dup {
			headerIdx[key] = i
		}
	}

	if p.Pivot.Enabled {
		if err := gc.resolveGroups(grid, p); err != nil {
			return nil, err
		}
	}

	for name, rule := range p.Fields {
		switch rule.Kind {
		case profile.RuleColumn:
			col, err := gc.resolveColumn(name, rule, headerIdx, grid)
			if err != nil {
				return nil, err
			}
			gc.columns[name] = col
		case profile.RuleFilename:
			gc.broadcast[name] = applyFilenameRule(rule, filename, name, p.Code, logger)
		case profile.RuleCell:
			gc.broadcast[name] = resolveCellValue(rule, grid)
		}
	}

	return gc, nil
}

func (gc *gridContext) resolveColumn(name string, rule profile.FieldRule, headerIdx map[string]int, grid sheet.Grid) (int, error) {
	p := gc.profile
	switch {
	case rule.Position != nil:
		return *rule.Position, nil
	case rule.Column != "":
		col, ok := headerIdx[strings.ToLower(rule.Column)]
		if !ok {
			return 0, &pipeerror.ExtractionError{
				ProfileCode: p.Code,
				Field:       name,
				Reason:      "header column '" + rule.Column + "' not found in sheet " + grid.Sheet,
			}
		}
		if p.Pivot.Enabled && col >= p.Pivot.FirstGroupColumn {
			return 0, &pipeerror.ExtractionError{
				ProfileCode: p.Code,
				Field:       name,
				Reason:      "header column '" + rule.Column + "' resolves inside the pivot group region",
			}
		}
		return col, nil
	default: // marker-relative
		_, col, ok := grid.Find(rule.Marker)
		if !ok {
			return 0, &pipeerror.ExtractionError{
				ProfileCode: p.Code,
				Field:       name,
				Reason:      "marker '" + rule.Marker + "' not found in sheet " + grid.Sheet,
			}
		}
		return col + rule.Offset, nil
	}
}

// resolveGroups locates the total-group marker and derives the store group
// start columns from it. The marker may sit on the header row itself or on
// a banner row above it (store names over measure labels), so all rows up
// to and including the header row are scanned.
func (gc *gridContext) resolveGroups(grid sheet.Grid, p *profile.Profile) error {
	totalCol := -1
	marker := strings.ToLower(p.Pivot.TotalMarker)
	for row := 0; row <= p.HeaderRow && totalCol < 0; row++ {
		texts := grid.RowTexts(row)
		for i := p.Pivot.FirstGroupColumn; i < len(texts); i++ {
			if strings.Contains(strings.ToLower(texts[i]), marker) {
				totalCol = i
				break
			}
		}
	}
	if totalCol < 0 {
		return &pipeerror.ExtractionError{
			ProfileCode: p.Code,
			Field:       models.FieldQuantity,
			Reason:      "pivot total marker '" + p.Pivot.TotalMarker + "' not found in header row",
		}
	}

	for start := p.Pivot.FirstGroupColumn; start+p.Pivot.GroupWidth <= totalCol; start += p.Pivot.GroupWidth {
		gc.groups = append(gc.groups, start)
	}
	gc.totalCol = totalCol
	return nil
}

// apply evaluates one non-lookup rule for the current row. Resolved state
// is keyed by field name; only row-dependent reads happen here.
func (gc *gridContext) apply(name string, rule profile.FieldRule, grid sheet.Grid, rowIdx int) string {
	switch rule.Kind {
	case profile.RuleFixed:
		return rule.Value
	case profile.RuleColumn:
		col, ok := gc.columns[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(grid.CellAt(rowIdx, col).Value)
	case profile.RuleFilename, profile.RuleCell:
		return gc.broadcast[name]
	case profile.RuleGroupSum:
		offset := gc.profile.Pivot.QuantityOffset
		if rule.Measure == profile.MeasureAmount {
			offset = gc.profile.Pivot.AmountOffset
		}
		return sumGroups(grid, rowIdx, gc.groups, offset)
	default:
		return ""
	}
}

func applyFilenameRule(rule profile.FieldRule, filename, fieldName, code string, logger logging.Logger) string {
	re := rule.FilenameRegexp()
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(filename)
	if m == nil || rule.Group >= len(m) {
		logger.Warn("Filename pattern did not match, broadcasting blank",
			logging.Field{Key: "vendor", Value: code},
			logging.Field{Key: "field", Value: fieldName},
			logging.Field{Key: "file", Value: filename})
		return ""
	}
	return m[rule.Group]
}

func resolveCellValue(rule profile.FieldRule, grid sheet.Grid) string {
	if rule.Marker != "" {
		row, col, ok := grid.Find(rule.Marker)
		if !ok {
			return ""
		}
		rowOffset := 0
		if rule.Row != nil {
			rowOffset = *rule.Row
		}
		return strings.TrimSpace(grid.CellAt(row+rowOffset, col+rule.Offset).Value)
	}
	return strings.TrimSpace(grid.CellAt(*rule.Row, *rule.Position).Value)
}
