// Package sheet opens spreadsheet containers and exposes their sheets as
// grids of typed cell values. XLSX containers are read through excelize;
// bare CSV exports are presented as single-sheet containers so the rest of
// the pipeline never cares which container a partner ships.
package sheet

import (
	"strconv"
	"strings"
)

// CellKind classifies a raw cell value.
type CellKind int

const (
	KindBlank CellKind = iota
	KindText
	KindNumber
)

// Cell is one raw cell value.
type Cell struct {
	Value string
	Kind  CellKind
}

// NewCell classifies a raw string value into a typed cell.
func NewCell(value string) Cell {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Cell{Kind: KindBlank}
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Cell{Value: value, Kind: KindNumber}
	}
	return Cell{Value: value, Kind: KindText}
}

// IsBlank reports whether the cell is empty or whitespace-only.
func (c Cell) IsBlank() bool {
	return c.Kind == KindBlank
}

// Grid is a rectangular view of one sheet.
type Grid struct {
	Sheet string
	Rows  [][]Cell
}

// NewGrid builds a Grid from raw string rows.
func NewGrid(sheetName string, raw [][]string) Grid {
	rows := make([][]Cell, len(raw))
	for i, r := range raw {
		cells := make([]Cell, len(r))
		for j, v := range r {
			cells[j] = NewCell(v)
		}
		rows[i] = cells
	}
	return Grid{Sheet: sheetName, Rows: rows}
}

// CellAt returns the cell at (row, col), or a blank cell when the
// coordinates fall outside the ragged grid.
func (g Grid) CellAt(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) {
		return Cell{Kind: KindBlank}
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return Cell{Kind: KindBlank}
	}
	return r[col]
}

// Row returns the cells of one row, or nil when out of range.
func (g Grid) Row(row int) []Cell {
	if row < 0 || row >= len(g.Rows) {
		return nil
	}
	return g.Rows[row]
}

// RowTexts returns the trimmed string values of one row.
func (g Grid) RowTexts(row int) []string {
	cells := g.Row(row)
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = strings.TrimSpace(c.Value)
	}
	return texts
}

// Find returns the coordinates of the first cell whose trimmed text equals
// the given value case-insensitively, scanning rows top to bottom.
func (g Grid) Find(text string) (row, col int, ok bool) {
	for i, cells := range g.Rows {
		for j, c := range cells {
			if strings.EqualFold(strings.TrimSpace(c.Value), text) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
