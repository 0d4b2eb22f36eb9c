package pipeline

import (
	"sort"
	"strconv"

	"wastedash/domain/waste"
)

// PivotDelta reshapes records of a single metric dimension into a
// category-by-year grid and derives Change = last year - first year. A
// category missing either end year gets a nil Change. When records carry
// several metrics their values are summed per (category, year).
func PivotDelta(records []waste.NormalizedRecord) waste.PivotGrid {
	grid := waste.PivotGrid{Years: Years(records), Rows: []waste.PivotRow{}}
	if len(grid.Years) == 0 {
		return grid
	}

	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(grid.Rows)
			index[r.Category] = i
			grid.Rows = append(grid.Rows, waste.PivotRow{
				Category: r.Category,
				Values:   make(map[int]*float64, len(grid.Years)),
			})
		}
		row := &grid.Rows[i]
		if _, seen := row.Values[r.Year]; !seen {
			row.Values[r.Year] = nil
		}
		if r.Value == nil {
			continue
		}
		if cur := row.Values[r.Year]; cur != nil {
			row.Values[r.Year] = waste.Float(*cur + *r.Value)
		} else {
			row.Values[r.Year] = waste.Float(*r.Value)
		}
	}

	first, last := grid.Years[0], grid.Years[len(grid.Years)-1]
	for i := range grid.Rows {
		row := &grid.Rows[i]
		a, b := row.Values[first], row.Values[last]
		if a != nil && b != nil {
			row.Change = waste.Float(*b - *a)
		}
	}
	return grid
}

// SortByChange orders rows by Change; rows without a change go last
func SortByChange(grid waste.PivotGrid, descending bool) waste.PivotGrid {
	rows := append([]waste.PivotRow(nil), grid.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Change, rows[j].Change
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case descending:
			return *a > *b
		default:
			return *a < *b
		}
	})
	return waste.PivotGrid{Years: grid.Years, Rows: rows}
}

// Unpivot turns a grid back into long-form records, one per (row, year).
// The derived change column is not part of the output.
func Unpivot(grid waste.PivotGrid, metric *string) []waste.NormalizedRecord {
	out := make([]waste.NormalizedRecord, 0, len(grid.Rows)*len(grid.Years))
	for _, row := range grid.Rows {
		for _, y := range grid.Years {
			out = append(out, waste.NormalizedRecord{
				Category: row.Category,
				Year:     y,
				Metric:   metric,
				Value:    row.Values[y],
			})
		}
	}
	return out
}

// ToWide rebuilds a wide table from long-form records, naming columns with
// the {year}[_{metric}] grammar. Columns are ordered by year then by first
// appearance of the metric; rows by first appearance of the category.
func ToWide(records []waste.NormalizedRecord, categoryColumn string) *waste.WideTable {
	table := &waste.WideTable{CategoryColumn: categoryColumn}

	type colRef struct {
		key   waste.ColumnKey
		name  string
		order int
	}
	cols := make(map[string]*colRef)
	rowIndex := make(map[string]int)
	for _, r := range records {
		key := waste.ColumnKey{Year: r.Year, Metric: r.Metric}
		name := key.String()
		if _, ok := cols[name]; !ok {
			cols[name] = &colRef{key: key, name: name, order: len(cols)}
		}
		i, ok := rowIndex[r.Category]
		if !ok {
			i = len(table.Rows)
			rowIndex[r.Category] = i
			table.Rows = append(table.Rows, waste.WideRow{Category: r.Category, Cells: make(map[string]string)})
		}
		cell := ""
		if r.Value != nil {
			cell = strconv.FormatFloat(*r.Value, 'f', -1, 64)
		}
		table.Rows[i].Cells[name] = cell
	}

	ordered := make([]*colRef, 0, len(cols))
	for _, c := range cols {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].key.Year != ordered[j].key.Year {
			return ordered[i].key.Year < ordered[j].key.Year
		}
		return ordered[i].order < ordered[j].order
	})
	for _, c := range ordered {
		table.Columns = append(table.Columns, c.name)
	}
	return table
}
