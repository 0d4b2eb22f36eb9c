package pipeline

import (
	"strings"

	"wastedash/domain/waste"
)

// ExclusionRules names the derived columns and aggregate rows that are not
// primary data.
type ExclusionRules struct {
	// DerivedPrefixes drop columns such as 증감_2023 or change_2021.
	DerivedPrefixes []string
	// TotalMarkers drop metric columns whose metric names a subtotal,
	// e.g. 2020_계 or 2020_계(톤).
	TotalMarkers []string
	// AggregateSentinels drop rows whose category is a synthetic total.
	AggregateSentinels []string
}

// DefaultExclusionRules returns the rules for the provincial and national datasets
func DefaultExclusionRules() ExclusionRules {
	return ExclusionRules{
		DerivedPrefixes:    []string{"증감", "change"},
		TotalMarkers:       []string{"계"},
		AggregateSentinels: []string{"전체", "합계", "총계", "수거계", "계", "Total"},
	}
}

// ExcludeDerivedColumns returns a copy of table without derived columns and
// aggregate rows. Applying it twice yields the same table as applying it once.
func ExcludeDerivedColumns(table *waste.WideTable, rules ExclusionRules) *waste.WideTable {
	out := &waste.WideTable{
		Source:         table.Source,
		CategoryColumn: table.CategoryColumn,
	}

	keep := make(map[string]bool, len(table.Columns))
	for _, col := range table.Columns {
		if rules.isDerived(col) {
			continue
		}
		keep[col] = true
		out.Columns = append(out.Columns, col)
	}

	for _, row := range table.Rows {
		if rules.isAggregate(row.Category) {
			continue
		}
		cells := make(map[string]string, len(out.Columns))
		for k, v := range row.Cells {
			if keep[k] {
				cells[k] = v
			}
		}
		out.Rows = append(out.Rows, waste.WideRow{Category: row.Category, Cells: cells})
	}
	return out
}

func (r ExclusionRules) isDerived(column string) bool {
	lower := strings.ToLower(strings.TrimSpace(column))
	for _, p := range r.DerivedPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}

	// only the metric part can be a subtotal; a bare year column never is
	if _, metric, ok := strings.Cut(column, "_"); ok {
		for _, m := range r.TotalMarkers {
			if strings.Contains(metric, m) {
				return true
			}
		}
	}
	return false
}

func (r ExclusionRules) isAggregate(category string) bool {
	c := strings.TrimSpace(category)
	for _, s := range r.AggregateSentinels {
		if strings.EqualFold(c, s) {
			return true
		}
	}
	return false
}
