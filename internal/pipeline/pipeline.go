// Package pipeline normalizes wide statistical tables into long-form records
// and derives the summaries and year-over-year grids the dashboards display.
//
// The steps are plain functions over values:
//
//	load (SourceCache) -> ExcludeDerivedColumns -> ToLongForm -> Selection.Apply
//	  -> Summarize | PivotDelta | Shares
//
// Only SourceCache holds state.
package pipeline

import (
	"wastedash/domain/waste"
)

// Normalize cleans table and reshapes it to long form using the column
// grammar of dim.
func Normalize(table *waste.WideTable, dim waste.Dimensionality, rules ExclusionRules) ([]waste.NormalizedRecord, error) {
	cleaned := ExcludeDerivedColumns(table, rules)
	return ToLongForm(cleaned, ExtractYear, SplitterFor(dim))
}
