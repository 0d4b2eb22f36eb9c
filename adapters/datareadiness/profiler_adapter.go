// Package datareadiness profiles raw wide tables so operators can see which
// cells will not survive numeric coercion before a view goes live.
package datareadiness

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"wastedash/adapters/datareadiness/coercer"
	"wastedash/domain/waste"
)

const maxSamples = 3

// ColumnProfile describes the cells of one value column
type ColumnProfile struct {
	Column        string   `json:"column"`
	Excluded      bool     `json:"excluded"`
	Cells         int      `json:"cells"`
	Numeric       int      `json:"numeric"`
	Missing       int      `json:"missing"`
	Unparseable   int      `json:"unparseable"`
	ZeroCount     int      `json:"zero_count"`
	NegativeCount int      `json:"negative_count"`
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Mean          *float64 `json:"mean"`
	Median        *float64 `json:"median"`
	StdDev        *float64 `json:"std_dev"`
	QualityScore  float64  `json:"quality_score"`
	Samples       []string `json:"unparseable_samples,omitempty"`
	// Fractional counts numeric cells that are not whole counts; only
	// checked for count tables.
	Fractional int `json:"fractional,omitempty"`
}

// TableProfile is the readiness report of a whole table
type TableProfile struct {
	Source         string          `json:"source"`
	CategoryColumn string          `json:"category_column"`
	Rows           int             `json:"rows"`
	Counts         bool            `json:"counts"`
	Columns        []ColumnProfile `json:"columns"`
	QualityScore   float64         `json:"quality_score"`
}

// ProfilerAdapter profiles wide tables with a numeric coercer
type ProfilerAdapter struct {
	coercer *coercer.NumericCoercer
}

// NewProfilerAdapter creates a new profiler adapter
func NewProfilerAdapter(c *coercer.NumericCoercer) *ProfilerAdapter {
	if c == nil {
		c = coercer.NewNumericCoercer(coercer.DefaultCoercionConfig())
	}
	return &ProfilerAdapter{coercer: c}
}

// ProfileOptions selects the value domain each cell is checked against
type ProfileOptions struct {
	// Counts marks tables of item counts, whose values must be whole numbers
	Counts bool
}

// ProfileTable analyzes every value column of table
func (p *ProfilerAdapter) ProfileTable(ctx context.Context, table *waste.WideTable, opts ProfileOptions) (*TableProfile, error) {
	result := &TableProfile{
		Source:         table.Source,
		CategoryColumn: table.CategoryColumn,
		Rows:           len(table.Rows),
		Counts:         opts.Counts,
		Columns:        make([]ColumnProfile, 0, len(table.Columns)),
	}

	var cells, numeric int
	for _, col := range table.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		profile := p.profileColumn(col, table.Rows, opts)
		cells += profile.Cells
		numeric += profile.Numeric
		result.Columns = append(result.Columns, profile)
	}
	result.QualityScore = computeQualityScore(numeric, cells)
	return result, nil
}

// profileColumn analyzes a single column across all rows
func (p *ProfilerAdapter) profileColumn(column string, rows []waste.WideRow, opts ProfileOptions) ColumnProfile {
	profile := ColumnProfile{Column: column, Cells: len(rows)}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		raw := row.Cells[column]
		if p.coercer.Clean(raw) == "" {
			profile.Missing++
			continue
		}
		v := p.coercer.Coerce(raw)
		if v == nil {
			profile.Unparseable++
			if len(profile.Samples) < maxSamples {
				profile.Samples = append(profile.Samples, raw)
			}
			continue
		}
		values = append(values, *v)
		if opts.Counts && p.coercer.CoerceCount(raw) == nil {
			profile.Fractional++
		}
		if *v == 0 {
			profile.ZeroCount++
		}
		if *v < 0 {
			profile.NegativeCount++
		}
	}

	profile.Numeric = len(values)
	profile.QualityScore = computeQualityScore(profile.Numeric, profile.Cells)
	if len(values) > 0 {
		minV, _ := stats.Min(values)
		maxV, _ := stats.Max(values)
		mean, _ := stats.Mean(values)
		profile.Min, profile.Max, profile.Mean = &minV, &maxV, &mean

		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		profile.Median = &median
		if len(values) > 1 {
			sd := stat.StdDev(values, nil)
			profile.StdDev = &sd
		}
	}
	return profile
}

// computeQualityScore is the share of cells that coerced to a number
func computeQualityScore(numeric, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Max(0.0, float64(numeric)/float64(total))
}
