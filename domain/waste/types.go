// Package waste holds the value types shared by the normalization pipeline:
// the raw wide table read from a source file, the long-form record it is
// reshaped into, and the aggregates derived from those records.
package waste

import (
	"path/filepath"
	"strconv"
)

// Encoding names a text encoding candidate for delimited sources.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-sig"
	EncodingEUCKR   Encoding = "euc-kr"
	EncodingCP949   Encoding = "cp949"
)

// DefaultEncodings is tried when a source does not name its own candidates.
var DefaultEncodings = []Encoding{EncodingUTF8BOM, EncodingCP949}

// Source identifies a flat file and the encodings to attempt, in order.
type Source struct {
	Path      string
	Encodings []Encoding
}

// Key is the cache identity of the source.
func (s Source) Key() string {
	if abs, err := filepath.Abs(s.Path); err == nil {
		return abs
	}
	return filepath.Clean(s.Path)
}

// CandidateEncodings returns the configured encodings or the defaults.
func (s Source) CandidateEncodings() []Encoding {
	if len(s.Encodings) == 0 {
		return DefaultEncodings
	}
	return s.Encodings
}

// Dimensionality tells whether value columns carry a metric suffix.
type Dimensionality string

const (
	// DimensionMetric columns are named {year}_{metric}.
	DimensionMetric Dimensionality = "metric"
	// DimensionBare columns are named {year}.
	DimensionBare Dimensionality = "bare"
)

// WideRow is one category row of a wide table. Cells are keyed by column name.
type WideRow struct {
	Category string
	Cells    map[string]string
}

// WideTable is a raw table keyed by category with year or year×metric
// columns. Rows keep the source file's order; that order is the category
// enumeration order used for tie-breaks.
type WideTable struct {
	Source         string
	CategoryColumn string
	Columns        []string
	Rows           []WideRow
}

// Categories lists row categories in source order.
func (t *WideTable) Categories() []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row.Category)
	}
	return out
}

// HasColumn reports whether name is one of the value columns.
func (t *WideTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnKey is the parsed form of a value column name.
type ColumnKey struct {
	Year   int
	Metric *string
}

// String renders the key back into the {year}[_{metric}] column grammar.
func (k ColumnKey) String() string {
	if k.Metric == nil {
		return strconv.Itoa(k.Year)
	}
	return strconv.Itoa(k.Year) + "_" + *k.Metric
}

// NormalizedRecord is one (category, year, metric, value) tuple. Metric is
// nil for bare-year tables; Value is nil when the source cell was missing or
// not numeric.
type NormalizedRecord struct {
	Category string   `json:"category"`
	Year     int      `json:"year"`
	Metric   *string  `json:"metric"`
	Value    *float64 `json:"value"`
}

// HasValue reports whether the record carries a numeric value.
func (r NormalizedRecord) HasValue() bool {
	return r.Value != nil
}

// MetricLabel returns the metric or an empty string.
func (r NormalizedRecord) MetricLabel() string {
	if r.Metric == nil {
		return ""
	}
	return *r.Metric
}

// GroupTotal is the summed value of one group.
type GroupTotal struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// TrendSummary holds the metric-card aggregates of a filtered record set.
type TrendSummary struct {
	Total       float64             `json:"total"`
	YearlyMean  float64             `json:"yearly_mean"`
	TopCategory *string             `json:"top_category"`
	Groups      []GroupTotal        `json:"groups"`
	Deltas      map[string]*float64 `json:"deltas,omitempty"`
	MinYear     int                 `json:"min_year,omitempty"`
	MaxYear     int                 `json:"max_year,omitempty"`
}

// PivotRow is one category of a pivot grid. Change is nil when either the
// first or last year is missing for the category.
type PivotRow struct {
	Category string           `json:"category"`
	Values   map[int]*float64 `json:"values"`
	Change   *float64         `json:"change"`
}

// PivotGrid is a category-by-year grid with a derived change column.
type PivotGrid struct {
	Years []int      `json:"years"`
	Rows  []PivotRow `json:"rows"`
}

// Share is one slice of a composition (pie) view.
type Share struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Ratio    float64 `json:"ratio"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
