package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"wastedash/adapters/datareadiness/coercer"
	"wastedash/domain/core"
	"wastedash/domain/waste"
)

// YearExtractor maps a column name to the year embedded in it.
type YearExtractor func(column string) (int, error)

// MetricSplitter parses a column name into its year and optional metric.
type MetricSplitter func(column string) (waste.ColumnKey, error)

// A year is exactly four digits not touching other digits; anything before it
// and any trailing qualifier such as 연도별 or .0 is ignored.
var yearPattern = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)

// ExtractYear finds the 4-digit year in column
func ExtractYear(column string) (int, error) {
	_, year, _, err := locateYear(column)
	return year, err
}

// ParseColumnKey splits a column following the grammar
//
//	column = [prefix] year [ "_" metric | qualifier ]
//
// where year is four digits. Only an underscore directly after the year
// introduces a metric.
func ParseColumnKey(column string) (waste.ColumnKey, error) {
	name, year, rest, err := locateYear(column)
	if err != nil {
		return waste.ColumnKey{}, err
	}
	after, ok := strings.CutPrefix(rest, "_")
	if !ok {
		return waste.ColumnKey{Year: year}, nil
	}
	metric := strings.TrimSpace(after)
	if metric == "" {
		return waste.ColumnKey{}, core.NewColumnFormatError(name, "empty metric after year")
	}
	return waste.ColumnKey{Year: year, Metric: &metric}, nil
}

// BareColumnKey parses columns of tables without a metric dimension; any
// suffix is treated as a qualifier.
func BareColumnKey(column string) (waste.ColumnKey, error) {
	year, err := ExtractYear(column)
	if err != nil {
		return waste.ColumnKey{}, err
	}
	return waste.ColumnKey{Year: year}, nil
}

func locateYear(column string) (name string, year int, rest string, err error) {
	name = strings.TrimSpace(column)
	m := yearPattern.FindStringSubmatchIndex(name)
	if m == nil {
		return name, 0, "", core.NewColumnFormatError(name, "no 4-digit year")
	}
	year, err = strconv.Atoi(name[m[2]:m[3]])
	if err != nil {
		return name, 0, "", core.NewColumnFormatError(name, err.Error())
	}
	return name, year, name[m[3]:], nil
}

// SplitterFor returns the column parser matching a table's dimensionality
func SplitterFor(dim waste.Dimensionality) MetricSplitter {
	if dim == waste.DimensionBare {
		return BareColumnKey
	}
	return ParseColumnKey
}

// ToLongForm emits one record per (row, value column) cell of a cleaned
// table. Every cell maps to exactly one record; cells that do not coerce to a
// number keep a nil value. Column names are validated before any record is
// produced, and two columns resolving to the same (year, metric) are rejected
// because the reshape would no longer be one-to-one.
func ToLongForm(table *waste.WideTable, extractYear YearExtractor, split MetricSplitter) ([]waste.NormalizedRecord, error) {
	if extractYear == nil {
		extractYear = ExtractYear
	}
	if split == nil {
		split = ParseColumnKey
	}

	keys := make([]waste.ColumnKey, len(table.Columns))
	owner := make(map[string]string, len(table.Columns))
	for i, col := range table.Columns {
		year, err := extractYear(col)
		if err != nil {
			return nil, err
		}
		key, err := split(col)
		if err != nil {
			return nil, err
		}
		key.Year = year

		id := key.String()
		if prev, dup := owner[id]; dup {
			return nil, core.NewColumnFormatError(col, fmt.Sprintf("duplicates %q", prev))
		}
		owner[id] = col
		keys[i] = key
	}

	records := make([]waste.NormalizedRecord, 0, len(table.Rows)*len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			records = append(records, waste.NormalizedRecord{
				Category: row.Category,
				Year:     keys[i].Year,
				Metric:   keys[i].Metric,
				Value:    coercer.CoerceNumeric(row.Cells[col]),
			})
		}
	}
	return records, nil
}
