// Package testkit generates synthetic wide waste tables and writes them as
// fixture files in the layouts and encodings the loaders accept.
package testkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"golang.org/x/text/encoding/korean"

	"wastedash/domain/waste"
)

// TableGeneratorConfig configures the synthetic table generator
type TableGeneratorConfig struct {
	CategoryColumn string   `json:"category_column"`
	Categories     int      `json:"categories"`
	Metrics        []string `json:"metrics"` // empty generates bare year columns
	StartYear      int      `json:"start_year"`
	EndYear        int      `json:"end_year"`
	NullRate       float64  `json:"null_rate"`  // share of empty cells
	NoiseRate      float64  `json:"noise_rate"` // share of unparseable cells
	AggregateRow   bool     `json:"aggregate_row"`
	DerivedColumns bool     `json:"derived_columns"`
	Seed           int64    `json:"seed"`
}

// DefaultTableConfig mirrors a provincial per-city metric table
func DefaultTableConfig() TableGeneratorConfig {
	return TableGeneratorConfig{
		CategoryColumn: "시군",
		Categories:     14,
		Metrics:        []string{"하우스", "멀칭"},
		StartYear:      2020,
		EndYear:        2023,
		NullRate:       0.05,
		NoiseRate:      0.02,
		AggregateRow:   true,
		DerivedColumns: true,
		Seed:           42,
	}
}

// TableGenerator produces deterministic tables for a seed
type TableGenerator struct {
	config TableGeneratorConfig
	rng    *rand.Rand
}

// NewTableGenerator creates a generator
func NewTableGenerator(config TableGeneratorConfig) *TableGenerator {
	return &TableGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// ValueColumns returns the year columns in generated order
func (g *TableGenerator) ValueColumns() []string {
	var cols []string
	for y := g.config.StartYear; y <= g.config.EndYear; y++ {
		if len(g.config.Metrics) == 0 {
			cols = append(cols, strconv.Itoa(y))
			continue
		}
		for _, m := range g.config.Metrics {
			cols = append(cols, fmt.Sprintf("%d_%s", y, m))
		}
	}
	return cols
}

// Generate builds a wide table. Values use thousands separators; derived
// change columns and the aggregate row are appended when configured.
func (g *TableGenerator) Generate() *waste.WideTable {
	valueCols := g.ValueColumns()
	table := &waste.WideTable{
		CategoryColumn: g.config.CategoryColumn,
		Columns:        append([]string(nil), valueCols...),
	}
	if g.config.DerivedColumns {
		if len(g.config.Metrics) == 0 {
			table.Columns = append(table.Columns, "증감")
		} else {
			for _, m := range g.config.Metrics {
				table.Columns = append(table.Columns, "증감_"+m)
			}
			table.Columns = append(table.Columns, fmt.Sprintf("%d_계", g.config.EndYear))
		}
	}

	totals := make(map[string]int, len(valueCols))
	for i := 0; i < g.config.Categories; i++ {
		row := waste.WideRow{
			Category: fmt.Sprintf("category_%02d", i+1),
			Cells:    make(map[string]string, len(table.Columns)),
		}
		for _, col := range valueCols {
			row.Cells[col] = g.cell(col, totals)
		}
		for _, col := range table.Columns[len(valueCols):] {
			row.Cells[col] = strconv.Itoa(g.rng.Intn(200) - 100)
		}
		table.Rows = append(table.Rows, row)
	}

	if g.config.AggregateRow {
		agg := waste.WideRow{Category: "합계", Cells: make(map[string]string, len(table.Columns))}
		for _, col := range valueCols {
			agg.Cells[col] = formatThousands(totals[col])
		}
		table.Rows = append([]waste.WideRow{agg}, table.Rows...)
	}
	return table
}

func (g *TableGenerator) cell(col string, totals map[string]int) string {
	r := g.rng.Float64()
	switch {
	case r < g.config.NullRate:
		return ""
	case r < g.config.NullRate+g.config.NoiseRate:
		return "n/a"
	}
	v := g.rng.Intn(20000)
	totals[col] += v
	return formatThousands(v)
}

func formatThousands(v int) string {
	s := strconv.Itoa(v)
	neg := v < 0
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// EncodeCSV renders table as CSV text in enc
func EncodeCSV(table *waste.WideTable, enc waste.Encoding) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append([]string{table.CategoryColumn}, table.Columns...)); err != nil {
		return nil, err
	}
	for _, row := range table.Rows {
		record := []string{row.Category}
		for _, col := range table.Columns {
			record = append(record, row.Cells[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	switch enc {
	case waste.EncodingUTF8:
		return buf.Bytes(), nil
	case waste.EncodingUTF8BOM:
		return append([]byte("\ufeff"), buf.Bytes()...), nil
	case waste.EncodingEUCKR, waste.EncodingCP949:
		return korean.EUCKR.NewEncoder().Bytes(buf.Bytes())
	}
	return nil, fmt.Errorf("unsupported encoding: %q", enc)
}

// WriteCSV writes table to path in enc
func WriteCSV(path string, table *waste.WideTable, enc waste.Encoding) error {
	data, err := EncodeCSV(table, enc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
