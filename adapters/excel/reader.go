package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"wastedash/domain/core"
	"wastedash/domain/waste"
	"wastedash/internal"
)

// DataReader handles reading Excel and CSV sources into wide tables
type DataReader struct {
	logger *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{logger: logger.WithComponent("DataReader")}
}

// ReadTable reads src into a wide table. CSV sources are decoded under each
// candidate encoding in order and the first successful parse wins. Every
// failure is reported as a core.DataSourceError.
func (r *DataReader) ReadTable(ctx context.Context, src waste.Source) (*waste.WideTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(src.Path); err != nil {
		return nil, core.NewDataSourceError(src.Path, nil, err)
	}

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".xlsx", ".xlsm":
		return r.readExcel(src)
	default:
		return r.readCSV(src)
	}
}

func (r *DataReader) readCSV(src waste.Source) (*waste.WideTable, error) {
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, core.NewDataSourceError(src.Path, nil, err)
	}

	var attempts []string
	var lastErr error
	for _, enc := range src.CandidateEncodings() {
		attempts = append(attempts, string(enc))
		start := time.Now()

		text, err := decode(raw, enc)
		if err != nil {
			r.logger.Debug("%s: %v", src.Path, err)
			lastErr = err
			continue
		}

		reader := csv.NewReader(strings.NewReader(text))
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		rows, err := reader.ReadAll()
		if err != nil {
			r.logger.Debug("%s: csv parse under %s failed: %v", src.Path, enc, err)
			lastErr = fmt.Errorf("%s: %w", enc, err)
			continue
		}

		table, err := r.processRows(src.Path, rows)
		if err != nil {
			lastErr = err
			continue
		}
		r.logger.Info("CSV %s read as %s in %.2fms (%d columns, %d rows)",
			src.Path, enc, float64(time.Since(start).Nanoseconds())/1e6, len(table.Columns), len(table.Rows))
		return table, nil
	}

	return nil, core.NewDataSourceError(src.Path, attempts, lastErr)
}

func (r *DataReader) readExcel(src waste.Source) (*waste.WideTable, error) {
	start := time.Now()
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, core.NewDataSourceError(src.Path, nil, fmt.Errorf("failed to open Excel file: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewDataSourceError(src.Path, nil, fmt.Errorf("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewDataSourceError(src.Path, nil, fmt.Errorf("failed to read %s: %w", sheets[0], err))
	}

	table, err := r.processRows(src.Path, rows)
	if err != nil {
		return nil, core.NewDataSourceError(src.Path, nil, err)
	}
	r.logger.Info("Excel %s sheet %q read in %.2fms (%d columns, %d rows)",
		src.Path, sheets[0], float64(time.Since(start).Nanoseconds())/1e6, len(table.Columns), len(table.Rows))
	return table, nil
}

// processRows converts raw string rows into a wide table; column 0 is the category key
func (r *DataReader) processRows(path string, rows [][]string) (*waste.WideTable, error) {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, fmt.Errorf("table must have a header with a category column and at least one value column")
	}

	headerRow := rows[0]
	// spreadsheet exports often leave trailing separators on the header line
	for len(headerRow) > 2 && strings.TrimSpace(headerRow[len(headerRow)-1]) == "" {
		headerRow = headerRow[:len(headerRow)-1]
	}
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if h == "" {
			return nil, fmt.Errorf("empty header in column %d", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate header %q", h)
		}
		seen[h] = true
		headers[i] = h
	}

	table := &waste.WideTable{
		Source:         path,
		CategoryColumn: headers[0],
		Columns:        append([]string(nil), headers[1:]...),
	}

	categories := make(map[string]bool)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}

		category := strings.TrimSpace(row[0])
		if categories[category] {
			r.logger.Warn("%s: duplicate category %q on line %d", path, category, i+1)
		}
		categories[category] = true

		cells := make(map[string]string, len(table.Columns))
		for j, cell := range row {
			if j == 0 || j >= len(headers) {
				continue
			}
			cells[headers[j]] = strings.TrimSpace(cell)
		}
		table.Rows = append(table.Rows, waste.WideRow{Category: category, Cells: cells})
	}

	return table, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
