package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/adapters/excel"
	"wastedash/domain/waste"
	"wastedash/internal"
)

func TestTableGeneratorIsDeterministic(t *testing.T) {
	cfg := DefaultTableConfig()
	a := NewTableGenerator(cfg).Generate()
	b := NewTableGenerator(cfg).Generate()
	assert.Equal(t, a, b)

	cfg.Seed = 7
	c := NewTableGenerator(cfg).Generate()
	assert.NotEqual(t, a.Rows, c.Rows)
}

func TestTableGeneratorLayout(t *testing.T) {
	cfg := DefaultTableConfig()
	cfg.Categories = 3
	cfg.StartYear, cfg.EndYear = 2021, 2022
	gen := NewTableGenerator(cfg)
	table := gen.Generate()

	assert.Equal(t, []string{"2021_하우스", "2021_멀칭", "2022_하우스", "2022_멀칭"}, gen.ValueColumns())
	assert.Equal(t, append(gen.ValueColumns(), "증감_하우스", "증감_멀칭", "2022_계"), table.Columns)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "합계", table.Rows[0].Category)

	cfg.Metrics = nil
	cfg.AggregateRow = false
	cfg.DerivedColumns = false
	bare := NewTableGenerator(cfg).Generate()
	assert.Equal(t, []string{"2021", "2022"}, bare.Columns)
	assert.Len(t, bare.Rows, 3)
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0", formatThousands(0))
	assert.Equal(t, "999", formatThousands(999))
	assert.Equal(t, "1,000", formatThousands(1000))
	assert.Equal(t, "12,345,678", formatThousands(12345678))
	assert.Equal(t, "-1,500", formatThousands(-1500))
}

func TestWriteCSVReadsBack(t *testing.T) {
	cfg := DefaultTableConfig()
	cfg.Categories = 4
	table := NewTableGenerator(cfg).Generate()
	reader := excel.NewDataReader(internal.NewLogger(internal.LogLevelError))

	for _, enc := range []waste.Encoding{waste.EncodingUTF8BOM, waste.EncodingCP949} {
		t.Run(string(enc), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "generated.csv")
			require.NoError(t, WriteCSV(path, table, enc))

			got, err := reader.ReadTable(context.Background(), waste.Source{Path: path})
			require.NoError(t, err)
			assert.Equal(t, table.CategoryColumn, got.CategoryColumn)
			assert.Equal(t, table.Columns, got.Columns)
			require.Len(t, got.Rows, len(table.Rows))
			for i := range table.Rows {
				assert.Equal(t, table.Rows[i].Category, got.Rows[i].Category)
				for _, col := range table.Columns {
					assert.Equal(t, table.Rows[i].Cells[col], got.Rows[i].Cells[col])
				}
			}
		})
	}

	_, err := EncodeCSV(table, waste.Encoding("latin-1"))
	assert.Error(t, err)
}
