package views

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"wastedash/adapters/excel"
	"wastedash/domain/core"
	"wastedash/domain/waste"
	"wastedash/internal"
	"wastedash/internal/pipeline"
)

const pesticideCSV = "구분,2020_플라스틱,2020_농약봉지류,2021_플라스틱,2021_농약봉지류\n" +
	"전체,\"3,000\",\"1,000\",\"3,300\",900\n" +
	"전주시,\"2,000\",600,\"2,100\",500\n" +
	"군산시,\"1,000\",400,\"1,200\",400\n"

const recyclingCSV = "구분,2020,2021,2022,2023\n" +
	"수거계,\"10,000\",\"11,000\",\"12,000\",\"13,000\"\n" +
	"플라스틱,\"6,000\",\"6,500\",\"7,000\",\"5,700\"\n" +
	"봉지류,\"4,000\",\"4,500\",\"5,000\",\"7,300\"\n" +
	"병류,,n/a,0,\n"

func newFixtureService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	legacy, err := korean.EUCKR.NewEncoder().Bytes([]byte(pesticideCSV))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pesticide.csv"), legacy, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recycling.csv"), []byte(recyclingCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("구분,연도\nA,1\n"), 0o644))

	logger := internal.NewLogger(internal.LogLevelError)
	cache := pipeline.NewSourceCache(excel.NewDataReader(logger), logger)
	catalog := []ViewSpec{
		{ID: "pesticide", File: "pesticide.csv", Dimensionality: waste.DimensionMetric, Unit: CountUnit},
		{ID: "recycling", File: "recycling.csv", Dimensionality: waste.DimensionBare},
		{ID: "broken", File: "broken.csv", Dimensionality: waste.DimensionBare},
		{ID: "missing", File: "missing.csv", Dimensionality: waste.DimensionBare},
	}
	return NewService(cache, catalog, Options{
		DataDir:          dir,
		DefaultEncodings: waste.DefaultEncodings,
		Logger:           logger,
	}), dir
}

func TestRecordsFromLegacyEncodedMetricView(t *testing.T) {
	svc, _ := newFixtureService(t)

	records, err := svc.Records(context.Background(), "pesticide", pipeline.Selection{})
	require.NoError(t, err)
	assert.Len(t, records, 2*4, "aggregate row excluded")
	assert.NotContains(t, pipeline.Categories(records), "전체")
}

func TestSummaryOfBareView(t *testing.T) {
	svc, _ := newFixtureService(t)

	summary, err := svc.Summary(context.Background(), "recycling", pipeline.Selection{}, pipeline.GroupByCategory)
	require.NoError(t, err)

	assert.Equal(t, 46000.0, summary.Total)
	require.NotNil(t, summary.TopCategory)
	assert.Equal(t, "플라스틱", *summary.TopCategory)
	require.NotNil(t, summary.Deltas["봉지류"])
	assert.Equal(t, 3300.0, *summary.Deltas["봉지류"])
	assert.Nil(t, summary.Deltas["병류"])
}

func TestPivotSortsByChange(t *testing.T) {
	svc, _ := newFixtureService(t)

	grid, err := svc.Pivot(context.Background(), "recycling", pipeline.Selection{})
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, grid.Years)
	require.Len(t, grid.Rows, 3)
	assert.Equal(t, "봉지류", grid.Rows[0].Category)
	assert.Equal(t, "플라스틱", grid.Rows[1].Category)
	assert.Equal(t, -300.0, *grid.Rows[1].Change)
	assert.Equal(t, "병류", grid.Rows[2].Category)
	assert.Nil(t, grid.Rows[2].Change)
}

func TestSharesUseLatestYear(t *testing.T) {
	svc, _ := newFixtureService(t)

	year, shares, err := svc.Shares(context.Background(), "recycling", pipeline.Selection{})
	require.NoError(t, err)
	assert.Equal(t, 2023, year)
	require.Len(t, shares, 2)
	assert.InDelta(t, 0.43846, shares[0].Ratio, 1e-4)

	year, shares, err = svc.Shares(context.Background(), "recycling", pipeline.Selection{Categories: []string{"없음"}})
	require.NoError(t, err)
	assert.Zero(t, year)
	assert.Empty(t, shares)
}

func TestFacets(t *testing.T) {
	svc, _ := newFixtureService(t)

	facets, err := svc.Facets(context.Background(), "pesticide")
	require.NoError(t, err)
	assert.Equal(t, []string{"전주시", "군산시"}, facets.Categories)
	assert.Equal(t, []string{"플라스틱", "농약봉지류"}, facets.Metrics)
	assert.Equal(t, []int{2020, 2021}, facets.Years)
}

func TestViewErrorsAreIsolated(t *testing.T) {
	svc, _ := newFixtureService(t)
	ctx := context.Background()

	_, err := svc.Records(ctx, "broken", pipeline.Selection{})
	require.Error(t, err)
	col, ok := core.OffendingColumn(err)
	require.True(t, ok)
	assert.Equal(t, "연도", col)

	_, err = svc.Records(ctx, "missing", pipeline.Selection{})
	assert.True(t, core.IsDataSourceError(err))

	_, err = svc.Records(ctx, "nope", pipeline.Selection{})
	assert.True(t, core.IsNotFoundError(err))

	_, err = svc.Records(ctx, "recycling", pipeline.Selection{})
	assert.NoError(t, err, "other views keep working")
}

func TestViewsKeepCatalogOrder(t *testing.T) {
	svc, _ := newFixtureService(t)
	ids := []string{}
	for _, v := range svc.Views() {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"pesticide", "recycling", "broken", "missing"}, ids)
}

func TestSourceForUsesViewEncodings(t *testing.T) {
	svc := NewService(nil, DefaultCatalog(), Options{DataDir: "/data", DefaultEncodings: []waste.Encoding{waste.EncodingCP949}})

	spec, err := svc.View("container-collection")
	require.NoError(t, err)
	src := svc.SourceFor(spec)
	assert.Equal(t, filepath.Join("/data", spec.File), src.Path)
	assert.Equal(t, []waste.Encoding{waste.EncodingUTF8BOM, waste.EncodingCP949}, src.Encodings)

	spec, err = svc.View("vinyl")
	require.NoError(t, err)
	assert.Equal(t, []waste.Encoding{waste.EncodingCP949}, svc.SourceFor(spec).Encodings)
}

func TestParseCatalog(t *testing.T) {
	specs, err := ParseCatalog([]byte(`{"views": [
		{"id": "a", "file": "a.csv", "dimensionality": "bare", "encodings": ["cp949"]},
		{"id": "b", "file": "b.xlsx"}
	]}`))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, waste.DimensionBare, specs[0].Dimensionality)
	assert.Equal(t, []waste.Encoding{waste.EncodingCP949}, specs[0].Encodings)
	assert.Equal(t, waste.DimensionMetric, specs[1].Dimensionality)
	assert.Equal(t, "b", specs[1].Title)

	_, err = ParseCatalog([]byte(`{"views": [{"id": "a"}]}`))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte(`{"views": [{"id": "a", "file": "x", "dimensionality": "cube"}]}`))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte(`{"views": [{"id": "a", "file": "x"}, {"id": "a", "file": "y"}]}`))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte(`not json`))
	assert.Error(t, err)
}

func TestProfile(t *testing.T) {
	svc, _ := newFixtureService(t)

	profile, err := svc.Profile(context.Background(), "recycling")
	require.NoError(t, err)
	assert.Equal(t, 4, profile.Rows, "aggregate row is still part of the raw table")
	require.Len(t, profile.Columns, 4)
	for _, col := range profile.Columns {
		assert.False(t, col.Excluded)
	}
	last := profile.Columns[3]
	assert.Equal(t, "2023", last.Column)
	assert.Equal(t, 1, last.Missing)
	assert.Equal(t, 3, last.Numeric)

	pesticide, err := svc.Profile(context.Background(), "pesticide")
	require.NoError(t, err)
	require.Len(t, pesticide.Columns, 4)
	assert.Equal(t, 3, pesticide.Columns[1].Numeric)
	assert.True(t, pesticide.Counts)
	assert.False(t, profile.Counts)
	for _, col := range pesticide.Columns {
		assert.Zero(t, col.Fractional, col.Column)
	}

	_, err = svc.Profile(context.Background(), "nope")
	assert.True(t, core.IsNotFoundError(err))
}
