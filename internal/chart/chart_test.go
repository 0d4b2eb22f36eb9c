package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"

	"wastedash/domain/core"
	"wastedash/domain/waste"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func bareRecords() []waste.NormalizedRecord {
	return []waste.NormalizedRecord{
		{Category: "plastic", Year: 2021, Value: waste.Float(1200)},
		{Category: "plastic", Year: 2020, Value: waste.Float(1000)},
		{Category: "bags", Year: 2020, Value: waste.Float(300)},
		{Category: "bags", Year: 2021, Value: nil},
	}
}

func metricRecords() []waste.NormalizedRecord {
	return []waste.NormalizedRecord{
		{Category: "Jeonju", Year: 2021, Metric: waste.String("house"), Value: waste.Float(1100)},
		{Category: "Jeonju", Year: 2021, Metric: waste.String("mulch"), Value: waste.Float(250)},
		{Category: "Iksan", Year: 2021, Metric: waste.String("house"), Value: waste.Float(500)},
		{Category: "Iksan", Year: 2021, Metric: waste.String("mulch"), Value: waste.Float(400)},
	}
}

func TestRenderBarAndLine(t *testing.T) {
	cases := []struct {
		name    string
		kind    Kind
		records []waste.NormalizedRecord
	}{
		{"grouped bars", KindBar, bareRecords()},
		{"stacked bars", KindBar, metricRecords()},
		{"lines", KindLine, bareRecords()},
		{"metric lines", KindLine, metricRecords()},
		{"empty bars", KindBar, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img, err := Render(tc.kind, tc.records, Options{Title: "amount", YLabel: "t"})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngSignature))
		})
	}
}

func TestRenderPieIsUnsupported(t *testing.T) {
	_, err := Render(KindPie, bareRecords(), Options{})
	assert.ErrorIs(t, err, core.ErrUnsupportedChart)
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"":      KindBar,
		"Bar":   KindBar,
		"막대그래프": KindBar,
		"line":  KindLine,
		"선그래프":  KindLine,
		"pie":   KindPie,
		"파이차트":  KindPie,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("radar")
	assert.ErrorIs(t, err, core.ErrUnsupportedChart)
}

func TestStackedBarsKeepLatestYear(t *testing.T) {
	records := []waste.NormalizedRecord{
		{Category: "전주시", Year: 2020, Metric: waste.String("하우스"), Value: waste.Float(1000)},
		{Category: "전주시", Year: 2021, Metric: waste.String("하우스"), Value: waste.Float(1100)},
		{Category: "익산시", Year: 2020, Metric: waste.String("하우스"), Value: waste.Float(500)},
	}

	latest, year := latestYearOnly(records)
	assert.Equal(t, 2021, year)
	g := buildGrid(latest, categoryKey, metricKey)
	assert.Equal(t, []string{"전주시"}, g.rows)
	assert.Equal(t, 1100.0, g.cells[[2]string{"전주시", "하우스"}])

	img, err := Render(KindBar, records, Options{Title: "발생량"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngSignature))
}

// restoreDefaultFonts puts the plot defaults back after a test installs a font
func restoreDefaultFonts(t *testing.T) {
	plotDefault, plotterDefault := plot.DefaultFont, plotter.DefaultFont
	t.Cleanup(func() {
		plot.DefaultFont = plotDefault
		plotter.DefaultFont = plotterDefault
	})
}

func TestUseFontRejectsFontWithoutHangul(t *testing.T) {
	restoreDefaultFonts(t)
	before := plot.DefaultFont
	path := filepath.Join(t.TempDir(), "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))

	_, err := UseFont(path)
	assert.ErrorIs(t, err, ErrNoHangul)
	assert.Equal(t, before, plot.DefaultFont)

	_, err = UseFont(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)
}

func TestInstallSetsPlotDefaults(t *testing.T) {
	restoreDefaultFonts(t)
	face, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)

	fnt := install(face, "GoRegularChartTest")
	p := plot.New()
	assert.Equal(t, fnt.Typeface, p.Title.TextStyle.Font.Typeface)
	assert.Equal(t, fnt.Typeface, p.X.Tick.Label.Font.Typeface)
	assert.Equal(t, fnt.Typeface, p.Legend.TextStyle.Font.Typeface)
	assert.Equal(t, fnt, plotter.DefaultFont)
	assert.Same(t, face, font.DefaultCache.Lookup(p.Title.TextStyle.Font, 12).Face)
}

func TestHangulFontDrawsKoreanLabels(t *testing.T) {
	path := os.Getenv("CHART_FONT")
	if path == "" {
		var ok bool
		if path, ok = FindHangulFont(); !ok {
			t.Skip("no Hangul font installed; set CHART_FONT to run")
		}
	}
	restoreDefaultFonts(t)

	_, err := UseFont(path)
	require.NoError(t, err)

	p := plot.New()
	face := font.DefaultCache.Lookup(p.Title.TextStyle.Font, 12).Face
	require.NotNil(t, face)
	var buf sfnt.Buffer
	for _, r := range "전주시 하우스 발생량 (톤)" {
		if r == ' ' {
			continue
		}
		idx, err := face.GlyphIndex(&buf, r)
		require.NoError(t, err)
		assert.NotZero(t, idx, "glyph for %q", r)
	}

	img, err := Render(KindBar, []waste.NormalizedRecord{
		{Category: "전주시", Year: 2021, Metric: waste.String("하우스"), Value: waste.Float(1100)},
	}, Options{Title: "전북 영농 폐비닐 발생량", YLabel: "발생량 (톤)"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngSignature))
}
