package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
)

// ErrNoHangul is returned for fonts that cannot draw Korean labels
var ErrNoHangul = errors.New("font has no Hangul glyphs")

// hangulSample must map to real glyphs for a font to be used
const hangulSample = "한글전주시"

// HangulFontCandidates are well-known install locations of Korean fonts on
// Linux, macOS and Windows, in preference order
var HangulFontCandidates = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/nanum/NanumGothic.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
	"/System/Library/Fonts/Supplemental/AppleGothic.ttf",
	"/System/Library/Fonts/AppleSDGothicNeo.ttc",
	`C:\Windows\Fonts\malgun.ttf`,
}

// FindHangulFont returns the first installed candidate
func FindHangulFont() (string, bool) {
	for _, path := range HangulFontCandidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// UseFont loads a TTF, OTF or the first face of a TTC collection and makes it
// the default for every chart rendered afterwards.
func UseFont(path string) (font.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return font.Font{}, fmt.Errorf("failed to read chart font: %w", err)
	}
	face, err := parseFace(data)
	if err != nil {
		return font.Font{}, fmt.Errorf("failed to parse chart font %s: %w", path, err)
	}
	if !coversHangul(face) {
		return font.Font{}, fmt.Errorf("%s: %w", path, ErrNoHangul)
	}
	return install(face, typefaceName(face, path)), nil
}

func parseFace(data []byte) (*opentype.Font, error) {
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, err
	}
	if coll.NumFonts() == 0 {
		return nil, errors.New("empty font collection")
	}
	return coll.Font(0)
}

func coversHangul(face *opentype.Font) bool {
	var buf sfnt.Buffer
	for _, r := range hangulSample {
		idx, err := face.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return false
		}
	}
	return true
}

func typefaceName(face *opentype.Font, path string) font.Typeface {
	if name, err := face.Name(nil, sfnt.NameIDFamily); err == nil && strings.TrimSpace(name) != "" {
		return font.Typeface(name)
	}
	return font.Typeface(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// install registers face in the shared plot font cache and points the plot
// and plotter defaults at it
func install(face *opentype.Font, typeface font.Typeface) font.Font {
	fnt := font.Font{Typeface: typeface}
	font.DefaultCache.Add(font.Collection{{Font: fnt, Face: face}})
	plot.DefaultFont = fnt
	plotter.DefaultFont = fnt
	return fnt
}
