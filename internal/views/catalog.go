package views

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"wastedash/adapters/excel"
	"wastedash/domain/waste"
)

// ViewSpec describes one dashboard dataset: where its table lives and how
// its columns are named.
type ViewSpec struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	File           string               `json:"file"`
	Dimensionality waste.Dimensionality `json:"dimensionality"`
	ValueLabel     string               `json:"value_label"`
	Unit           string               `json:"unit"`
	Encodings      []waste.Encoding     `json:"encodings,omitempty"`
}

// CountUnit is the unit of views that tally items rather than weigh them
const CountUnit = "개"

// CountsItems reports whether the view's values are whole item counts
func (v ViewSpec) CountsItems() bool {
	return v.Unit == CountUnit
}

// DefaultCatalog lists the provincial and national waste datasets
func DefaultCatalog() []ViewSpec {
	return []ViewSpec{
		{
			ID:             "vinyl",
			Title:          "전북 영농 폐비닐 발생량",
			File:           "전북_영농폐비닐_발생량_2020_2023.csv",
			Dimensionality: waste.DimensionMetric,
			ValueLabel:     "발생량",
			Unit:           "톤",
		},
		{
			ID:             "pesticide",
			Title:          "전북 영농 폐농약 발생량",
			File:           "전북_영농폐농약_발생량_2020_2023.csv",
			Dimensionality: waste.DimensionMetric,
			ValueLabel:     "발생량",
			Unit:           CountUnit,
		},
		{
			ID:             "container-collection",
			Title:          "전국 폐농약용기 수거량",
			File:           "영농_폐농약용기_수거량 수정본.csv",
			Dimensionality: waste.DimensionBare,
			ValueLabel:     "수거량",
			Unit:           CountUnit,
			Encodings:      []waste.Encoding{waste.EncodingUTF8BOM, waste.EncodingCP949},
		},
		{
			ID:             "container-recycling",
			Title:          "영농 폐농약용기 재활용량 추이",
			File:           "영농_폐농약용기_재활용량_증감_추이.csv",
			Dimensionality: waste.DimensionBare,
			ValueLabel:     "재활용량",
			Unit:           CountUnit,
		},
	}
}

// LoadCatalog reads a views manifest of the form
//
//	{"views": [{"id": "...", "file": "...", "dimensionality": "metric|bare", ...}]}
func LoadCatalog(path string) ([]ViewSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read views manifest: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses manifest JSON; see LoadCatalog
func ParseCatalog(data []byte) ([]ViewSpec, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("views manifest is not valid JSON")
	}
	list := gjson.GetBytes(data, "views")
	if !list.IsArray() {
		return nil, fmt.Errorf("views manifest needs a \"views\" array")
	}

	var specs []ViewSpec
	seen := make(map[string]bool)
	var parseErr error
	list.ForEach(func(i, v gjson.Result) bool {
		spec := ViewSpec{
			ID:             v.Get("id").String(),
			Title:          v.Get("title").String(),
			File:           v.Get("file").String(),
			Dimensionality: waste.Dimensionality(v.Get("dimensionality").String()),
			ValueLabel:     v.Get("value_label").String(),
			Unit:           v.Get("unit").String(),
		}
		if spec.ID == "" || spec.File == "" {
			parseErr = fmt.Errorf("view %d: id and file are required", i.Int())
			return false
		}
		if seen[spec.ID] {
			parseErr = fmt.Errorf("view %q declared twice", spec.ID)
			return false
		}
		seen[spec.ID] = true

		switch spec.Dimensionality {
		case "":
			spec.Dimensionality = waste.DimensionMetric
		case waste.DimensionMetric, waste.DimensionBare:
		default:
			parseErr = fmt.Errorf("view %q: unknown dimensionality %q", spec.ID, spec.Dimensionality)
			return false
		}
		if spec.Title == "" {
			spec.Title = spec.ID
		}

		for _, e := range v.Get("encodings").Array() {
			enc, err := excel.ParseEncoding(e.String())
			if err != nil {
				parseErr = fmt.Errorf("view %q: %w", spec.ID, err)
				return false
			}
			spec.Encodings = append(spec.Encodings, enc)
		}
		specs = append(specs, spec)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return specs, nil
}
