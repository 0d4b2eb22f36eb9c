// Package markers turns geocoded point tables into radius-scaled map markers.
package markers

import (
	"context"
	"math"
	"strings"

	"github.com/montanaflynn/stats"

	"wastedash/adapters/datareadiness/coercer"
	"wastedash/domain/core"
	"wastedash/domain/waste"
	"wastedash/ports"
)

// Point is one geocoded row
type Point struct {
	Category  string  `json:"category"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Magnitude float64 `json:"magnitude"`
}

// Marker is a point with its display radius
type Marker struct {
	Point
	Radius float64 `json:"radius"`
}

// ColumnMapping names the point table columns. Empty fields fall back to
// common Korean and English header names.
type ColumnMapping struct {
	Latitude  string
	Longitude string
	Magnitude string
}

var (
	latitudeNames  = []string{"위도", "lat", "latitude"}
	longitudeNames = []string{"경도", "lon", "lng", "longitude"}
	magnitudeNames = []string{"발생량", "수거량", "magnitude", "value", "amount"}
)

func resolveColumn(table *waste.WideTable, configured string, fallbacks []string) (string, bool) {
	if configured != "" {
		return configured, table.HasColumn(configured)
	}
	for _, name := range fallbacks {
		for _, col := range table.Columns {
			if strings.EqualFold(strings.TrimSpace(col), name) {
				return col, true
			}
		}
	}
	return strings.Join(fallbacks, "|"), false
}

// LoadPoints reads points from a geocoded table. Rows whose coordinates or
// magnitude do not coerce to numbers are skipped and counted.
func LoadPoints(table *waste.WideTable, mapping ColumnMapping) ([]Point, int, error) {
	latCol, ok := resolveColumn(table, mapping.Latitude, latitudeNames)
	if !ok {
		return nil, 0, core.NewColumnFormatError(latCol, "latitude column not found")
	}
	lonCol, ok := resolveColumn(table, mapping.Longitude, longitudeNames)
	if !ok {
		return nil, 0, core.NewColumnFormatError(lonCol, "longitude column not found")
	}
	magCol, ok := resolveColumn(table, mapping.Magnitude, magnitudeNames)
	if !ok {
		return nil, 0, core.NewColumnFormatError(magCol, "magnitude column not found")
	}

	points := make([]Point, 0, len(table.Rows))
	skipped := 0
	for _, row := range table.Rows {
		lat := coercer.CoerceNumeric(row.Cells[latCol])
		lon := coercer.CoerceNumeric(row.Cells[lonCol])
		mag := coercer.CoerceNumeric(row.Cells[magCol])
		if lat == nil || lon == nil || mag == nil || math.Abs(*lat) > 90 || math.Abs(*lon) > 180 {
			skipped++
			continue
		}
		points = append(points, Point{Category: row.Category, Lat: *lat, Lon: *lon, Magnitude: *mag})
	}
	return points, skipped, nil
}

// BuildMarkers scales each point's radius with the square root of its
// magnitude so marker area tracks the amount. Radii span [minRadius,
// maxRadius]; negative magnitudes are drawn at minRadius.
func BuildMarkers(points []Point, minRadius, maxRadius float64) []Marker {
	if maxRadius < minRadius {
		minRadius, maxRadius = maxRadius, minRadius
	}
	markers := make([]Marker, len(points))
	if len(points) == 0 {
		return markers
	}

	roots := make([]float64, len(points))
	for i, p := range points {
		roots[i] = math.Sqrt(math.Max(p.Magnitude, 0))
	}
	lo, _ := stats.Min(roots)
	hi, _ := stats.Max(roots)

	for i, p := range points {
		r := maxRadius
		if hi > lo {
			r = minRadius + (maxRadius-minRadius)*(roots[i]-lo)/(hi-lo)
		}
		markers[i] = Marker{Point: p, Radius: r}
	}
	return markers
}

// Center returns the mean coordinate of the markers, for initial map position
func Center(markers []Marker) (lat, lon float64, ok bool) {
	if len(markers) == 0 {
		return 0, 0, false
	}
	lats := make([]float64, len(markers))
	lons := make([]float64, len(markers))
	for i, m := range markers {
		lats[i], lons[i] = m.Lat, m.Lon
	}
	lat, _ = stats.Mean(lats)
	lon, _ = stats.Mean(lons)
	return lat, lon, true
}

// Feature is a GeoJSON point feature
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON point geometry; coordinates are [lon, lat]
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureCollection is the GeoJSON document served to map clients
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// ToGeoJSON encodes markers for marker-cluster map layers
func ToGeoJSON(markers []Marker) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(markers))}
	for _, m := range markers {
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: []float64{m.Lon, m.Lat}},
			Properties: map[string]interface{}{
				"category":  m.Category,
				"magnitude": m.Magnitude,
				"radius":    m.Radius,
			},
		})
	}
	return fc
}

// Service builds markers from a configured point source
type Service struct {
	loader    ports.TableLoader
	source    waste.Source
	mapping   ColumnMapping
	minRadius float64
	maxRadius float64
}

// NewService creates a marker service reading src through loader
func NewService(loader ports.TableLoader, src waste.Source, mapping ColumnMapping, minRadius, maxRadius float64) *Service {
	return &Service{loader: loader, source: src, mapping: mapping, minRadius: minRadius, maxRadius: maxRadius}
}

// Markers loads the point table and scales its markers; skipped counts rows
// without usable coordinates or magnitude
func (s *Service) Markers(ctx context.Context) (markers []Marker, skipped int, err error) {
	table, err := s.loader.Load(ctx, s.source)
	if err != nil {
		return nil, 0, err
	}
	points, skipped, err := LoadPoints(table, s.mapping)
	if err != nil {
		return nil, 0, err
	}
	return BuildMarkers(points, s.minRadius, s.maxRadius), skipped, nil
}
