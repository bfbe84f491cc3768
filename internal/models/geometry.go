package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

const SRIDWGS84 = 4326

// GeoJSONPolygon is a region boundary in GeoJSON form.
type GeoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Value converts the polygon to EWKT ("SRID=4326;POLYGON((...))") for PostGIS GEOMETRY(Polygon, 4326).
func (g *GeoJSONPolygon) Value() (driver.Value, error) {
	if g == nil || g.Type == "" {
		return nil, nil
	}

	polygon, err := g.Geom()
	if err != nil {
		return nil, err
	}
	return toEWKT(polygon)
}

// Geom decodes the GeoJSON into a go-geom polygon with SRID 4326.
func (g *GeoJSONPolygon) Geom() (*geom.Polygon, error) {
	geoJSONBytes, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Polygon")
	}
	polygon.SetSRID(SRIDWGS84)
	return polygon, nil
}

// Scan converts PostGIS EWKB into GeoJSON.
func (g *GeoJSONPolygon) Scan(value any) error {
	if value == nil {
		return nil
	}

	geometry, err := scanEWKB(value)
	if err != nil {
		return fmt.Errorf("failed to scan GeoJSONPolygon: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return fmt.Errorf("scanned geometry is not a Polygon")
	}

	geoJSONBytes, err := geojson.Marshal(polygon)
	if err != nil {
		return fmt.Errorf("failed to marshal to GeoJSON: %w", err)
	}

	return json.Unmarshal(geoJSONBytes, g)
}

// GeoJSONPoint is an observation location. Coordinates are [longitude, latitude].
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func NewGeoJSONPoint(lat, lon float64) *GeoJSONPoint {
	return &GeoJSONPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (g *GeoJSONPoint) Lat() float64 {
	if g == nil || len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[1]
}

func (g *GeoJSONPoint) Lon() float64 {
	if g == nil || len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[0]
}

// Value converts the point to EWKT ("SRID=4326;POINT(lon lat)") for PostGIS GEOGRAPHY(Point, 4326).
func (g *GeoJSONPoint) Value() (driver.Value, error) {
	if g == nil || g.Type == "" {
		return nil, nil
	}
	if len(g.Coordinates) != 2 {
		return nil, fmt.Errorf("point must have exactly 2 coordinates, got %d", len(g.Coordinates))
	}

	point := geom.NewPointFlat(geom.XY, g.Coordinates).SetSRID(SRIDWGS84)
	return toEWKT(point)
}

// Scan converts PostGIS EWKB into GeoJSON.
func (g *GeoJSONPoint) Scan(value any) error {
	if value == nil {
		return nil
	}

	geometry, err := scanEWKB(value)
	if err != nil {
		return fmt.Errorf("failed to scan GeoJSONPoint: %w", err)
	}

	point, ok := geometry.(*geom.Point)
	if !ok {
		return fmt.Errorf("scanned geometry is not a Point")
	}

	g.Type = "Point"
	g.Coordinates = []float64{point.X(), point.Y()}
	return nil
}

func toEWKT(g geom.T) (driver.Value, error) {
	wktString, err := wkt.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to WKT: %w", err)
	}
	return fmt.Sprintf("SRID=%d;%s", g.SRID(), wktString), nil
}

func scanEWKB(value any) (geom.T, error) {
	bytes, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected []byte, got %T", value)
	}
	geometry, err := ewkb.Unmarshal(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal EWKB: %w", err)
	}
	return geometry, nil
}
