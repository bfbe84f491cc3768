package models

import (
	"fmt"
	"math"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// BoundingBox is an axis-aligned rectangle given by its southwest and northeast corners.
type BoundingBox struct {
	SWLat float64 `json:"sw_lat"`
	SWLng float64 `json:"sw_lng"`
	NELat float64 `json:"ne_lat"`
	NELng float64 `json:"ne_lng"`
}

// Validate rejects out-of-range coordinates and boxes whose corners are swapped.
// Boxes crossing the antimeridian are not supported.
func (b BoundingBox) Validate() error {
	if err := ValidateLatitude("sw_lat", b.SWLat); err != nil {
		return err
	}
	if err := ValidateLongitude("sw_lng", b.SWLng); err != nil {
		return err
	}
	if err := ValidateLatitude("ne_lat", b.NELat); err != nil {
		return err
	}
	if err := ValidateLongitude("ne_lng", b.NELng); err != nil {
		return err
	}
	if b.SWLat > b.NELat {
		return NewValidationError("sw_lat", "southwest latitude must not exceed northeast latitude")
	}
	if b.SWLng > b.NELng {
		return NewValidationError("sw_lng", "southwest longitude must not exceed northeast longitude")
	}
	return nil
}

func (b BoundingBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.SWLng, b.SWLat, b.NELng, b.NELat)
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}

// Polygon returns the box as a closed SRID 4326 ring.
func (b BoundingBox) Polygon() *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{b.SWLng, b.SWLat},
		{b.NELng, b.SWLat},
		{b.NELng, b.NELat},
		{b.SWLng, b.NELat},
		{b.SWLng, b.SWLat},
	}}).SetSRID(SRIDWGS84)
}

// WKT renders the box polygon for ST_GeomFromText.
func (b BoundingBox) WKT() (string, error) {
	s, err := wkt.Marshal(b.Polygon())
	if err != nil {
		return "", fmt.Errorf("failed to marshal bounding box: %w", err)
	}
	return s, nil
}

// DateRange filters on observation date. Both ends are inclusive and optional.
type DateRange struct {
	Start *time.Time `json:"start_date,omitempty"`
	End   *time.Time `json:"end_date,omitempty"`
}

func (d *DateRange) IsEmpty() bool {
	return d == nil || (d.Start == nil && d.End == nil)
}

func (d *DateRange) Validate() error {
	if d == nil || d.Start == nil || d.End == nil {
		return nil
	}
	if d.End.Before(*d.Start) {
		return NewValidationError("end_date", "end_date must not be before start_date")
	}
	return nil
}

// Includes compares calendar dates only.
func (d *DateRange) Includes(date time.Time) bool {
	if d == nil {
		return true
	}
	day := truncateDay(date)
	if d.Start != nil && day.Before(truncateDay(*d.Start)) {
		return false
	}
	if d.End != nil && day.After(truncateDay(*d.End)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ValidateLatitude(field string, lat float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return NewValidationError(field, "latitude must be between -90 and 90")
	}
	return nil
}

func ValidateLongitude(field string, lng float64) error {
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return NewValidationError(field, "longitude must be between -180 and 180")
	}
	return nil
}
