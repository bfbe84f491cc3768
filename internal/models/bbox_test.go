package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox_Contains(t *testing.T) {
	box := BoundingBox{SWLat: 10, SWLng: 10, NELat: 20, NELng: 20}
	require.NoError(t, box.Validate())

	assert.True(t, box.Contains(15, 15))
	assert.False(t, box.Contains(25, 25))
	assert.True(t, box.Contains(10, 20), "edges are inclusive")
	assert.False(t, box.Contains(15, 9.999))
}

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name  string
		box   BoundingBox
		field string
	}{
		{"latitude out of range", BoundingBox{SWLat: -91, SWLng: 0, NELat: 10, NELng: 10}, "sw_lat"},
		{"longitude out of range", BoundingBox{SWLat: 0, SWLng: 0, NELat: 10, NELng: 181}, "ne_lng"},
		{"swapped latitudes", BoundingBox{SWLat: 20, SWLng: 0, NELat: 10, NELng: 10}, "sw_lat"},
		{"crosses antimeridian", BoundingBox{SWLat: 0, SWLng: 170, NELat: 10, NELng: -170}, "sw_lng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestBoundingBox_WKT(t *testing.T) {
	box := BoundingBox{SWLat: 1, SWLng: 2, NELat: 3, NELng: 4}
	s, err := box.WKT()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "POLYGON"))
	assert.Contains(t, s, "2 1, 4 1, 4 3, 2 3, 2 1")
}

func TestDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	dr := &DateRange{Start: &start, End: &end}

	require.NoError(t, dr.Validate())
	assert.True(t, dr.Includes(start))
	assert.True(t, dr.Includes(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)), "end date is inclusive")
	assert.False(t, dr.Includes(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, dr.Includes(time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC)))

	var empty *DateRange
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Includes(start))

	reversed := &DateRange{Start: &end, End: &start}
	assert.True(t, IsValidation(reversed.Validate()))
}
