package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyCoordinate is returned when a coordinate string is blank
var ErrEmptyCoordinate = errors.New("empty coordinate")

// Coord is a WGS84 point in decimal degrees
type Coord struct {
	Lng float64
	Lat float64
}

// ParseLongitude parses a longitude that may carry an E or W prefix.
// E is positive, W is negative, no prefix is taken as a signed decimal.
func ParseLongitude(s string) (float64, error) {
	v, err := parseDirectional(s, 'E', 'W')
	if err != nil {
		return 0, fmt.Errorf("invalid longitude %q: %w", s, err)
	}
	if v < -180 || v > 180 {
		return 0, fmt.Errorf("longitude %v out of range", v)
	}
	return v, nil
}

// ParseLatitude parses a latitude that may carry an N or S prefix
func ParseLatitude(s string) (float64, error) {
	v, err := parseDirectional(s, 'N', 'S')
	if err != nil {
		return 0, fmt.Errorf("invalid latitude %q: %w", s, err)
	}
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("latitude %v out of range", v)
	}
	return v, nil
}

// ParseCoord parses a longitude/latitude pair as stored in image_info
func ParseCoord(lng, lat string) (Coord, error) {
	x, err := ParseLongitude(lng)
	if err != nil {
		return Coord{}, err
	}
	y, err := ParseLatitude(lat)
	if err != nil {
		return Coord{}, err
	}
	return Coord{Lng: x, Lat: y}, nil
}

func parseDirectional(s string, pos, neg byte) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyCoordinate
	}

	sign := 1.0
	switch s[0] {
	case pos, pos + ('a' - 'A'):
		s = s[1:]
	case neg, neg + ('a' - 'A'):
		sign = -1
		s = s[1:]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return sign * v, nil
}

// Near reports whether both axes differ from o by less than tolerance
func (c Coord) Near(o Coord, tolerance float64) bool {
	return math.Abs(c.Lng-o.Lng) < tolerance && math.Abs(c.Lat-o.Lat) < tolerance
}

// Slice returns [lng, lat], the order ECharts expects
func (c Coord) Slice() []float64 {
	return []float64{c.Lng, c.Lat}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Lng, c.Lat)
}
