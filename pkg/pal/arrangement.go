package pal

import (
	"fmt"
	"strings"
)

// Arrangement selects how candidates are generated for a layer's features.
type Arrangement int

const (
	// AroundPoint places labels on a ring around a point.
	AroundPoint Arrangement = iota
	// OverPoint centers a single label on a point.
	OverPoint
	// Line places labels parallel to a line.
	Line
	// Horizontal places unrotated labels along lines or inside polygons.
	Horizontal
	// Free places labels inside polygons at any angle.
	Free
	// Perimeter places labels along a polygon's exterior ring.
	Perimeter
)

var arrangementNames = map[Arrangement]string{
	AroundPoint: "around-point",
	OverPoint:   "over-point",
	Line:        "line",
	Horizontal:  "horizontal",
	Free:        "free",
	Perimeter:   "perimeter",
}

func (a Arrangement) String() string {
	if s, ok := arrangementNames[a]; ok {
		return s
	}
	return fmt.Sprintf("arrangement(%d)", int(a))
}

// ParseArrangement parses the name produced by Arrangement.String.
func ParseArrangement(s string) (Arrangement, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range arrangementNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown arrangement %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Arrangement) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Arrangement) UnmarshalText(b []byte) error {
	v, err := ParseArrangement(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// LinePlacement is a set of flags choosing the sides of a line labels may
// occupy under the Line and Perimeter arrangements.
type LinePlacement uint8

const (
	OnLine LinePlacement = 1 << iota
	AboveLine
	BelowLine
)

// DefaultLinePlacement allows both sides of the line, above preferred.
const DefaultLinePlacement = AboveLine | BelowLine

// ObstacleType selects how polygon obstacles penalize candidates.
type ObstacleType int

const (
	// PolygonInterior charges for every sampled label point inside the polygon.
	PolygonInterior ObstacleType = iota
	// PolygonBoundary charges only for labels crossing the polygon outline.
	PolygonBoundary
	// PolygonWhole charges the full penalty for any contact with the polygon.
	PolygonWhole
)
