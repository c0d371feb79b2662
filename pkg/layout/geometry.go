package layout

import (
	"fmt"
	"math"
)

// Polar is a position in the radial coordinate space. Angle is in degrees,
// measured clockwise from twelve o'clock; Radius is in pixels from the centre.
type Polar struct {
	Angle  float64 `json:"angle"`
	Radius float64 `json:"radius"`
}

// Point is a cartesian position relative to the diagram centre.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point converts p to cartesian coordinates with y pointing down.
func (p Polar) Point() Point {
	a := (p.Angle - 90) * math.Pi / 180
	return Point{X: p.Radius * math.Cos(a), Y: p.Radius * math.Sin(a)}
}

// Lerp interpolates between p and q. Angles interpolate linearly without
// wrapping so that subtrees sweep rather than jump across 0°. The endpoints
// are returned exactly at t=0 and t=1.
func (p Polar) Lerp(q Polar, t float64) Polar {
	switch t {
	case 0:
		return p
	case 1:
		return q
	}
	return Polar{
		Angle:  p.Angle + (q.Angle-p.Angle)*t,
		Radius: p.Radius + (q.Radius-p.Radius)*t,
	}
}

// Segment is a link between two polar positions.
type Segment struct {
	Source Polar `json:"source"`
	Target Polar `json:"target"`
}

// Lerp interpolates both endpoints.
func (s Segment) Lerp(o Segment, t float64) Segment {
	return Segment{Source: s.Source.Lerp(o.Source, t), Target: s.Target.Lerp(o.Target, t)}
}

// Collapsed returns a zero-length segment at p, used as the start of
// entering links and the end of exiting ones.
func Collapsed(p Polar) Segment { return Segment{Source: p, Target: p} }

// Path returns the SVG path of the radial link: a cubic curve whose control
// points sit halfway between the two rings, on the source and target angles.
func (s Segment) Path() string {
	mid := (s.Source.Radius + s.Target.Radius) / 2
	p0 := s.Source.Point()
	p1 := Polar{Angle: s.Source.Angle, Radius: mid}.Point()
	p2 := Polar{Angle: s.Target.Angle, Radius: mid}.Point()
	p3 := s.Target.Point()
	return fmt.Sprintf("M%.2f,%.2fC%.2f,%.2f %.2f,%.2f %.2f,%.2f",
		p0.X, p0.Y, p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y)
}

// LabelRotation returns the rotation (degrees) that lays a label along the
// radius at angle, and whether the text must be flipped to stay upright on
// the left half of the circle.
func LabelRotation(angle float64) (rotate float64, flipped bool) {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return angle - 90, a >= 180
}
