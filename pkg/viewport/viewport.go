// Package viewport owns the container geometry and the zoom/pan transform.
//
// Layout coordinates are resolution independent and centred on the origin.
// A [Viewport] translates them to the container centre and applies the user
// transform on top; zooming never triggers a new layout pass. Resizing is a
// hard reset: the transform returns to identity and the surface generation
// advances so hosts know to rebuild their drawing surface.
package viewport

import (
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/layout"
)

// DefaultClickGuard is how long after a zoom/pan gesture clicks are ignored.
const DefaultClickGuard = 200 * time.Millisecond

// DefaultScaleRange bounds the zoom scale.
var DefaultScaleRange = ScaleRange{Min: 0.2, Max: 5}

// ScaleRange bounds the zoom scale.
type ScaleRange struct {
	Min float64 `json:"min" toml:"min"`
	Max float64 `json:"max" toml:"max"`
}

// Validate checks 0 < Min < 1 <= Max.
func (r ScaleRange) Validate() error { return errors.ValidateScaleRange(r.Min, r.Max) }

// Clamp limits k to the range.
func (r ScaleRange) Clamp(k float64) float64 { return math.Min(math.Max(k, r.Min), r.Max) }

// Transform is the zoom/pan transform applied to the whole scene group.
type Transform struct {
	Scale float64 `json:"k"`
	TX    float64 `json:"x"`
	TY    float64 `json:"y"`
}

// Identity is the unzoomed, unpanned transform.
var Identity = Transform{Scale: 1}

// Apply maps a point through the transform.
func (t Transform) Apply(p layout.Point) layout.Point {
	return layout.Point{X: p.X*t.Scale + t.TX, Y: p.Y*t.Scale + t.TY}
}

// Invert maps a transformed point back.
func (t Transform) Invert(p layout.Point) layout.Point {
	if t.Scale == 0 {
		return p
	}
	return layout.Point{X: (p.X - t.TX) / t.Scale, Y: (p.Y - t.TY) / t.Scale}
}

// SVG formats the transform as an SVG transform attribute.
func (t Transform) SVG() string {
	return fmt.Sprintf("translate(%.2f,%.2f) scale(%.4g)", t.TX, t.TY, t.Scale)
}

// Option configures a [Viewport].
type Option func(*Viewport)

// WithClickGuard sets how long after a gesture clicks are ignored. Zero
// disables the guard.
func WithClickGuard(d time.Duration) Option { return func(v *Viewport) { v.guard = d } }

// Viewport tracks the container size and the current transform.
type Viewport struct {
	width, height float64
	scales        ScaleRange
	transform     Transform
	generation    int
	lastGesture   time.Time
	guard         time.Duration
}

// New creates a viewport with no size. Use [Viewport.Resize] to give it one.
func New(scales ScaleRange, opts ...Option) *Viewport {
	v := &Viewport{scales: scales, transform: Identity, guard: DefaultClickGuard}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Resize records a new container size. It resets the transform and, when the
// size is drawable, advances the surface generation. It reports whether the
// new size is drawable.
func (v *Viewport) Resize(width, height float64) bool {
	v.width, v.height = width, height
	v.transform = Identity
	v.lastGesture = time.Time{}
	if !v.Valid() {
		return false
	}
	v.generation++
	return true
}

// Valid reports whether the container has a drawable area.
func (v *Viewport) Valid() bool { return errors.ValidateSize(v.width, v.height) == nil }

// Size returns the container size.
func (v *Viewport) Size() (width, height float64) { return v.width, v.height }

// Diameter is the largest circle that fits the container.
func (v *Viewport) Diameter() float64 { return math.Max(math.Min(v.width, v.height), 0) }

// Center returns the container centre, where layout coordinates are anchored.
func (v *Viewport) Center() layout.Point { return layout.Point{X: v.width / 2, Y: v.height / 2} }

// Generation counts the drawable surfaces created so far.
func (v *Viewport) Generation() int { return v.generation }

// Scales returns the zoom range.
func (v *Viewport) Scales() ScaleRange { return v.scales }

// Transform returns the current zoom/pan transform.
func (v *Viewport) Transform() Transform { return v.transform }

// Zoom applies a zoom/pan gesture at now. The scale is clamped to the range;
// the returned transform is the one in effect.
func (v *Viewport) Zoom(now time.Time, scale, tx, ty float64) Transform {
	if math.IsNaN(scale) || scale == 0 {
		scale = v.transform.Scale
	}
	if math.IsNaN(tx) || math.IsInf(tx, 0) {
		tx = v.transform.TX
	}
	if math.IsNaN(ty) || math.IsInf(ty, 0) {
		ty = v.transform.TY
	}
	v.transform = Transform{Scale: v.scales.Clamp(scale), TX: tx, TY: ty}
	v.lastGesture = now
	return v.transform
}

// Gesturing reports whether a zoom/pan gesture happened within the click
// guard window before now.
func (v *Viewport) Gesturing(now time.Time) bool {
	if v.guard <= 0 || v.lastGesture.IsZero() {
		return false
	}
	return now.Sub(v.lastGesture) < v.guard
}

// ToScreen maps a layout position to container pixels.
func (v *Viewport) ToScreen(p layout.Polar) layout.Point {
	c := v.Center()
	pt := p.Point()
	return v.transform.Apply(layout.Point{X: pt.X + c.X, Y: pt.Y + c.Y})
}

// FromScreen maps container pixels back to centre-relative layout space.
func (v *Viewport) FromScreen(p layout.Point) layout.Point {
	q := v.transform.Invert(p)
	c := v.Center()
	return layout.Point{X: q.X - c.X, Y: q.Y - c.Y}
}
