package session

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/scene"
	"github.com/matzehuels/radialtree/pkg/viewport"
)

// Default option values.
const (
	// DefaultCollapseDepth collapses everything from the second ring outward.
	DefaultCollapseDepth = 2

	// DefaultTransitionDuration is the length of every animated transition.
	DefaultTransitionDuration = scene.DefaultDuration
)

// Options configures a [Session]. The zero value is not valid; start from
// [DefaultOptions].
type Options struct {
	// CollapseDepth is the depth from which nodes start collapsed.
	CollapseDepth int `toml:"collapse_depth" json:"collapse_depth"`

	// TransitionDuration is the length of every animated transition.
	TransitionDuration time.Duration `toml:"transition_duration" json:"transition_duration"`

	// ZoomScaleRange bounds the zoom scale.
	ZoomScaleRange viewport.ScaleRange `toml:"zoom_scale_range" json:"zoom_scale_range"`

	// Layout tuning. Margin defaults only through DefaultOptions.
	Margin     float64           `toml:"margin" json:"margin"`
	Separation layout.Separation `toml:"separation" json:"separation"`
	RingWidth  float64           `toml:"ring_width" json:"ring_width,omitempty"`

	// Interaction tuning.
	TooltipFade time.Duration `toml:"tooltip_fade" json:"tooltip_fade"`
	ClickGuard  time.Duration `toml:"click_guard" json:"click_guard"`

	// Easing samples transitions; nil means cubic in-out.
	Easing scene.Easing `toml:"-" json:"-"`

	// Clock returns the current time; nil means time.Now.
	Clock func() time.Time `toml:"-" json:"-"`

	// Logger receives dispatch failures; nil discards.
	Logger *log.Logger `toml:"-" json:"-"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	o := Options{CollapseDepth: DefaultCollapseDepth, Margin: layout.DefaultMargin}
	o.SetDefaults()
	return o
}

// SetDefaults fills zero-valued fields. CollapseDepth and Margin are left
// alone because zero is meaningful for both.
func (o *Options) SetDefaults() {
	if o.TransitionDuration == 0 {
		o.TransitionDuration = DefaultTransitionDuration
	}
	if o.ZoomScaleRange == (viewport.ScaleRange{}) {
		o.ZoomScaleRange = viewport.DefaultScaleRange
	}
	if o.Separation == (layout.Separation{}) {
		o.Separation = layout.DefaultSeparation
	}
	if o.TooltipFade == 0 {
		o.TooltipFade = interact.DefaultFade
	}
	if o.ClickGuard == 0 {
		o.ClickGuard = viewport.DefaultClickGuard
	}
	if o.Easing == nil {
		o.Easing = scene.CubicInOut
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the options. It does not apply defaults.
func (o Options) Validate() error {
	if err := errors.ValidateCollapseDepth(o.CollapseDepth); err != nil {
		return err
	}
	if err := errors.ValidateDuration(o.TransitionDuration); err != nil {
		return err
	}
	if err := o.ZoomScaleRange.Validate(); err != nil {
		return err
	}
	if o.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "margin must be >= 0, got %g", o.Margin)
	}
	if !o.Separation.Valid() {
		return errors.New(errors.ErrCodeInvalidOptions, "separation must be positive, got %+v", o.Separation)
	}
	if o.RingWidth < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "ring width must be >= 0, got %g", o.RingWidth)
	}
	if o.TooltipFade < 0 || o.ClickGuard < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "tooltip fade and click guard must be >= 0")
	}
	return nil
}

func (o Options) layoutOptions() []layout.Option {
	return []layout.Option{
		layout.WithMargin(o.Margin),
		layout.WithSeparation(o.Separation),
		layout.WithRingWidth(o.RingWidth),
	}
}
