package interact

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// DefaultFade is the delay between the pointer leaving a marker and the
// tooltip disappearing.
const DefaultFade = 300 * time.Millisecond

// Tooltip is the single floating tooltip. At most one is shown at a time.
type Tooltip struct {
	Node    tree.NodeID `json:"node"`
	Text    string      `json:"text"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Visible bool        `json:"visible"`

	// HideAt is set while the tooltip is fading out.
	HideAt time.Time `json:"hide_at,omitzero"`
}

// Fading reports whether a hide is pending.
func (t Tooltip) Fading() bool { return t.Visible && !t.HideAt.IsZero() }

// ControllerOption configures a [Controller].
type ControllerOption func(*Controller)

// WithFade sets the tooltip hide delay.
func WithFade(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d >= 0 {
			c.fade = d
		}
	}
}

// Controller owns the expand/collapse state of a tree and the tooltip.
type Controller struct {
	tree    *tree.Tree
	tooltip Tooltip
	fade    time.Duration
}

// NewController creates a controller over t.
func NewController(t *tree.Tree, opts ...ControllerOption) *Controller {
	c := &Controller{tree: t, fade: DefaultFade}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tree returns the controlled tree.
func (c *Controller) Tree() *tree.Tree { return c.tree }

// Reset switches to a new tree and hides the tooltip.
func (c *Controller) Reset(t *tree.Tree) {
	c.tree = t
	c.tooltip = Tooltip{}
}

// Toggle flips the collapse state of id and reports whether the visible
// structure changed.
func (c *Controller) Toggle(id tree.NodeID) (bool, error) {
	changed, err := c.tree.Toggle(id)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeNotFound, err, "toggle node %d", id)
	}
	return changed, nil
}

// CollapseBeyond collapses every node at depth >= depth, including hidden
// descendants of those nodes, using the depths of a full layout pass. It
// returns how many nodes changed state.
func (c *Controller) CollapseBeyond(l layout.Layout, depth int) int {
	n := 0
	for _, ln := range l.Nodes {
		if ln.Depth < depth {
			continue
		}
		ids := append([]tree.NodeID{ln.ID}, c.tree.Descendants(ln.ID)...)
		for _, id := range ids {
			if changed, _ := c.tree.Collapse(id); changed {
				n++
			}
		}
	}
	return n
}

// Hover shows the tooltip for id near (x, y). A bad detail text is sanitized
// and still shown; the returned error reports what was wrong with it.
func (c *Controller) Hover(id tree.NodeID, x, y float64) (Tooltip, error) {
	node, ok := c.tree.Node(id)
	if !ok {
		return c.tooltip, errors.New(errors.ErrCodeNotFound, "hover: unknown node %d", id)
	}
	text := node.TooltipText()
	err := errors.ValidateText(text)
	if err != nil {
		text = sanitize(text)
		err = fmt.Errorf("tooltip for node %d: %w", id, err)
	}
	c.tooltip = Tooltip{Node: id, Text: text, X: x, Y: y, Visible: true}
	return c.tooltip, err
}

// HoverEnd schedules the tooltip to hide after the fade delay. A hover
// before then cancels the hide.
func (c *Controller) HoverEnd(now time.Time) Tooltip {
	if c.tooltip.Visible && c.tooltip.HideAt.IsZero() {
		c.tooltip.HideAt = now.Add(c.fade)
	}
	return c.Tooltip(now)
}

// Tooltip returns the tooltip as of now, completing a due hide.
func (c *Controller) Tooltip(now time.Time) Tooltip {
	if c.tooltip.Fading() && !now.Before(c.tooltip.HideAt) {
		c.tooltip = Tooltip{}
	}
	return c.tooltip
}

func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "�")
	return strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
