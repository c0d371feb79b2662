package sink

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/scene"
	"github.com/matzehuels/radialtree/pkg/tree"
	"github.com/matzehuels/radialtree/pkg/viewport"
)

const (
	nodeRadius  = 4.5
	labelOffset = 8
)

const diagramCSS = `
    .link { fill: none; stroke: #999; stroke-width: 1.5px; }
    .node circle { fill: #fff; stroke: steelblue; stroke-width: 1.5px; }
    .node.collapsed circle { fill: lightsteelblue; }
    .node text { font: 11px sans-serif; fill: #333; dominant-baseline: middle; }
    .node.branch { cursor: pointer; }
    .tooltip rect { fill: #fffff0; stroke: #aaa; rx: 4; }
    .tooltip text { font: 12px sans-serif; fill: #222; }`

const interactionJS = `
    const nodes = Array.from(document.querySelectorAll('.node'));
    const links = Array.from(document.querySelectorAll('.link'));
    const byParent = new Map();
    nodes.forEach(n => {
      const p = n.dataset.parent;
      if (!byParent.has(p)) byParent.set(p, []);
      byParent.get(p).push(n.dataset.id);
    });
    function descendants(id, out) {
      (byParent.get(id) || []).forEach(c => { out.push(c); descendants(c, out); });
      return out;
    }
    function setHidden(ids, hidden) {
      ids.forEach(id => {
        nodes.filter(n => n.dataset.id === id).forEach(n => n.style.display = hidden ? 'none' : '');
        links.filter(l => l.dataset.child === id).forEach(l => l.style.display = hidden ? 'none' : '');
      });
    }
    nodes.forEach(n => {
      if (!n.classList.contains('branch')) return;
      n.addEventListener('click', () => {
        const open = n.classList.toggle('folded');
        setHidden(descendants(n.dataset.id, []), open);
      });
    });
    const tip = document.getElementById('tooltip');
    if (tip) {
      const text = tip.querySelector('text');
      const box = tip.querySelector('rect');
      let hideTimer = null;
      nodes.forEach(n => {
        n.addEventListener('mouseenter', ev => {
          clearTimeout(hideTimer);
          hideTimer = null;
          text.textContent = n.dataset.tip;
          const b = text.getBBox();
          box.setAttribute('width', (b.width + 16).toFixed(0));
          const svgEl = document.querySelector('svg');
          const pt = svgEl.createSVGPoint();
          pt.x = ev.clientX; pt.y = ev.clientY;
          const p = pt.matrixTransform(svgEl.getScreenCTM().inverse());
          tip.setAttribute('transform', 'translate(' + (p.x + 12).toFixed(1) + ',' + (p.y + 12).toFixed(1) + ')');
          tip.setAttribute('visibility', 'visible');
        });
        n.addEventListener('mouseleave', () => {
          clearTimeout(hideTimer);
          hideTimer = setTimeout(() => {
            hideTimer = null;
            tip.setAttribute('visibility', 'hidden');
          }, 300);
        });
      });
    }`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	interactive bool
	labels      bool
	title       string
}

// WithInteractive embeds a script that folds subtrees on click and shows a
// tooltip on hover without a server round trip.
func WithInteractive() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// WithoutLabels omits node labels.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// WithTitle sets the document title.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

// RenderSVG draws the snapshot as a standalone SVG document. Links are drawn
// before markers; sprites mid-transition carry their interpolated position
// and opacity.
func RenderSVG(s Snapshot, opts ...SVGOption) []byte {
	r := svgRenderer{labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	w, h := int(math.Ceil(s.Width)), int(math.Ceil(s.Height))
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(w, h, 0, 0, w, h)
	if r.title != "" {
		canvas.Title(r.title)
	}
	fmt.Fprintf(canvas.Writer, "<style>%s\n</style>\n", diagramCSS)

	zoom := s.Transform
	if zoom.Scale == 0 {
		zoom = viewport.Identity
	}
	canvas.Gtransform(zoom.SVG())
	canvas.Gtransform(fmt.Sprintf("translate(%.2f,%.2f)", s.Width/2, s.Height/2))
	renderLinks(canvas, s.Frame.Links)
	for _, sp := range s.Frame.Nodes {
		if sp.Opacity <= 0 {
			continue
		}
		renderNode(canvas, &r, s.Tree, sp)
	}
	canvas.Gend()
	canvas.Gend()

	renderTooltip(canvas, &r, s)
	if r.interactive {
		fmt.Fprintf(canvas.Writer, "<script type=\"text/javascript\"><![CDATA[%s\n]]></script>\n", interactionJS)
	}
	canvas.End()
	return buf.Bytes()
}

func renderLinks(canvas *svg.SVG, links []scene.LinkSprite) {
	for _, l := range links {
		if l.Opacity <= 0 {
			continue
		}
		canvas.Path(l.Path(),
			`class="link"`,
			fmt.Sprintf(`data-child="%d"`, l.Child),
			fmt.Sprintf(`data-kind="%s"`, l.Kind),
			opacityAttr(l.Opacity))
	}
}

func renderNode(canvas *svg.SVG, r *svgRenderer, t *tree.Tree, sp scene.Sprite) {
	var label, tip, href string
	branch := false
	if n, ok := t.Node(sp.ID); ok {
		label, tip, href = n.Label, n.TooltipText(), n.URL
		branch = n.HasChildren()
	}
	href = safeHref(href)

	class := "node"
	if sp.Collapsed {
		class += " collapsed"
	}
	if branch {
		class += " branch"
	}
	pt := sp.Polar.Point()
	canvas.Group(
		fmt.Sprintf(`class="%s"`, class),
		fmt.Sprintf(`data-id="%d"`, sp.ID),
		fmt.Sprintf(`data-parent="%d"`, parentOf(t, sp.ID)),
		fmt.Sprintf(`data-tip="%s"`, attrEscape(tip)),
		fmt.Sprintf(`transform="translate(%.2f,%.2f)"`, pt.X, pt.Y),
		opacityAttr(sp.Opacity))
	canvas.Circle(0, 0, int(math.Round(nodeRadius)))

	if r.labels && label != "" {
		renderLabel(canvas, sp.Angle, label, href)
	}
	canvas.Gend()
}

// renderLabel lays the label along the radius, flipped on the left half so
// it reads left to right.
func renderLabel(canvas *svg.SVG, angle float64, label, href string) {
	rot, flipped := layout.LabelRotation(angle)
	x, anchor := labelOffset, "start"
	transform := fmt.Sprintf("rotate(%.2f)", rot)
	if flipped {
		x, anchor = -labelOffset, "end"
		transform += " rotate(180)"
	}
	if href != "" {
		canvas.Link(attrEscape(href), label)
	}
	canvas.Gtransform(transform)
	canvas.Text(x, 0, label, fmt.Sprintf(`text-anchor="%s"`, anchor))
	canvas.Gend()
	if href != "" {
		canvas.LinkEnd()
	}
}

// renderTooltip draws the session tooltip in screen space, or the hidden
// template used by the interactive script.
func renderTooltip(canvas *svg.SVG, r *svgRenderer, s Snapshot) {
	tip := s.Tooltip
	if !tip.Visible && !r.interactive {
		return
	}
	visibility := "hidden"
	if tip.Visible {
		visibility = "visible"
	}
	lines := strings.Split(tip.Text, "\n")
	width := 16
	for _, l := range lines {
		width = max(width, 7*len([]rune(l))+16)
	}
	height := 18*len(lines) + 10

	canvas.Group(`id="tooltip"`, `class="tooltip"`,
		fmt.Sprintf(`visibility="%s"`, visibility),
		fmt.Sprintf(`transform="translate(%.1f,%.1f)"`, tip.X+12, tip.Y+12))
	canvas.Rect(0, 0, width, height)
	for i, l := range lines {
		canvas.Text(8, 18*(i+1), l)
	}
	canvas.Gend()
}

// safeHref drops link targets that must not reach generated markup, such as
// javascript: URLs.
func safeHref(href string) string {
	if href == "" || errors.ValidateHref(href) != nil {
		return ""
	}
	return href
}

func parentOf(t *tree.Tree, id tree.NodeID) tree.NodeID {
	if n, ok := t.Node(id); ok {
		return n.Parent
	}
	return tree.NoNode
}

func opacityAttr(o float64) string {
	return fmt.Sprintf(`opacity="%.3g"`, o)
}

var attrReplacer = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;", "\n", "&#10;")

func attrEscape(s string) string { return attrReplacer.Replace(s) }
