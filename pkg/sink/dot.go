package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/radialtree/pkg/tree"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// All includes collapsed subtrees instead of only the visible ones.
	All bool

	// RankSep is the ring spacing in inches. Zero uses 1.2.
	RankSep float64
}

// ToDOT converts the tree to Graphviz DOT for the twopi radial engine. The
// root is pinned to the centre; collapsed nodes are filled.
func ToDOT(t *tree.Tree, opts DOTOptions) string {
	ranksep := opts.RankSep
	if ranksep <= 0 {
		ranksep = 1.2
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=twopi;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  ranksep=%s;\n", strconv.FormatFloat(ranksep, 'f', -1, 64))
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  node [shape=circle, width=0.12, fixedsize=true, style=filled, fillcolor=white, color=steelblue, fontsize=11, label=\"\"];\n")
	buf.WriteString("  edge [arrowhead=none, color=\"#999999\"];\n")
	if t.Empty() {
		buf.WriteString("}\n")
		return buf.String()
	}
	fmt.Fprintf(&buf, "  root=\"n%d\";\n\n", t.Root())

	ids := t.Visible()
	if opts.All {
		ids = t.IDs()
	}
	for _, id := range ids {
		n, _ := t.Node(id)
		fmt.Fprintf(&buf, "  \"n%d\" [%s];\n", id, strings.Join(dotAttrs(n, opts.All), ", "))
	}

	buf.WriteString("\n")
	for _, id := range ids {
		n, _ := t.Node(id)
		if n.Parent != tree.NoNode {
			fmt.Fprintf(&buf, "  \"n%d\" -> \"n%d\";\n", n.Parent, id)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func dotAttrs(n *tree.Node, all bool) []string {
	attrs := []string{fmt.Sprintf("xlabel=%q", n.Label), fmt.Sprintf("tooltip=%q", n.TooltipText())}
	if href := safeHref(n.URL); href != "" {
		attrs = append(attrs, fmt.Sprintf("URL=%q", href))
	}
	if n.IsCollapsed() && !all {
		attrs = append(attrs, "fillcolor=lightsteelblue")
	}
	return attrs
}

// RenderDOT renders a DOT graph to SVG using Graphviz.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	gv.SetLayout(graphviz.TWOPI)
	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a pixel
// one anchored at the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
