// Package sink turns a render session into output formats.
//
// # Overview
//
// A [Snapshot] is one instant of a session: the sampled scene frame, the
// tree it came from, the viewport transform and the tooltip. Sinks render
// snapshots:
//
//   - SVG: standalone document, optionally interactive ([RenderSVG])
//   - JSON: sprites, links and the transition plan ([RenderJSON])
//   - DOT: Graphviz twopi rendering of the tree ([ToDOT], [RenderDOT])
//   - PNG/PDF: conversions of any SVG (requires rsvg-convert)
//
// # Offscreen rendering
//
// [Offscreen] is a [session.Container] without a display. The CLI, the
// pipeline and the HTTP server render into it and capture snapshots:
//
//	c := sink.NewOffscreen(960, 960)
//	s, err := session.Render(c, doc, opts)
//	if err != nil {
//	    return err
//	}
//	svg := sink.RenderSVG(sink.Capture(s), sink.WithInteractive())
//
// Capturing after transitions settle yields the final positions; capture at
// an earlier session clock to draw an in-between frame.
package sink
