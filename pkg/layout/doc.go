// Package layout computes radial tidy-tree positions.
//
// [Compute] runs the Buchheim/Walker tidy tree algorithm over the visible
// subtree of a [tree.Tree] and maps the result onto concentric rings:
// the angle of a node comes from its tidy-tree x coordinate scaled to the
// configured arc, the radius from its depth times the ring width.
//
// Layouts are values. Compute never mutates the tree and returns the same
// positions for the same visible structure, so collapsing and re-expanding a
// subtree restores every position exactly.
//
// [Segment] and [Polar] carry the geometry used by the scene and the sinks,
// including the SVG path of a radial link.
package layout
