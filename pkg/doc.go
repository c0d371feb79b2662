// Package pkg provides the core libraries for radialtree, an incremental
// radial tree renderer.
//
// # Overview
//
// Radialtree lays out a hierarchical document on concentric rings and keeps
// the drawing in sync with it as nodes are expanded and collapsed. Instead of
// redrawing, every change produces a transition plan: the nodes and links
// that enter, move or exit, each with its start and end position.
//
// # Architecture
//
// The data flow through radialtree:
//
//	JSON / YAML / doxygen document
//	         ↓
//	    [tree] package (decode, normalize into a node arena)
//	         ↓
//	    [layout] package (angles and radii of the visible subtree)
//	         ↓
//	    [scene] package (reconcile against the drawn items → Plan)
//	         ↓
//	    [sink] package (SVG, JSON, DOT, PNG, PDF)
//
// [session] ties the stages together. A [session.Session] takes one
// [interact.Event] at a time through Dispatch and returns the resulting
// update, which carries the plan, the [viewport] transform and the tooltip.
//
// # Main Packages
//
// [tree] - Node arena with stable identities, expand/collapse state and the
// document decoders.
//
// [layout] - Radial layout of the visible subtree with sibling and cousin
// separation.
//
// [scene] - Scene reconciler: keyed enter/update/exit diffing, transition
// plans and frame interpolation.
//
// [interact] - Events, their JSON form and the controller that owns toggle
// and tooltip state.
//
// [viewport] - Container size, zoom/pan transform and the click guard.
//
// [pipeline] - Decode → layout → render used by the CLI and the server, with
// content-addressed caching through [cache].
//
// [observability] - Hooks for layout, dispatch, decode, render, cache and
// HTTP events. The Prometheus implementation lives in internal/metrics.
//
// [errors] - Error codes shared by every package and mapped to HTTP status
// codes by the server.
package pkg
