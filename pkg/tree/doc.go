// Package tree holds the collapsible hierarchy rendered by radialtree.
//
// # Overview
//
// Input documents (nested JSON/YAML objects, doxygen navtree scripts, or
// [RawNode] values built in code) are normalized by an [Adapter] into a
// [Tree]: an arena of [Node] values addressed by [NodeID]. Nodes never point
// at each other directly; parents and children are IDs.
//
// # Identity
//
// Every node receives an ID from the adapter's monotonic counter in
// pre-order. The counter belongs to the render session, so two documents
// normalized by the same adapter never share IDs. Scene reconciliation keys
// on these IDs.
//
// # Collapse State
//
// A node's child list is either visible or hidden, never both:
//
//	t.Collapse(id) // children move to Hidden()
//	t.Expand(id)   // the same slice is visible again
//
// Collapsing does not touch descendant state, so re-expanding restores the
// view exactly as it was.
//
// # Malformed Input
//
// Normalization never fails. Nil documents give an empty tree, nodes that
// repeat an ancestor become truncated leaves, and nodes with undecodable
// fields become leaves marked Truncated.
package tree
