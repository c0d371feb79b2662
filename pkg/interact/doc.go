// Package interact defines the events a rendered tree reacts to and the
// controller that owns expand/collapse state and the tooltip.
//
// Events form a closed set: [Click], [Hover], [HoverEnd], [Resize] and
// [Zoom]. Hosts translate their pointer and window notifications into these
// values and hand them to a session, which makes every state transition
// reproducible without a live UI. Events have a JSON form used by the HTTP
// server and by event scripts:
//
//	[
//	  {"type": "click", "node": 2},
//	  {"type": "hover", "node": 3, "x": 120, "y": 40, "after_ms": 200},
//	  {"type": "zoom", "k": 1.5, "tx": 10, "ty": 0}
//	]
package interact
