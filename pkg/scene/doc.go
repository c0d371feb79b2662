// Package scene reconciles successive layouts into animated transitions.
//
// A [Scene] remembers what was drawn by the previous pass. [Scene.Reconcile]
// keys every node and link by node identity (links by their child) and
// classifies it:
//
//   - Enter: not shown before. Starts at the visual position of its nearest
//     ancestor that was shown, or at the centre.
//   - Update: shown before and now. Moves from its visual position to its
//     new one.
//   - Exit: shown before, gone now. Moves to the new position of its nearest
//     surviving ancestor and is removed once the transition ends.
//
// The result is a [Plan], a value listing every transition with its start
// and end positions and duration. Time-based interpolation is up to the
// host, which can sample the scene with [Scene.Frame].
//
// Transitions compose. A Reconcile that arrives while items are still moving
// uses their current visual positions as the new baseline, so rapid toggling
// never makes markers jump.
package scene
