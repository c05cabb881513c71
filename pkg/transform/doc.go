// Package transform tracks named coordinate frames and the transformations
// between them, and resolves the pose of any frame relative to any other.
//
// # Overview
//
// A [Graph] stores directed edges between frames. Every edge carries the
// pose of its source frame expressed in its target frame, so a point in
// source coordinates maps into target coordinates by [pose.Pose.Apply].
// Edges come in two kinds:
//
//   - [KindStatic]: a single pose valid for all time
//   - [KindDynamic]: a bounded, time-ordered buffer of samples
//
// An ordered frame pair holds at most one edge of each kind, and a pair may
// be joined in both directions. Frames exist implicitly: a frame appears the
// first time a push names it.
//
// # Accumulate, Step, Resolve
//
// Pushes never touch edge state directly. [Graph.PushStatic] and
// [Graph.PushDynamic] validate the pose and append to a pending buffer that
// is safe for concurrent producers. The owning goroutine then calls
// [Graph.Step] until it returns false:
//
//	for g.Step() {
//	}
//	p, ok := g.Resolve("lidar", "world", time.Time{})
//
// The first call that finds pending pushes applies them in submission order
// and marks every tracked transformation dirty. The next call recomputes the
// cached chains of the dirty ones. A third call returns false unless new
// pushes arrived in between, so cycles in the frame graph never re-propagate.
//
// # Path Selection
//
// [Graph.Resolve] prefers a direct edge between the two frames, traversed
// backwards through the inverse pose when needed. When several edges join
// two frames the freshest one is used, and on a tie the one pointing in the
// direction of travel. Without a direct edge, it picks the
// chain whose weakest link is freshest: static edges count as infinitely
// fresh and dynamic edges as fresh as their latest sample. Among equally
// fresh chains the one with fewer hops wins, then the one whose frame names
// sort first. The result is deterministic for a given graph.
//
// # Tracked Transformations
//
// [Graph.Register] returns a [Handle] for a (source, target) query whose
// chain is cached between steps and evaluated with [Graph.Lookup]. Handles
// are issued fresh on every call and must be released with
// [Graph.Unregister] exactly once.
//
// # Concurrency
//
// Push, Register and Unregister are safe from any goroutine. Step, Resolve,
// Lookup, Frames and Edges belong to the owning goroutine.
package transform
