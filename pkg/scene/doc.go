// Package scene holds the rendered scene structure and the queue that
// serializes mutations of it.
//
// # Nodes
//
// A [Node] is a named element in a tree rooted at the scene root. Plugins
// contribute one root node each; the view contributes the grid and axes
// overlays created by [NewGrid] and [NewAxes]. Every node carries a local
// [pose.Pose] and an ID generated at creation.
//
// Nodes are not safe for concurrent use. They belong to the owning goroutine,
// the one that drains the [Queue].
//
// # Mutation Boundary
//
// [Queue] is a FIFO of [Task] functions. Any goroutine may [Queue.Submit];
// only the owning goroutine calls [Queue.Drain], which runs the queued tasks
// in submission order and joins their errors:
//
//	q := scene.NewQueue()
//	go func() {
//	    q.Submit(func() error {
//	        _, err := root.AddChild(n)
//	        return err
//	    })
//	}()
//	...
//	if err := q.Drain(); err != nil {
//	    logger.Error("scene update failed", "err", err)
//	}
//
// Tasks submitted while a drain is running wait for the next drain.
//
// [pose.Pose]: github.com/matzehuels/vizframe/pkg/pose.Pose
package scene
