// Package pkg provides the core libraries of vizframe.
//
// # Overview
//
// vizframe keeps a set of visualization plugins posed in a shared scene. Each
// plugin draws data expressed in some coordinate frame; a graph of static and
// timestamped frame transformations tells the view where that frame sits
// relative to the user's reference frame.
//
// # Architecture
//
// Data flows from producers to plugin poses:
//
//	session file / recording / redis feed / HTTP
//	         ↓
//	source.Connector, store.Replay      validate and push samples
//	         ↓
//	transform.Graph                      pending buffer → Step → chains
//	         ↓
//	view.View.Process                    drain scene.Queue, refresh poses
//	         ↓
//	plugin.Plugin.SetPose, view.Listener
//
// One goroutine owns the view and calls Process (or Run). Every other
// goroutine pushes transformations into the graph's pending buffer or submits
// requests to the scene queue.
//
// # Quick Start
//
//	v := view.New()
//	marker := plugin.NewBase("marker")
//	_ = v.Attach(marker, nil)
//	_ = v.SetPluginDataFrame(marker, "laser")
//	_ = v.SetReferenceFrame("world")
//
//	_ = v.PushStatic("laser", "body", pose.FromTranslation(0.5, 0, 0))
//	_ = v.PushDynamic("body", "world", pose.FromTranslation(10, 0, 0), time.Now())
//	_ = v.Process(time.Time{})
//	fmt.Println(marker.Pose().Translation) // [10.5 0 0]
//
// # Main Packages
//
// ## Core
//
// [pose] - Rigid-body poses (translation plus unit quaternion) on mgl64.
//
// [transform] - The frame graph: static and dynamic edges, the pending
// buffer, tracked transformations and path resolution.
//
// [scene] - Scene nodes, default overlays and the mutation queue.
//
// [plugin] - The plugin contract and a base implementation.
//
// [view] - Plugin attachment manager and the View that ties everything
// together.
//
// ## Adapters
//
// [source] - Transformer configurations, the redis live feed and the HTTP API.
//
// [store] - Recordings in files, redis lists or MongoDB, and replay.
//
// [config] - TOML session files with environment overrides.
//
// [render/dot] - Graphviz export of the frame graph.
//
// ## Infrastructure
//
// [errors] - Coded errors and name validation.
//
// [observability] - Hooks for transform and scene events, with an
// OpenTelemetry implementation in observability/otel.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/transform/... # Specific package
//	go test -run Example ./...  # Examples only
//
// The redis and MongoDB backends need running servers and are exercised
// through the CLI rather than unit tests.
//
// [pose]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/pose
// [transform]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/transform
// [scene]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/scene
// [plugin]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/plugin
// [view]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/view
// [source]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/source
// [store]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/config
// [render/dot]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/render/dot
// [errors]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/vizframe/pkg/buildinfo
package pkg
