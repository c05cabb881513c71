// Package source adapts external data producers to a view.
//
// Three adapters are provided:
//
//   - [Connector] applies a transformer [Configuration] (static
//     transformations, port to frame associations and transformation
//     producers) and validates samples delivered by each producer
//   - [RedisFeed] subscribes to a redis pub/sub channel carrying JSON
//     samples
//   - [NewHandler] serves an HTTP API for pushing transformations and
//     inspecting the view
//
// None of the adapters mutate the view directly. They use the view's
// request and push methods, which are safe from any goroutine.
package source
