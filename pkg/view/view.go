// Package view keeps attached visualization plugins positioned in a common
// reference frame.
//
// A [View] combines a [transform.Graph], a scene tree, a [Manager] for
// plugin bookkeeping and a [scene.Queue] that serializes scene mutation on
// one owning goroutine. The owning goroutine calls [View.Process] (or runs
// [View.Run]); every other goroutine talks to the view through the request
// methods, which only enqueue:
//
//	v := view.New(view.WithListener(ui))
//	go v.Run(ctx, 30*time.Millisecond)
//
//	v.AddPlugin(laser, nil)
//	v.RequestPluginDataFrame(laser, "laser")
//	v.RequestReferenceFrame("world")
//	_ = v.PushDynamic("laser", "world", p, stamp)
//
// Each Process call drains the queue, steps the graph to a fixed point and
// moves every bound plugin to its latest resolvable pose. Plugins whose
// chain is unavailable keep their last pose.
package view

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/observability"
	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/scene"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// maxStepsPerProcess bounds graph steps per Process call so that producers
// pushing faster than the loop runs cannot starve the refresh.
const maxStepsPerProcess = 16

// Option configures a View.
type Option func(*config)

type config struct {
	logger     *log.Logger
	listener   Listener
	maxSamples int
	grid       bool
	axes       bool
}

// WithLogger sets the logger shared by the view and its graph.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListener sets the notification receiver.
func WithListener(l Listener) Option {
	return func(c *config) {
		if l != nil {
			c.listener = l
		}
	}
}

// WithMaxSamples bounds dynamic edge buffers of the graph.
func WithMaxSamples(n int) Option {
	return func(c *config) { c.maxSamples = n }
}

// WithOverlays sets the initial grid and axes visibility. The grid is shown
// and the axes are hidden by default.
func WithOverlays(grid, axes bool) Option {
	return func(c *config) { c.grid, c.axes = grid, axes }
}

// View positions attached plugins in a shared reference frame.
type View struct {
	logger   *log.Logger
	listener Listener
	graph    *transform.Graph
	root     *scene.Node
	grid     *scene.Node
	axes     *scene.Node
	queue    *scene.Queue
	manager  *Manager
	snapshot atomic.Pointer[Snapshot]
}

// New creates a View with an empty graph and scene.
func New(opts ...Option) *View {
	cfg := config{
		logger:     log.Default(),
		listener:   NopListener{},
		maxSamples: transform.DefaultMaxSamples,
		grid:       true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	v := &View{
		logger:   cfg.logger,
		listener: cfg.listener,
		root:     scene.NewRoot(),
		grid:     scene.NewGrid(scene.DefaultGridSize, scene.DefaultGridSpacing),
		axes:     scene.NewAxes(scene.DefaultAxesLength),
		queue:    scene.NewQueue(),
	}
	v.graph = transform.New(
		transform.WithLogger(cfg.logger),
		transform.WithMaxSamples(cfg.maxSamples),
		transform.WithUpdateFunc(func(source, target string) {
			v.listener.OnTransformationUpdated(source, target)
		}),
	)
	v.manager = NewManager(v.root, v.graph,
		WithManagerLogger(cfg.logger),
		WithActivityHandler(v.requestActivity),
	)
	v.setOverlay(v.grid, cfg.grid)
	v.setOverlay(v.axes, cfg.axes)
	v.publish()
	return v
}

// =============================================================================
// Owning goroutine
// =============================================================================

// Attach registers every plugin in the tree rooted at obj.
func (v *View) Attach(obj, parent plugin.Object) error {
	return v.manager.Attach(obj, parent)
}

// Detach unregisters every plugin in the tree rooted at obj.
func (v *View) Detach(obj plugin.Object) error {
	return v.manager.Detach(obj)
}

// SetReferenceFrame rebinds every plugin to frame and refreshes poses.
func (v *View) SetReferenceFrame(frame string) error {
	if frame == v.manager.ReferenceFrame() {
		return nil
	}
	err := v.manager.SetReferenceFrame(frame)
	if v.manager.ReferenceFrame() != frame {
		return err
	}
	v.logger.Info("reference frame changed", "frame", frame)
	v.listener.OnPropertyChanged(PropertyReferenceFrame)
	v.refresh(time.Time{})
	return err
}

// SetPluginDataFrame sets the frame the plugin's content is authored in.
func (v *View) SetPluginDataFrame(obj plugin.Object, frame string) error {
	p, ok := obj.Plugin()
	if !ok {
		return verrors.Wrap(verrors.ErrCodeNotPlugin, ErrNotPlugin, "cannot set data frame %q", frame)
	}
	return v.manager.SetDataFrame(p, frame)
}

// SetActivity shows or hides the plugin's content.
func (v *View) SetActivity(p plugin.Plugin, enabled bool) error {
	return v.manager.SetActivity(p, enabled)
}

// SetGridEnabled shows or hides the ground grid.
func (v *View) SetGridEnabled(enabled bool) {
	v.setOverlay(v.grid, enabled)
	v.listener.OnPropertyChanged(PropertyShowGrid)
}

// GridEnabled reports whether the ground grid is shown.
func (v *View) GridEnabled() bool { return v.root.HasChild(v.grid) }

// SetAxesEnabled shows or hides the coordinate axes.
func (v *View) SetAxesEnabled(enabled bool) {
	v.setOverlay(v.axes, enabled)
	v.listener.OnPropertyChanged(PropertyShowAxes)
}

// AxesEnabled reports whether the coordinate axes are shown.
func (v *View) AxesEnabled() bool { return v.root.HasChild(v.axes) }

func (v *View) setOverlay(n *scene.Node, enabled bool) {
	if enabled {
		_, _ = v.root.AddChild(n)
		return
	}
	v.root.RemoveChild(n)
}

// Process runs queued requests, integrates pending transformations and
// refreshes plugin poses at time at (zero for latest). It returns the errors
// of the queued requests, which are also logged and sent to the listener.
func (v *View) Process(at time.Time) error {
	err := v.queue.Drain()
	for i := 0; i < maxStepsPerProcess && v.graph.Step(); i++ {
	}
	v.refresh(at)
	v.publish()

	if err != nil {
		v.logger.Error("queued request failed", "err", err)
		v.listener.OnError(err)
	}
	return err
}

// Run calls Process every interval until ctx is done.
func (v *View) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = v.Process(time.Time{})
		}
	}
}

func (v *View) refresh(at time.Time) {
	updates, skipped := v.manager.reg.refresh(at)
	for _, u := range updates {
		v.listener.OnPoseUpdated(u.id, u.name, u.pose)
	}
	if len(updates) > 0 || skipped > 0 {
		observability.Scene().OnRefresh(context.Background(), len(updates), skipped)
	}
}

// Frames returns every frame named by an applied push, sorted.
func (v *View) Frames() []string { return v.graph.Frames() }

// ReferenceFrame returns the current reference frame.
func (v *View) ReferenceFrame() string { return v.manager.ReferenceFrame() }

// Graph returns the underlying transform graph.
func (v *View) Graph() *transform.Graph { return v.graph }

// Scene returns the scene root.
func (v *View) Scene() *scene.Node { return v.root }

// Manager returns the plugin manager.
func (v *View) Manager() *Manager { return v.manager }

// =============================================================================
// Any goroutine
// =============================================================================

// AddPlugin queues Attach.
func (v *View) AddPlugin(obj, parent plugin.Object) {
	v.queue.Submit(func() error { return v.manager.Attach(obj, parent) })
}

// RemovePlugin queues Detach.
func (v *View) RemovePlugin(obj plugin.Object) {
	v.queue.Submit(func() error { return v.manager.Detach(obj) })
}

// RequestReferenceFrame queues SetReferenceFrame.
func (v *View) RequestReferenceFrame(frame string) {
	v.queue.Submit(func() error { return v.SetReferenceFrame(frame) })
}

// RequestPluginDataFrame queues SetPluginDataFrame.
func (v *View) RequestPluginDataFrame(obj plugin.Object, frame string) {
	v.queue.Submit(func() error { return v.SetPluginDataFrame(obj, frame) })
}

// requestActivity defers a plugin's own activity toggle. Plugins detached
// before the toggle runs are skipped.
func (v *View) requestActivity(p plugin.Plugin, enabled bool) {
	v.queue.Submit(func() error {
		if _, ok := v.manager.Lookup(p); !ok {
			v.logger.Debug("activity change for detached plugin", "plugin", p.Name())
			return nil
		}
		return v.manager.SetActivity(p, enabled)
	})
}

// PushStatic queues a static transformation.
func (v *View) PushStatic(source, target string, p pose.Pose) error {
	return v.graph.PushStatic(source, target, p)
}

// PushDynamic queues a dynamic transformation sample.
func (v *View) PushDynamic(source, target string, p pose.Pose, at time.Time) error {
	return v.graph.PushDynamic(source, target, p, at)
}

// Query runs fn on the owning goroutine during the next Process and waits
// for it. It fails with ctx's error if no Process call picks it up in time.
func (v *View) Query(ctx context.Context, fn func(*View) error) error {
	done := make(chan error, 1)
	v.queue.Submit(func() error {
		done <- fn(v)
		return nil
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state published by the last Process call.
func (v *View) Snapshot() *Snapshot { return v.snapshot.Load() }

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is a read-only copy of view state, safe to share between goroutines.
type Snapshot struct {
	Reference string               `json:"reference_frame"`
	Frames    []string             `json:"frames"`
	Edges     []transform.EdgeInfo `json:"edges"`
	Plugins   []PluginState        `json:"plugins"`
	Grid      bool                 `json:"show_grid"`
	Axes      bool                 `json:"show_axes"`
}

// PluginState is the published state of one plugin.
type PluginState struct {
	ID        PluginID  `json:"id"`
	Name      string    `json:"name"`
	DataFrame string    `json:"data_frame,omitempty"`
	Active    bool      `json:"active"`
	Bound     bool      `json:"bound"`
	Pose      pose.Pose `json:"pose"`
}

func (v *View) publish() {
	s := &Snapshot{
		Reference: v.manager.ReferenceFrame(),
		Frames:    v.graph.Frames(),
		Edges:     v.graph.Edges(),
		Grid:      v.GridEnabled(),
		Axes:      v.AxesEnabled(),
		Plugins:   []PluginState{},
	}
	for _, id := range v.manager.Plugins() {
		rec, _ := v.manager.Record(id)
		s.Plugins = append(s.Plugins, PluginState{
			ID:        id,
			Name:      rec.Plugin.Name(),
			DataFrame: rec.DataFrame,
			Active:    rec.Active,
			Bound:     rec.Bound(),
			Pose:      rec.Plugin.Pose(),
		})
	}
	v.snapshot.Store(s)
}

// Plugin returns the published state of the named plugin.
func (s *Snapshot) Plugin(name string) (PluginState, bool) {
	for _, p := range s.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginState{}, false
}
