package transform

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/observability"
	"github.com/matzehuels/vizframe/pkg/pose"
)

// Handle identifies one tracked transformation issued by [Graph.Register].
// The zero Handle is never issued.
type Handle uint64

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for rejected pushes. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMaxSamples bounds every dynamic edge buffer. Values below 1 are ignored.
func WithMaxSamples(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxSamples = n
		}
	}
}

// WithUpdateFunc registers fn to be called from [Graph.Step] for every push
// it applies, in submission order.
func WithUpdateFunc(fn func(source, target string)) Option {
	return func(g *Graph) { g.onUpdate = fn }
}

type push struct {
	source, target string
	kind           Kind
	pose           pose.Pose
	at             time.Time
}

type tracked struct {
	source, target string
	chain          []hop
	found          bool
	dirty          bool
}

// Graph is a frame-transform graph. Use New to create one.
type Graph struct {
	logger     *log.Logger
	maxSamples int
	onUpdate   func(source, target string)

	mu      sync.Mutex
	pending []push
	tracked map[Handle]*tracked
	next    Handle

	// Owned by the goroutine calling Step.
	edges  map[edgeKey]*edge
	adj    map[string][]string // frame -> sorted neighbors in either direction
	frames []string            // sorted
}

// New creates an empty Graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		logger:     log.Default(),
		maxSamples: DefaultMaxSamples,
		tracked:    make(map[Handle]*tracked),
		edges:      make(map[edgeKey]*edge),
		adj:        make(map[string][]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PushStatic queues a fixed pose of source in target. It installs the edge,
// or overwrites its pose, on the next Step.
func (g *Graph) PushStatic(source, target string, p pose.Pose) error {
	return g.enqueue(push{source: source, target: target, kind: KindStatic, pose: p})
}

// PushDynamic queues a timestamped pose of source in target. The edge is
// created on the next Step if absent.
func (g *Graph) PushDynamic(source, target string, p pose.Pose, at time.Time) error {
	return g.enqueue(push{source: source, target: target, kind: KindDynamic, pose: p, at: at})
}

func (g *Graph) enqueue(p push) error {
	ctx := context.Background()
	if err := g.accept(p); err != nil {
		g.logger.Warn("rejected transformation", "source", p.source, "target", p.target, "kind", p.kind, "err", err)
		observability.Transform().OnReject(ctx, p.source, p.target, err)
		return err
	}
	observability.Transform().OnPush(ctx, p.source, p.target, p.kind.String())
	return nil
}

func (g *Graph) accept(p push) error {
	if err := validatePair(p.source, p.target); err != nil {
		return err
	}
	if p.source == p.target {
		return verrors.Wrap(verrors.ErrCodeInvalidFrame, ErrInvalidFrame, "%q cannot be transformed into itself", p.source)
	}
	if !p.pose.HasValidTranslation() || !p.pose.HasValidRotation() {
		return verrors.Wrap(verrors.ErrCodeInvalidPose, ErrInvalidPose, "%s -> %s: %v", p.source, p.target, p.pose)
	}
	if p.kind == KindDynamic && p.at.IsZero() {
		return verrors.Wrap(verrors.ErrCodeInvalidSample, ErrInvalidSample, "%s -> %s", p.source, p.target)
	}
	p.pose = p.pose.Normalized()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(g.pending, p)
	return nil
}

func validatePair(source, target string) error {
	for _, name := range []string{source, target} {
		if err := verrors.ValidateFrameName(name); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidFrame, ErrInvalidFrame, "%s", verrors.UserMessage(err))
		}
	}
	return nil
}

// Register starts tracking the pose of source in target and returns a fresh
// handle for it. Registering the same pair twice yields two independent
// handles.
func (g *Graph) Register(source, target string) (Handle, error) {
	if err := validatePair(source, target); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.tracked[g.next] = &tracked{source: source, target: target, dirty: true}
	return g.next, nil
}

// Unregister stops tracking h. Releasing a handle twice is an error.
func (g *Graph) Unregister(h Handle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tracked[h]; !ok {
		return verrors.Wrap(verrors.ErrCodeUnknownHandle, ErrUnknownHandle, "handle %d", h)
	}
	delete(g.tracked, h)
	return nil
}

// Pending returns the number of queued pushes not yet applied.
func (g *Graph) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Tracked returns the number of live handles.
func (g *Graph) Tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tracked)
}

// Step advances the graph by one phase and reports whether anything changed.
// Call it until it returns false.
func (g *Graph) Step() bool {
	start := time.Now()
	g.mu.Lock()
	batch := g.pending
	g.pending = nil
	g.mu.Unlock()

	if len(batch) > 0 {
		for _, p := range batch {
			g.apply(p)
		}
		g.mu.Lock()
		for _, t := range g.tracked {
			t.dirty = true
		}
		g.mu.Unlock()
		observability.Transform().OnStep(context.Background(), len(batch), 0, time.Since(start))
		return true
	}

	recomputed, changed := g.recompute()
	if changed {
		observability.Transform().OnStep(context.Background(), 0, recomputed, time.Since(start))
	}
	return changed
}

func (g *Graph) apply(p push) {
	k := edgeKey{p.source, p.target, p.kind}
	e, ok := g.edges[k]
	if !ok {
		e = &edge{source: p.source, target: p.target, kind: p.kind}
		g.edges[k] = e
		g.link(p.source, p.target)
		g.link(p.target, p.source)
	}
	switch p.kind {
	case KindStatic:
		e.static = p.pose
	case KindDynamic:
		e.insert(Sample{Time: p.at, Pose: p.pose}, g.maxSamples)
	}
	if g.onUpdate != nil {
		g.onUpdate(p.source, p.target)
	}
}

func (g *Graph) link(from, to string) {
	if _, ok := g.adj[from]; !ok {
		i, _ := slices.BinarySearch(g.frames, from)
		g.frames = slices.Insert(g.frames, i, from)
	}
	neighbors := g.adj[from]
	if i, found := slices.BinarySearch(neighbors, to); !found {
		g.adj[from] = slices.Insert(neighbors, i, to)
	}
}

func (g *Graph) recompute() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, changed := 0, false
	for _, t := range g.tracked {
		if !t.dirty {
			continue
		}
		if g.refreshChain(t) {
			changed = true
		}
		n++
	}
	return n, changed
}

// refreshChain recomputes the chain of t and reports whether it differs.
func (g *Graph) refreshChain(t *tracked) bool {
	chain, found := g.path(t.source, t.target)
	t.dirty = false
	if found == t.found && slices.Equal(chain, t.chain) {
		return false
	}
	t.chain, t.found = chain, found
	return true
}

// Resolve returns the pose of source expressed in target at time at. The zero
// time selects the latest samples. It reports false when no chain connects
// the frames.
func (g *Graph) Resolve(source, target string, at time.Time) (pose.Pose, bool) {
	chain, ok := g.path(source, target)
	if !ok {
		return pose.Pose{}, false
	}
	return evaluate(chain, at)
}

// Lookup evaluates the cached chain of a tracked transformation at time at.
// The bool is false when the frames are not connected; the error is non-nil
// only for unknown handles.
func (g *Graph) Lookup(h Handle, at time.Time) (pose.Pose, bool, error) {
	g.mu.Lock()
	t, ok := g.tracked[h]
	if !ok {
		g.mu.Unlock()
		return pose.Pose{}, false, verrors.Wrap(verrors.ErrCodeUnknownHandle, ErrUnknownHandle, "handle %d", h)
	}
	if t.dirty {
		g.refreshChain(t)
	}
	chain, found := t.chain, t.found
	g.mu.Unlock()

	if !found {
		return pose.Pose{}, false, nil
	}
	p, ok := evaluate(chain, at)
	return p, ok, nil
}

// Frames returns every frame named by an applied push, sorted.
func (g *Graph) Frames() []string {
	return append([]string{}, g.frames...)
}

// HasFrame reports whether name appeared in an applied push.
func (g *Graph) HasFrame(name string) bool {
	_, ok := g.adj[name]
	return ok
}

// Edges returns all edges sorted by source, then target, static first.
func (g *Graph) Edges() []EdgeInfo {
	out := make([]EdgeInfo, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e.info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
