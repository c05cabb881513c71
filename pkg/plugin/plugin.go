// Package plugin defines the capability a visualization plugin exposes to
// the view and provides reusable building blocks for plugin hierarchies.
//
// Callers hand the view an [Object] tree. Each object may report the
// [Plugin] capability through [Object.Plugin] and lists its children through
// [Object.Children]; the view walks the tree itself, so plugins can be nested
// under plain containers such as [Group].
package plugin

import (
	"slices"
	"sync"

	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/scene"
)

// Object is a node of a caller-supplied hierarchy.
type Object interface {
	// Plugin returns the plugin capability of the object, if it has one.
	Plugin() (Plugin, bool)
	// Children returns the object's direct children.
	Children() []Object
}

// Plugin is a unit of visual content with its own scene node.
type Plugin interface {
	// Name identifies the plugin in logs and notifications.
	Name() string
	// RootNode returns the node the view inserts into the scene.
	RootNode() *scene.Node
	// SetPose positions the plugin's content in the reference frame.
	SetPose(pose.Pose)
	// Pose returns the last pose set.
	Pose() pose.Pose
	// Enabled reports whether the plugin's content should be in the scene.
	Enabled() bool
	// OnActivityChanged subscribes fn to enable/disable toggles and returns
	// a function that cancels the subscription.
	OnActivityChanged(fn func(enabled bool)) (unsubscribe func())
}

// Base is a ready-made Plugin. Its Plugin method reports the *Base itself,
// so a type that embeds Base is registered and looked up through the
// embedded pointer, not the outer value.
type Base struct {
	name string
	root *scene.Node

	mu       sync.Mutex
	children []Object
	pose     pose.Pose
	enabled  bool
	subs     map[int]func(bool)
	nextSub  int
}

var (
	_ Plugin = (*Base)(nil)
	_ Object = (*Base)(nil)
	_ Object = (*Group)(nil)
)

// NewBase creates an enabled plugin with an empty content node.
func NewBase(name string) *Base {
	root := scene.NewNode(name, scene.KindContent)
	root.Meta["plugin"] = name
	return &Base{
		name:    name,
		root:    root,
		pose:    pose.Identity(),
		enabled: true,
		subs:    make(map[int]func(bool)),
	}
}

func (b *Base) Name() string           { return b.name }
func (b *Base) RootNode() *scene.Node  { return b.root }
func (b *Base) Plugin() (Plugin, bool) { return b, true }

// Children returns the nested objects added with AddChild.
func (b *Base) Children() []Object {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.children)
}

// AddChild nests o under the plugin.
func (b *Base) AddChild(o Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children = append(b.children, o)
}

// SetPose stores p and moves the content node.
func (b *Base) SetPose(p pose.Pose) {
	b.mu.Lock()
	b.pose = p
	b.mu.Unlock()
	b.root.SetPose(p)
}

func (b *Base) Pose() pose.Pose {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}

// Enabled reports the current activity state.
func (b *Base) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// SetEnabled changes the activity state and notifies subscribers when it
// actually changes. Subscribers run on the calling goroutine.
func (b *Base) SetEnabled(enabled bool) {
	b.mu.Lock()
	if b.enabled == enabled {
		b.mu.Unlock()
		return
	}
	b.enabled = enabled
	subs := make([]func(bool), 0, len(b.subs))
	for _, id := range sortedKeys(b.subs) {
		subs = append(subs, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(enabled)
	}
}

func (b *Base) OnActivityChanged(fn func(enabled bool)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live activity subscriptions.
func (b *Base) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func sortedKeys(m map[int]func(bool)) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Group is a plain container without the plugin capability.
type Group struct {
	Name  string
	Items []Object
}

// NewGroup creates a container holding items.
func NewGroup(name string, items ...Object) *Group {
	return &Group{Name: name, Items: items}
}

func (g *Group) Plugin() (Plugin, bool) { return nil, false }
func (g *Group) Children() []Object     { return slices.Clone(g.Items) }

// Add appends items to the group.
func (g *Group) Add(items ...Object) { g.Items = append(g.Items, items...) }
