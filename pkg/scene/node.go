package scene

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/vizframe/pkg/pose"
)

var (
	// ErrHasParent is returned by [Node.AddChild] when the child already
	// hangs under a different node.
	ErrHasParent = errors.New("node already has a parent")

	// ErrCycle is returned by [Node.AddChild] when the child is the node
	// itself or one of its ancestors.
	ErrCycle = errors.New("node would become its own ancestor")
)

// Metadata stores arbitrary key-value pairs attached to a node, such as
// overlay dimensions or the plugin that owns it.
type Metadata map[string]any

// Kind classifies scene nodes.
type Kind int

const (
	// KindGroup is a plain container.
	KindGroup Kind = iota
	// KindGrid is the ground grid overlay.
	KindGrid
	// KindAxes is the coordinate axes overlay.
	KindAxes
	// KindContent is visual content owned by a plugin.
	KindContent
)

var kindNames = [...]string{"group", "grid", "axes", "content"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is an element of the scene tree.
type Node struct {
	ID   uuid.UUID
	Name string
	Kind Kind
	Meta Metadata // never nil

	pose     pose.Pose
	parent   *Node
	children []*Node
}

// NewNode creates a detached node with an identity pose.
func NewNode(name string, kind Kind) *Node {
	return &Node{
		ID:   uuid.New(),
		Name: name,
		Kind: kind,
		Meta: Metadata{},
		pose: pose.Identity(),
	}
}

// NewRoot creates the scene root.
func NewRoot() *Node { return NewNode("root", KindGroup) }

// Pose returns the node's pose relative to its parent.
func (n *Node) Pose() pose.Pose { return n.pose }

// SetPose replaces the node's pose relative to its parent.
func (n *Node) SetPose(p pose.Pose) { n.pose = p }

// Parent returns the node's parent, or nil for detached nodes and the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the node's children in insertion order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// HasChild reports whether c hangs directly under n.
func (n *Node) HasChild(c *Node) bool { return c != nil && c.parent == n }

// AddChild appends c to n's children. It reports false without error when c
// is already a child of n.
func (n *Node) AddChild(c *Node) (bool, error) {
	if n.HasChild(c) {
		return false, nil
	}
	if c.parent != nil {
		return false, ErrHasParent
	}
	for a := n; a != nil; a = a.parent {
		if a == c {
			return false, ErrCycle
		}
	}
	c.parent = n
	n.children = append(n.children, c)
	return true, nil
}

// RemoveChild detaches c from n. It reports false when c is not a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	if !n.HasChild(c) {
		return false
	}
	n.children = slices.DeleteFunc(n.children, func(x *Node) bool { return x == c })
	c.parent = nil
	return true
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Len counts n and all its descendants.
func (n *Node) Len() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// WorldPose composes the poses from the root down to n.
func (n *Node) WorldPose() pose.Pose {
	p := n.pose
	for a := n.parent; a != nil; a = a.parent {
		p = a.pose.Compose(p)
	}
	return p
}
