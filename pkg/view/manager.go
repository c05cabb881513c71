package view

import (
	"context"
	"errors"
	"slices"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/observability"
	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/scene"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// PluginID is the stable identifier issued to a plugin at attach time.
// IDs are never reused; zero is never issued.
type PluginID uint64

// Record describes an attached plugin.
type Record struct {
	ID        PluginID
	Plugin    plugin.Plugin
	Parent    PluginID // nearest attached plugin ancestor, zero if none
	DataFrame string
	Handle    transform.Handle // zero while unbound
	Active    bool             // content is in the scene
}

// Bound reports whether the plugin tracks a transformation.
func (r Record) Bound() bool { return r.Handle != 0 }

type entry struct {
	plugin      plugin.Plugin
	parent      PluginID
	active      bool
	unsubscribe func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger. Defaults to log.Default().
func WithManagerLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithActivityHandler routes plugin activity notifications to fn instead of
// applying them immediately. The view uses it to defer toggles to its owning
// goroutine.
func WithActivityHandler(fn func(p plugin.Plugin, enabled bool)) ManagerOption {
	return func(m *Manager) { m.activity = fn }
}

// Manager owns the set of attached plugins, their scene content and their
// transform bindings.
//
// Plugin implementations must be comparable, which holds for pointer types.
// A Manager is not safe for concurrent use.
type Manager struct {
	logger   *log.Logger
	root     *scene.Node
	reg      *transforms
	entries  map[PluginID]*entry
	ids      map[plugin.Plugin]PluginID
	next     PluginID
	activity func(p plugin.Plugin, enabled bool)
}

// NewManager creates a Manager that inserts plugin content under root and
// tracks transformations in g.
func NewManager(root *scene.Node, g *transform.Graph, opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:  log.Default(),
		root:    root,
		entries: make(map[PluginID]*entry),
		ids:     make(map[plugin.Plugin]PluginID),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reg = newTransforms(g, m.logger)
	if m.activity == nil {
		m.activity = func(p plugin.Plugin, enabled bool) {
			if err := m.SetActivity(p, enabled); err != nil {
				m.logger.Warn("activity change ignored", "plugin", p.Name(), "err", err)
			}
		}
	}
	return m
}

// Attach registers every plugin found in the tree rooted at obj, parents
// before children. Objects already visited in this call are skipped. The
// call is all or nothing: on a duplicate plugin every plugin it inserted is
// detached again and the registry is left as it was.
func (m *Manager) Attach(obj, parent plugin.Object) error {
	var added []plugin.Plugin
	err := m.attach(obj, m.parentID(parent), make(map[plugin.Object]struct{}), &added)
	if err != nil {
		for _, p := range slices.Backward(added) {
			if rerr := m.remove(p); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
	}
	return err
}

func (m *Manager) attach(obj plugin.Object, parent PluginID, visited map[plugin.Object]struct{}, added *[]plugin.Plugin) error {
	if obj == nil {
		return nil
	}
	if _, seen := visited[obj]; seen {
		return nil
	}
	visited[obj] = struct{}{}

	if p, ok := obj.Plugin(); ok {
		id, err := m.insert(p, parent)
		if err != nil {
			return err
		}
		*added = append(*added, p)
		parent = id
	}
	for _, child := range obj.Children() {
		if err := m.attach(child, parent, visited, added); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) insert(p plugin.Plugin, parent PluginID) (PluginID, error) {
	if id, ok := m.ids[p]; ok {
		return 0, verrors.Wrap(verrors.ErrCodeDuplicatePlugin, ErrDuplicatePlugin, "%s (id %d)", p.Name(), id)
	}
	active := p.Enabled()
	if node := p.RootNode(); node != nil && active {
		if _, err := m.root.AddChild(node); err != nil {
			return 0, verrors.Wrap(verrors.ErrCodeInvalidInput, err, "insert content of %s", p.Name())
		}
	}

	m.next++
	id := m.next
	e := &entry{plugin: p, parent: parent, active: active}
	m.entries[id] = e
	m.ids[p] = id
	m.reg.add(id, p)
	e.unsubscribe = p.OnActivityChanged(func(enabled bool) { m.activity(p, enabled) })

	m.logger.Debug("attached plugin", "plugin", p.Name(), "id", id)
	observability.Scene().OnAttach(context.Background(), p.Name())
	return id, nil
}

// Detach unregisters every plugin in the tree rooted at obj. A plugin that
// was never attached fails with ErrUnknownPlugin and its subtree is skipped.
func (m *Manager) Detach(obj plugin.Object) error {
	var errs []error
	m.detach(obj, make(map[plugin.Object]struct{}), &errs)
	return errors.Join(errs...)
}

func (m *Manager) detach(obj plugin.Object, visited map[plugin.Object]struct{}, errs *[]error) {
	if obj == nil {
		return
	}
	if _, seen := visited[obj]; seen {
		return
	}
	visited[obj] = struct{}{}

	if p, ok := obj.Plugin(); ok {
		if err := m.remove(p); err != nil {
			*errs = append(*errs, err)
			return
		}
	}
	for _, child := range obj.Children() {
		m.detach(child, visited, errs)
	}
}

func (m *Manager) remove(p plugin.Plugin) error {
	id, ok := m.ids[p]
	if !ok {
		return verrors.Wrap(verrors.ErrCodeUnknownPlugin, ErrUnknownPlugin, "%s was never attached", p.Name())
	}
	e := m.entries[id]
	if node := p.RootNode(); node != nil {
		m.root.RemoveChild(node)
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	delete(m.entries, id)
	delete(m.ids, p)

	m.logger.Debug("detached plugin", "plugin", p.Name(), "id", id)
	observability.Scene().OnDetach(context.Background(), p.Name())
	return m.reg.remove(id)
}

// SetActivity inserts or removes the plugin's content. Requesting the current
// state again does nothing.
func (m *Manager) SetActivity(p plugin.Plugin, enabled bool) error {
	id, ok := m.ids[p]
	if !ok {
		return verrors.Wrap(verrors.ErrCodeUnknownPlugin, ErrUnknownPlugin, "%s", p.Name())
	}
	e := m.entries[id]
	node := p.RootNode()
	changed := false
	switch {
	case node == nil:
		changed = e.active != enabled
	case enabled && !m.root.HasChild(node):
		if _, err := m.root.AddChild(node); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidInput, err, "insert content of %s", p.Name())
		}
		changed = true
	case !enabled && m.root.HasChild(node):
		changed = m.root.RemoveChild(node)
	}
	e.active = enabled
	if changed {
		observability.Scene().OnActivity(context.Background(), p.Name(), enabled)
	}
	return nil
}

// SetDataFrame rebinds the plugin to frame. An empty frame unbinds it.
func (m *Manager) SetDataFrame(p plugin.Plugin, frame string) error {
	id, ok := m.ids[p]
	if !ok {
		return verrors.Wrap(verrors.ErrCodeUnknownPlugin, ErrUnknownPlugin, "%s", p.Name())
	}
	if err := verrors.ValidateOptionalFrameName(frame); err != nil {
		return verrors.Wrap(verrors.ErrCodeInvalidFrame, transform.ErrInvalidFrame, "%s", verrors.UserMessage(err))
	}
	if m.reg.bindings[id].dataFrame == frame {
		return nil
	}
	return m.reg.bind(id, frame)
}

// ReferenceFrame returns the frame every plugin pose is expressed in.
func (m *Manager) ReferenceFrame() string { return m.reg.reference }

// SetReferenceFrame rebinds every plugin to frame. An empty frame leaves all
// plugins unbound.
func (m *Manager) SetReferenceFrame(frame string) error {
	if err := verrors.ValidateOptionalFrameName(frame); err != nil {
		return verrors.Wrap(verrors.ErrCodeInvalidFrame, transform.ErrInvalidFrame, "%s", verrors.UserMessage(err))
	}
	return m.reg.rebindAll(frame)
}

// Lookup returns the ID of an attached plugin.
func (m *Manager) Lookup(p plugin.Plugin) (PluginID, bool) {
	id, ok := m.ids[p]
	return id, ok
}

// Record returns a copy of the plugin's record.
func (m *Manager) Record(id PluginID) (Record, bool) {
	e, ok := m.entries[id]
	if !ok {
		return Record{}, false
	}
	b := m.reg.bindings[id]
	return Record{
		ID:        id,
		Plugin:    e.plugin,
		Parent:    e.parent,
		DataFrame: b.dataFrame,
		Handle:    b.handle,
		Active:    e.active,
	}, true
}

// Plugins returns the IDs of all attached plugins in attach order.
func (m *Manager) Plugins() []PluginID {
	ids := make([]PluginID, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of attached plugins.
func (m *Manager) Len() int { return len(m.entries) }

func (m *Manager) parentID(parent plugin.Object) PluginID {
	if parent == nil {
		return 0
	}
	if p, ok := parent.Plugin(); ok {
		return m.ids[p]
	}
	return 0
}
