package view

import (
	"errors"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// binding is the transform registry entry of one attached plugin.
type binding struct {
	plugin    plugin.Plugin
	dataFrame string
	handle    transform.Handle // zero when unbound
	last      pose.Pose
	posed     bool
}

// poseUpdate is a pose applied to a plugin during refresh.
type poseUpdate struct {
	id   PluginID
	name string
	pose pose.Pose
}

// transforms binds every attached plugin to the tracked transformation from
// its data frame to the reference frame.
type transforms struct {
	graph     *transform.Graph
	logger    *log.Logger
	reference string
	bindings  map[PluginID]*binding
}

func newTransforms(g *transform.Graph, logger *log.Logger) *transforms {
	return &transforms{graph: g, logger: logger, bindings: make(map[PluginID]*binding)}
}

// add creates an unbound entry for a newly attached plugin.
func (t *transforms) add(id PluginID, p plugin.Plugin) {
	t.bindings[id] = &binding{plugin: p}
}

// remove releases the plugin's handle and drops its entry.
func (t *transforms) remove(id PluginID) error {
	b, ok := t.bindings[id]
	if !ok {
		return verrors.Wrap(verrors.ErrCodeUnknownPlugin, ErrUnknownPlugin, "plugin %d has no transform binding", id)
	}
	delete(t.bindings, id)
	if b.handle != 0 {
		return t.graph.Unregister(b.handle)
	}
	return nil
}

// bind points the plugin at dataFrame. The plugin stays unbound while either
// the data frame or the reference frame is empty.
func (t *transforms) bind(id PluginID, dataFrame string) error {
	b, ok := t.bindings[id]
	if !ok {
		return verrors.Wrap(verrors.ErrCodeUnknownPlugin, ErrUnknownPlugin, "plugin %d", id)
	}
	if b.handle != 0 {
		if err := t.graph.Unregister(b.handle); err != nil {
			return err
		}
		b.handle = 0
	}
	b.dataFrame = dataFrame
	if dataFrame == "" || t.reference == "" {
		return nil
	}
	h, err := t.graph.Register(dataFrame, t.reference)
	if err != nil {
		return err
	}
	b.handle = h
	t.logger.Debug("bound plugin", "plugin", b.plugin.Name(), "data_frame", dataFrame, "reference", t.reference)
	return nil
}

// rebindAll switches the reference frame and rebinds every plugin with its
// current data frame.
func (t *transforms) rebindAll(reference string) error {
	t.reference = reference
	var errs []error
	for _, id := range t.ids() {
		if err := t.bind(id, t.bindings[id].dataFrame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// refresh moves every bound plugin to its current pose. Plugins whose chain
// is unavailable keep their last pose. It returns the poses that changed and
// the number of bound plugins left in place.
func (t *transforms) refresh(at time.Time) ([]poseUpdate, int) {
	var updates []poseUpdate
	skipped := 0
	for _, id := range t.ids() {
		b := t.bindings[id]
		if b.handle == 0 {
			continue
		}
		p, ok, err := t.graph.Lookup(b.handle, at)
		if err != nil {
			t.logger.Error("stale transform binding", "plugin", b.plugin.Name(), "err", err)
			skipped++
			continue
		}
		if !ok {
			skipped++
			continue
		}
		if b.posed && b.last.ApproxEqual(p, 1e-12) {
			continue
		}
		b.plugin.SetPose(p)
		b.last, b.posed = p, true
		updates = append(updates, poseUpdate{id: id, name: b.plugin.Name(), pose: p})
	}
	return updates, skipped
}

func (t *transforms) ids() []PluginID {
	ids := make([]PluginID, 0, len(t.bindings))
	for id := range t.bindings {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
