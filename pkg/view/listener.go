package view

import "github.com/matzehuels/vizframe/pkg/pose"

// Property names reported through [Listener.OnPropertyChanged].
const (
	PropertyShowGrid       = "show_grid"
	PropertyShowAxes       = "show_axes"
	PropertyReferenceFrame = "reference_frame"
)

// Listener receives notifications from a View. All methods run on the
// owning goroutine and must not block.
type Listener interface {
	// OnPropertyChanged reports a changed view property such as "show_grid".
	OnPropertyChanged(name string)
	// OnTransformationUpdated reports an applied static or dynamic push.
	OnTransformationUpdated(source, target string)
	// OnPoseUpdated reports a plugin moved to a new pose.
	OnPoseUpdated(id PluginID, name string, p pose.Pose)
	// OnError reports errors from queued requests.
	OnError(err error)
}

// NopListener ignores every notification. Embed it to implement only some
// methods of Listener.
type NopListener struct{}

func (NopListener) OnPropertyChanged(string)                  {}
func (NopListener) OnTransformationUpdated(string, string)    {}
func (NopListener) OnPoseUpdated(PluginID, string, pose.Pose) {}
func (NopListener) OnError(error)                             {}
