package transform

import "errors"

var (
	// ErrInvalidPose is returned by [Graph.PushStatic] and [Graph.PushDynamic]
	// when the pose has a non-finite translation or an unset rotation. The
	// sample is dropped and edge state is left unchanged.
	ErrInvalidPose = errors.New("invalid pose")

	// ErrInvalidFrame is returned when a frame name is empty or malformed.
	ErrInvalidFrame = errors.New("invalid frame name")

	// ErrUnknownHandle is returned by [Graph.Unregister] and [Graph.Lookup]
	// for handles that were never issued or were already released.
	ErrUnknownHandle = errors.New("unknown transformation handle")
)

// ErrInvalidSample is returned by [Graph.PushDynamic] for samples without a
// timestamp.
var ErrInvalidSample = errors.New("sample has no timestamp")
