package view

import "errors"

var (
	// ErrDuplicatePlugin is returned by [Manager.Attach] for a plugin that is
	// already registered. The registry is left unchanged and the plugin's
	// subtree is skipped.
	ErrDuplicatePlugin = errors.New("plugin already attached")

	// ErrUnknownPlugin is returned when detaching, binding or toggling a
	// plugin that was never attached or was already detached.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrNotPlugin is returned when an object without the plugin capability
	// is passed where a plugin is required.
	ErrNotPlugin = errors.New("object is not a plugin")
)
