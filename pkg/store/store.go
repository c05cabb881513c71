// Package store records transformation samples and replays them.
//
// A [Store] is an append-only log of [Sample] records. Backends:
//
//   - [FileStore]: JSON lines in a local file
//   - [NullStore]: discards everything
//   - [RedisStore]: a redis list
//   - [MongoStore]: a MongoDB collection
//
// [Open] picks a backend from a URL:
//
//	s, err := store.Open(ctx, "file:///var/lib/vizframe/run1.jsonl")
//	s, err := store.Open(ctx, "redis://localhost:6379/0?key=vizframe:run1")
//	s, err := store.Open(ctx, "mongodb://localhost:27017/vizframe?collection=run1")
//	s, err := store.Open(ctx, "null:")
//
// [Replay] pushes a recording into anything with PushStatic and PushDynamic,
// such as a transform graph or a view.
package store

import (
	"context"
	"time"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// Store is an append-only log of samples.
type Store interface {
	// Append adds samples to the end of the log.
	Append(ctx context.Context, samples ...Sample) error
	// Load returns every sample in append order.
	Load(ctx context.Context) ([]Sample, error)
	// Close releases backend resources.
	Close() error
}

// Sample is one recorded transformation. It is also the JSON wire format of
// the live feed and the HTTP adapter.
type Sample struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Kind   transform.Kind `json:"kind"`
	Time   time.Time      `json:"time,omitzero"`
	Pose   pose.Pose      `json:"pose"`
}

// Pusher accepts transformations.
type Pusher interface {
	PushStatic(source, target string, p pose.Pose) error
	PushDynamic(source, target string, p pose.Pose, at time.Time) error
}

// Push sends the sample to p according to its kind.
func (s Sample) Push(p Pusher) error {
	if s.Kind == transform.KindStatic {
		return p.PushStatic(s.Source, s.Target, s.Pose)
	}
	return p.PushDynamic(s.Source, s.Target, s.Pose, s.Time)
}

// Validate checks frame names, pose and timestamp without pushing.
func (s Sample) Validate() error {
	for _, name := range []string{s.Source, s.Target} {
		if err := verrors.ValidateFrameName(name); err != nil {
			return err
		}
	}
	if !s.Pose.Valid() {
		return verrors.New(verrors.ErrCodeInvalidPose, "%s -> %s: invalid pose", s.Source, s.Target)
	}
	if s.Kind == transform.KindDynamic && s.Time.IsZero() {
		return verrors.New(verrors.ErrCodeInvalidSample, "%s -> %s: dynamic sample without time", s.Source, s.Target)
	}
	return nil
}
