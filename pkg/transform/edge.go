package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/matzehuels/vizframe/pkg/pose"
)

// DefaultMaxSamples is the default capacity of a dynamic edge buffer.
const DefaultMaxSamples = 256

// Kind distinguishes static from dynamic edges.
type Kind int

const (
	// KindStatic is a fixed pose valid for all time.
	KindStatic Kind = iota
	// KindDynamic is a time-ordered buffer of timestamped samples.
	KindDynamic
)

// String returns "static" or "dynamic".
func (k Kind) String() string {
	if k == KindDynamic {
		return "dynamic"
	}
	return "static"
}

// MarshalText encodes the kind as "static" or "dynamic".
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses "static" or "dynamic".
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "static":
		*k = KindStatic
	case "dynamic":
		*k = KindDynamic
	default:
		return fmt.Errorf("unknown edge kind %q", b)
	}
	return nil
}

// Sample is a timestamped pose on a dynamic edge.
type Sample struct {
	Time time.Time
	Pose pose.Pose
}

// EdgeInfo describes an edge for listings and export.
type EdgeInfo struct {
	Source  string    `json:"source"`
	Target  string    `json:"target"`
	Kind    Kind      `json:"kind"`
	Samples int       `json:"samples"`         // buffered samples; 1 for static edges
	Latest  time.Time `json:"latest,omitzero"` // latest sample time; zero for static edges
}

// freshestStatic ranks static edges above every dynamic sample.
const freshestStatic = math.MaxInt64

type edge struct {
	source, target string
	kind           Kind
	static         pose.Pose
	samples        []Sample // sorted by Time, ties in arrival order
}

func (e *edge) available() bool {
	return e.kind == KindStatic || len(e.samples) > 0
}

// freshness ranks the edge for path selection.
func (e *edge) freshness() int64 {
	if e.kind == KindStatic {
		return freshestStatic
	}
	if len(e.samples) == 0 {
		return math.MinInt64
	}
	return e.samples[len(e.samples)-1].Time.UnixNano()
}

// insert adds s keeping the buffer sorted and at most limit long.
func (e *edge) insert(s Sample, limit int) {
	i := sort.Search(len(e.samples), func(i int) bool {
		return e.samples[i].Time.After(s.Time)
	})
	e.samples = append(e.samples, Sample{})
	copy(e.samples[i+1:], e.samples[i:])
	e.samples[i] = s
	if limit > 0 && len(e.samples) > limit {
		e.samples = e.samples[len(e.samples)-limit:]
	}
}

// sample returns the pose valid at t: the latest sample at or before t, the
// earliest sample when t precedes the buffer, and the latest when t is zero.
func (e *edge) sample(t time.Time) (pose.Pose, bool) {
	if e.kind == KindStatic {
		return e.static, true
	}
	n := len(e.samples)
	if n == 0 {
		return pose.Pose{}, false
	}
	if t.IsZero() {
		return e.samples[n-1].Pose, true
	}
	i := sort.Search(n, func(i int) bool {
		return e.samples[i].Time.After(t)
	})
	if i == 0 {
		return e.samples[0].Pose, true
	}
	return e.samples[i-1].Pose, true
}

func (e *edge) info() EdgeInfo {
	info := EdgeInfo{Source: e.source, Target: e.target, Kind: e.kind, Samples: 1}
	if e.kind == KindDynamic {
		info.Samples = len(e.samples)
		if len(e.samples) > 0 {
			info.Latest = e.samples[len(e.samples)-1].Time
		}
	}
	return info
}

// edgeKey identifies a directed edge. A static and a dynamic edge may join
// the same ordered pair.
type edgeKey struct {
	source, target string
	kind           Kind
}
