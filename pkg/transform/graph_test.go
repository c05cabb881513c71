package transform

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/pose"
)

func newTestGraph(opts ...Option) *Graph {
	return New(append([]Option{WithLogger(log.New(io.Discard))}, opts...)...)
}

func at(s int) time.Time { return time.Unix(int64(s), 0) }

func settle(t *testing.T, g *Graph) int {
	t.Helper()
	for n := 1; n <= 10; n++ {
		if !g.Step() {
			return n
		}
	}
	t.Fatal("Step() did not reach a fixed point")
	return 0
}

func mustPush(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("push: %v", err)
	}
}

func assertTranslation(t *testing.T, g *Graph, source, target string, when time.Time, want mgl64.Vec3) {
	t.Helper()
	p, ok := g.Resolve(source, target, when)
	if !ok {
		t.Fatalf("Resolve(%s, %s) unavailable", source, target)
	}
	if !p.Translation.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("Resolve(%s, %s) translation = %v, want %v", source, target, p.Translation, want)
	}
}

func TestResolve_ChainComposition(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	mustPush(t, g.PushStatic("B", "C", pose.FromTranslation(0, 1, 0)))
	settle(t, g)

	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{1, 1, 0})
	assertTranslation(t, g, "A", "C", at(12345), mgl64.Vec3{1, 1, 0})
}

func TestResolve_RotatedChain(t *testing.T) {
	g := newTestGraph()
	// B sits one unit along x in C, turned a quarter around z.
	mustPush(t, g.PushStatic("B", "C", pose.FromAxisAngle(mgl64.Vec3{1, 0, 0}, math.Pi/2, mgl64.Vec3{0, 0, 1})))
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	settle(t, g)

	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{1, 1, 0})
}

func TestResolve_InverseTraversal(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	mustPush(t, g.PushStatic("C", "B", pose.FromTranslation(0, 2, 0)))
	settle(t, g)

	assertTranslation(t, g, "B", "A", time.Time{}, mgl64.Vec3{-1, 0, 0})
	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{1, -2, 0})
}

func TestResolve_SameFrameIsIdentity(t *testing.T) {
	g := newTestGraph()
	p, ok := g.Resolve("world", "world", time.Time{})
	if !ok {
		t.Fatal("Resolve(world, world) unavailable")
	}
	if !p.ApproxEqual(pose.Identity(), 1e-12) {
		t.Errorf("Resolve(world, world) = %v, want identity", p)
	}
}

func TestResolve_Unavailable(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("A", "B", pose.Identity()))
	mustPush(t, g.PushStatic("C", "D", pose.Identity()))
	settle(t, g)

	tests := []struct{ source, target string }{
		{"A", "C"},
		{"A", "nowhere"},
		{"nowhere", "B"},
	}
	for _, tt := range tests {
		if _, ok := g.Resolve(tt.source, tt.target, time.Time{}); ok {
			t.Errorf("Resolve(%s, %s) should be unavailable", tt.source, tt.target)
		}
	}
}

func TestResolve_FreshestWeakestLink(t *testing.T) {
	g := newTestGraph()
	// Path via B1: weakest link sampled at t=5.
	mustPush(t, g.PushDynamic("A", "B1", pose.FromTranslation(1, 0, 0), at(30)))
	mustPush(t, g.PushDynamic("B1", "C", pose.FromTranslation(0, 1, 0), at(5)))
	// Path via B2: weakest link sampled at t=15.
	mustPush(t, g.PushDynamic("A", "B2", pose.FromTranslation(0, 0, 1), at(20)))
	mustPush(t, g.PushDynamic("B2", "C", pose.FromTranslation(0, 0, 1), at(15)))
	settle(t, g)

	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{0, 0, 2})

	// B1's weak link catches up; its weakest is now t=30.
	mustPush(t, g.PushDynamic("B1", "C", pose.FromTranslation(0, 1, 0), at(40)))
	settle(t, g)

	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{1, 1, 0})
}

func TestResolve_StaticBeatsDynamic(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushDynamic("A", "X", pose.FromTranslation(1, 0, 0), at(100)))
	mustPush(t, g.PushStatic("X", "C", pose.Identity()))
	mustPush(t, g.PushStatic("A", "Y", pose.FromTranslation(0, 1, 0)))
	mustPush(t, g.PushStatic("Y", "C", pose.Identity()))
	settle(t, g)

	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{0, 1, 0})
}

func TestResolve_DirectEdgePreferred(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushDynamic("A", "C", pose.FromTranslation(5, 0, 0), at(1)))
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	mustPush(t, g.PushStatic("B", "C", pose.FromTranslation(0, 1, 0)))
	settle(t, g)

	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{5, 0, 0})
}

func TestResolve_TieBreaks(t *testing.T) {
	t.Run("fewer hops", func(t *testing.T) {
		g := newTestGraph()
		mustPush(t, g.PushStatic("A", "P", pose.FromTranslation(1, 0, 0)))
		mustPush(t, g.PushStatic("P", "Q", pose.Identity()))
		mustPush(t, g.PushStatic("Q", "C", pose.Identity()))
		mustPush(t, g.PushStatic("A", "Z", pose.FromTranslation(0, 1, 0)))
		mustPush(t, g.PushStatic("Z", "C", pose.Identity()))
		settle(t, g)

		assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{0, 1, 0})
	})

	t.Run("frame names", func(t *testing.T) {
		g := newTestGraph()
		mustPush(t, g.PushStatic("A", "D", pose.FromTranslation(0, 1, 0)))
		mustPush(t, g.PushStatic("D", "C", pose.Identity()))
		mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
		mustPush(t, g.PushStatic("B", "C", pose.Identity()))
		settle(t, g)

		for i := 0; i < 5; i++ {
			assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{1, 0, 0})
		}
	})
}

func TestPushDynamic_InvalidSampleRejected(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushDynamic("lidar", "body", pose.FromTranslation(1, 2, 3), at(1)))
	settle(t, g)

	err := g.PushDynamic("lidar", "body", pose.FromTranslation(math.NaN(), 0, 0), at(2))
	if !errors.Is(err, ErrInvalidPose) {
		t.Fatalf("PushDynamic(NaN) error = %v, want ErrInvalidPose", err)
	}
	if !verrors.Is(err, verrors.ErrCodeInvalidPose) {
		t.Errorf("error code = %q, want %q", verrors.GetCode(err), verrors.ErrCodeInvalidPose)
	}
	if g.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", g.Pending())
	}
	settle(t, g)

	assertTranslation(t, g, "lidar", "body", time.Time{}, mgl64.Vec3{1, 2, 3})
	assertTranslation(t, g, "lidar", "body", at(2), mgl64.Vec3{1, 2, 3})
}

func TestPush_Validation(t *testing.T) {
	valid := pose.Identity()
	tests := []struct {
		name string
		push func(g *Graph) error
		want error
	}{
		{"empty source", func(g *Graph) error { return g.PushStatic("", "b", valid) }, ErrInvalidFrame},
		{"empty target", func(g *Graph) error { return g.PushDynamic("a", "", valid, at(1)) }, ErrInvalidFrame},
		{"self edge", func(g *Graph) error { return g.PushStatic("a", "a", valid) }, ErrInvalidFrame},
		{"unset rotation", func(g *Graph) error { return g.PushStatic("a", "b", pose.Pose{}) }, ErrInvalidPose},
		{"infinite translation", func(g *Graph) error {
			return g.PushStatic("a", "b", pose.FromTranslation(0, math.Inf(1), 0))
		}, ErrInvalidPose},
		{"missing timestamp", func(g *Graph) error { return g.PushDynamic("a", "b", valid, time.Time{}) }, ErrInvalidSample},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph()
			if err := tt.push(g); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if g.Pending() != 0 {
				t.Errorf("Pending() = %d, want 0", g.Pending())
			}
		})
	}
}

func TestPush_ReverseAndMixedKinds(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	mustPush(t, g.PushStatic("B", "A", pose.FromTranslation(0, 5, 0)))
	mustPush(t, g.PushDynamic("A", "B", pose.FromTranslation(7, 0, 0), at(10)))
	mustPush(t, g.PushDynamic("X", "Y", pose.FromTranslation(3, 0, 0), at(10)))
	mustPush(t, g.PushDynamic("Y", "X", pose.FromTranslation(0, 0, 4), at(5)))
	settle(t, g)

	want := []EdgeInfo{
		{Source: "A", Target: "B", Kind: KindStatic, Samples: 1},
		{Source: "A", Target: "B", Kind: KindDynamic, Samples: 1, Latest: at(10)},
		{Source: "B", Target: "A", Kind: KindStatic, Samples: 1},
		{Source: "X", Target: "Y", Kind: KindDynamic, Samples: 1, Latest: at(10)},
		{Source: "Y", Target: "X", Kind: KindDynamic, Samples: 1, Latest: at(5)},
	}
	got := g.Edges()
	if len(got) != len(want) {
		t.Fatalf("Edges() = %+v, want %d edges", got, len(want))
	}
	for i := range want {
		if got[i].Source != want[i].Source || got[i].Target != want[i].Target ||
			got[i].Kind != want[i].Kind || !got[i].Latest.Equal(want[i].Latest) {
			t.Errorf("Edges()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	// Static edges outrank the dynamic one; each direction uses its own edge.
	assertTranslation(t, g, "A", "B", time.Time{}, mgl64.Vec3{1, 0, 0})
	assertTranslation(t, g, "B", "A", time.Time{}, mgl64.Vec3{0, 5, 0})

	// The fresher of two opposing dynamic edges wins, traversed backwards
	// when it points the other way.
	assertTranslation(t, g, "X", "Y", time.Time{}, mgl64.Vec3{3, 0, 0})
	assertTranslation(t, g, "Y", "X", time.Time{}, mgl64.Vec3{-3, 0, 0})

	mustPush(t, g.PushDynamic("Y", "X", pose.FromTranslation(0, 0, 6), at(20)))
	settle(t, g)
	assertTranslation(t, g, "Y", "X", time.Time{}, mgl64.Vec3{0, 0, 6})
	assertTranslation(t, g, "X", "Y", time.Time{}, mgl64.Vec3{0, 0, -6})
}

func TestPush_ReverseEdgeInChain(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	mustPush(t, g.PushStatic("C", "B", pose.FromTranslation(0, 2, 0)))
	mustPush(t, g.PushDynamic("B", "C", pose.FromTranslation(0, 9, 0), at(1)))
	settle(t, g)

	// A -> B forward, then B -> C through the static C -> B inverted.
	assertTranslation(t, g, "A", "C", time.Time{}, mgl64.Vec3{1, -2, 0})
}

func TestPushStatic_Overwrite(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(1, 0, 0)))
	settle(t, g)
	mustPush(t, g.PushStatic("A", "B", pose.FromTranslation(2, 0, 0)))
	settle(t, g)

	assertTranslation(t, g, "A", "B", time.Time{}, mgl64.Vec3{2, 0, 0})
	if edges := g.Edges(); len(edges) != 1 {
		t.Errorf("Edges() = %d, want 1", len(edges))
	}
}

func TestPushDynamic_LookupAtTime(t *testing.T) {
	g := newTestGraph()
	// Out of order on purpose.
	for _, s := range []int{20, 10, 30} {
		mustPush(t, g.PushDynamic("A", "B", pose.FromTranslation(float64(s), 0, 0), at(s)))
	}
	settle(t, g)

	tests := []struct {
		name string
		when time.Time
		want float64
	}{
		{"latest", time.Time{}, 30},
		{"exact", at(20), 20},
		{"between", at(25), 20},
		{"after last", at(99), 30},
		{"before first", at(5), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTranslation(t, g, "A", "B", tt.when, mgl64.Vec3{tt.want, 0, 0})
		})
	}
}

func TestPushDynamic_Capacity(t *testing.T) {
	g := newTestGraph(WithMaxSamples(3))
	for s := 1; s <= 5; s++ {
		mustPush(t, g.PushDynamic("A", "B", pose.FromTranslation(float64(s), 0, 0), at(s)))
	}
	settle(t, g)

	edges := g.Edges()
	if len(edges) != 1 || edges[0].Samples != 3 {
		t.Fatalf("Edges() = %+v, want one edge with 3 samples", edges)
	}
	if !edges[0].Latest.Equal(at(5)) {
		t.Errorf("Latest = %v, want %v", edges[0].Latest, at(5))
	}
	assertTranslation(t, g, "A", "B", at(1), mgl64.Vec3{3, 0, 0})
}

func TestRegister_Handles(t *testing.T) {
	g := newTestGraph()
	h1, err := g.Register("lidar", "world")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	h2, err := g.Register("lidar", "world")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if h1 == h2 || h1 == 0 || h2 == 0 {
		t.Fatalf("handles %d and %d should be distinct and non-zero", h1, h2)
	}

	mustPush(t, g.PushDynamic("lidar", "world", pose.FromTranslation(0, 0, 1), at(1)))
	settle(t, g)

	if err := g.Unregister(h1); err != nil {
		t.Fatalf("Unregister(h1): %v", err)
	}
	p, ok, err := g.Lookup(h2, time.Time{})
	if err != nil || !ok {
		t.Fatalf("Lookup(h2) = %v, %v, want pose", ok, err)
	}
	if !p.Translation.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
		t.Errorf("Lookup(h2) translation = %v", p.Translation)
	}

	if err := g.Unregister(h1); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("double Unregister error = %v, want ErrUnknownHandle", err)
	}
	if err := g.Unregister(Handle(0)); !verrors.Is(err, verrors.ErrCodeUnknownHandle) {
		t.Errorf("Unregister(0) error = %v, want UNKNOWN_HANDLE", err)
	}
	if _, _, err := g.Lookup(h1, time.Time{}); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Lookup after Unregister error = %v, want ErrUnknownHandle", err)
	}
	if g.Tracked() != 1 {
		t.Errorf("Tracked() = %d, want 1", g.Tracked())
	}
}

func TestRegister_InvalidFrame(t *testing.T) {
	g := newTestGraph()
	if _, err := g.Register("", "world"); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Register(\"\", world) error = %v, want ErrInvalidFrame", err)
	}
	if _, err := g.Register("lidar", " world"); !verrors.Is(err, verrors.ErrCodeInvalidFrame) {
		t.Errorf("Register(lidar, \" world\") error = %v, want INVALID_FRAME", err)
	}
}

func TestLookup_BeforeConnected(t *testing.T) {
	g := newTestGraph()
	h, _ := g.Register("camera", "map")
	settle(t, g)

	if _, ok, err := g.Lookup(h, time.Time{}); ok || err != nil {
		t.Errorf("Lookup = %v, %v, want unavailable", ok, err)
	}

	mustPush(t, g.PushStatic("camera", "body", pose.FromTranslation(1, 0, 0)))
	mustPush(t, g.PushDynamic("body", "map", pose.FromTranslation(0, 1, 0), at(1)))
	settle(t, g)

	p, ok, err := g.Lookup(h, time.Time{})
	if !ok || err != nil {
		t.Fatalf("Lookup = %v, %v, want pose", ok, err)
	}
	if !p.Translation.ApproxEqual(mgl64.Vec3{1, 1, 0}) {
		t.Errorf("Lookup translation = %v, want [1 1 0]", p.Translation)
	}
}

func TestStep_FixedPoint(t *testing.T) {
	g := newTestGraph()
	for _, pair := range [][2]string{{"A", "C"}, {"B", "A"}, {"C", "B"}} {
		if _, err := g.Register(pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}

	// A cycle of dynamic edges, several samples each.
	edges := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}
	for i := 1; i <= 20; i++ {
		e := edges[i%len(edges)]
		mustPush(t, g.PushDynamic(e[0], e[1], pose.FromTranslation(float64(i), 0, 0), at(i)))
	}

	if n := settle(t, g); n > 3 {
		t.Errorf("Step() returned true %d times, want at most 2", n-1)
	}
	for i := 0; i < 3; i++ {
		if g.Step() {
			t.Fatal("Step() = true without new pushes")
		}
	}

	mustPush(t, g.PushDynamic("A", "B", pose.Identity(), at(21)))
	if !g.Step() {
		t.Error("Step() = false after a new push")
	}
}

func TestStep_NothingPending(t *testing.T) {
	g := newTestGraph()
	if g.Step() {
		t.Error("Step() on an empty graph = true")
	}
}

func TestStep_UpdateFuncOrder(t *testing.T) {
	var got []string
	g := newTestGraph(WithUpdateFunc(func(source, target string) {
		got = append(got, source+"->"+target)
	}))
	mustPush(t, g.PushStatic("a", "b", pose.Identity()))
	mustPush(t, g.PushDynamic("c", "b", pose.Identity(), at(1)))
	_ = g.PushStatic("", "b", pose.Identity())
	mustPush(t, g.PushStatic("a", "b", pose.Identity()))

	if len(got) != 0 {
		t.Fatalf("update func called before Step: %v", got)
	}
	settle(t, g)

	want := []string{"a->b", "c->b", "a->b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("updates = %v, want %v", got, want)
	}
}

func TestFramesAndEdges(t *testing.T) {
	g := newTestGraph()
	mustPush(t, g.PushStatic("world", "map", pose.Identity()))
	mustPush(t, g.PushDynamic("body", "map", pose.Identity(), at(7)))
	mustPush(t, g.PushStatic("lidar", "body", pose.Identity()))
	if len(g.Frames()) != 0 {
		t.Errorf("Frames() before Step = %v, want none", g.Frames())
	}
	settle(t, g)

	wantFrames := []string{"body", "lidar", "map", "world"}
	if fmt.Sprint(g.Frames()) != fmt.Sprint(wantFrames) {
		t.Errorf("Frames() = %v, want %v", g.Frames(), wantFrames)
	}

	edges := g.Edges()
	if len(edges) != 3 {
		t.Fatalf("Edges() = %d, want 3", len(edges))
	}
	if edges[0].Source != "body" || edges[0].Kind != KindDynamic || !edges[0].Latest.Equal(at(7)) {
		t.Errorf("Edges()[0] = %+v", edges[0])
	}
	if edges[2].Source != "world" || edges[2].Kind != KindStatic || edges[2].Samples != 1 {
		t.Errorf("Edges()[2] = %+v", edges[2])
	}
	if KindStatic.String() != "static" || KindDynamic.String() != "dynamic" {
		t.Error("Kind.String() mismatch")
	}
}

func TestPush_Concurrent(t *testing.T) {
	g := newTestGraph(WithMaxSamples(1000))
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = g.PushDynamic("sensor", "body", pose.Identity(), at(w*1000+i+1))
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := g.Register("sensor", "body")
			if err == nil {
				_ = g.Unregister(h)
			}
		}()
	}
	wg.Wait()

	if g.Pending() != 400 {
		t.Fatalf("Pending() = %d, want 400", g.Pending())
	}
	settle(t, g)
	if edges := g.Edges(); len(edges) != 1 || edges[0].Samples != 400 {
		t.Errorf("Edges() = %+v, want 400 samples", edges)
	}
	if g.Tracked() != 0 {
		t.Errorf("Tracked() = %d, want 0", g.Tracked())
	}
}
