package transform_test

import (
	"fmt"
	"time"

	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/transform"
)

func ExampleGraph() {
	g := transform.New()

	// The lidar is mounted one meter ahead of the body; the body moves in the map.
	_ = g.PushStatic("lidar", "body", pose.FromTranslation(1, 0, 0))
	_ = g.PushDynamic("body", "map", pose.FromTranslation(0, 5, 0), time.Unix(10, 0))
	_ = g.PushDynamic("body", "map", pose.FromTranslation(0, 6, 0), time.Unix(11, 0))

	for g.Step() {
	}

	p, ok := g.Resolve("lidar", "map", time.Time{})
	fmt.Println(ok, p.Translation)

	p, _ = g.Resolve("lidar", "map", time.Unix(10, 500))
	fmt.Println(p.Translation)

	fmt.Println(g.Frames())
	// Output:
	// true [1 6 0]
	// [1 5 0]
	// [body lidar map]
}

func ExampleGraph_Register() {
	g := transform.New()
	h, _ := g.Register("camera", "world")

	_ = g.PushStatic("camera", "world", pose.FromTranslation(0, 0, 2))
	for g.Step() {
	}

	p, ok, err := g.Lookup(h, time.Time{})
	fmt.Println(ok, err, p.Translation)

	fmt.Println(g.Unregister(h) == nil)
	_, _, err = g.Lookup(h, time.Time{})
	fmt.Println(err != nil)
	// Output:
	// true <nil> [0 0 2]
	// true
	// true
}
