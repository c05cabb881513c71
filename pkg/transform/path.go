package transform

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/matzehuels/vizframe/pkg/pose"
)

// hop is one edge of a chain, traversed backwards when inverse is set.
type hop struct {
	e       *edge
	inverse bool
}

// path selects the chain from source to target. A direct edge, in either
// direction, wins outright.
// Otherwise the chain maximizes the freshness of its weakest edge, then
// minimizes hops, then prefers frame names that sort first.
func (g *Graph) path(source, target string) ([]hop, bool) {
	if source == target {
		return nil, true
	}
	if !g.HasFrame(source) || !g.HasFrame(target) {
		return nil, false
	}
	if h, ok := g.between(source, target, math.MinInt64); ok {
		return []hop{h}, true
	}

	// Reachability only grows as the freshness threshold drops, so binary
	// search the distinct edge freshness values for the highest one that
	// still connects the frames.
	levels := g.freshnessLevels()
	i := sort.Search(len(levels), func(i int) bool {
		_, ok := g.shortest(source, target, levels[i])
		return ok
	})
	if i == len(levels) {
		return nil, false
	}
	return g.shortest(source, target, levels[i])
}

// freshnessLevels returns the distinct freshness values of available edges,
// highest first.
func (g *Graph) freshnessLevels() []int64 {
	levels := make([]int64, 0, len(g.edges))
	for _, e := range g.edges {
		if e.available() {
			levels = append(levels, e.freshness())
		}
	}
	slices.Sort(levels)
	levels = slices.Compact(levels)
	slices.Reverse(levels)
	return levels
}

// shortest runs a breadth-first search over edges at least as fresh as floor.
// Neighbors are visited in name order, so the first path found is the
// lexicographically smallest among the shortest ones.
func (g *Graph) shortest(source, target string, floor int64) ([]hop, bool) {
	prev := map[string]string{source: ""}
	queue := []string{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			break
		}
		for _, next := range g.adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			if _, ok := g.between(cur, next, floor); !ok {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	if _, ok := prev[target]; !ok {
		return nil, false
	}

	var chain []hop
	for cur := target; cur != source; cur = prev[cur] {
		h, _ := g.between(prev[cur], cur, floor)
		chain = append(chain, h)
	}
	slices.Reverse(chain)
	return chain, true
}

// between returns the freshest available edge joining from and to, at least
// as fresh as floor, as a hop taken from -> to. On equal freshness an edge
// pointing from -> to beats its reverse.
func (g *Graph) between(from, to string, floor int64) (hop, bool) {
	var best hop
	for _, h := range []hop{
		{e: g.edges[edgeKey{from, to, KindStatic}]},
		{e: g.edges[edgeKey{from, to, KindDynamic}]},
		{e: g.edges[edgeKey{to, from, KindStatic}], inverse: true},
		{e: g.edges[edgeKey{to, from, KindDynamic}], inverse: true},
	} {
		if h.e == nil || !h.e.available() || h.e.freshness() < floor {
			continue
		}
		if best.e == nil || h.e.freshness() > best.e.freshness() {
			best = h
		}
	}
	return best, best.e != nil
}

// evaluate composes the chain at time at. An empty chain is the identity.
func evaluate(chain []hop, at time.Time) (pose.Pose, bool) {
	result := pose.Identity()
	for _, h := range chain {
		p, ok := h.e.sample(at)
		if !ok {
			return pose.Pose{}, false
		}
		if h.inverse {
			p = p.Inverse()
		}
		result = p.Compose(result)
	}
	return result, true
}
