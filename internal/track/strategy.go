package track

import (
	"math"

	"github.com/pkg/errors"
)

const (
	StrategyGreedy  = "greedy"
	StrategyOptimal = "optimal"
)

var ErrUnknownStrategy = errors.New("unknown assignment strategy")

// Strategy picks a track for each centroid. candidates holds initialized tracks only.
// The result has one entry per centroid: an index into candidates, or -1 for no match.
type Strategy interface {
	Name() string
	Match(candidates []*Track, centers []Point) []int
}

func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", StrategyGreedy:
		return Greedy{}, nil
	case StrategyOptimal:
		return Optimal{}, nil
	}
	return nil, errors.Wrap(ErrUnknownStrategy, name)
}

// Greedy matches every centroid to its nearest candidate independently of the others.
// Several centroids may land on the same track in one frame; the later write wins.
type Greedy struct{}

var _ Strategy = Greedy{}

func (Greedy) Name() string { return StrategyGreedy }

func (Greedy) Match(candidates []*Track, centers []Point) []int {
	out := make([]int, len(centers))
	for i, c := range centers {
		out[i] = nearest(candidates, c)
	}
	return out
}

// nearest is argmin over candidates; ties resolve to the lowest index.
func nearest(candidates []*Track, c Point) int {
	best, bestDist := -1, math.Inf(1)
	for i, t := range candidates {
		if d := t.distance(c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Optimal is a one-to-one matching minimizing the summed distance (Kuhn-Munkres).
// When there are more centroids than candidates the leftovers are unmatched.
type Optimal struct{}

var _ Strategy = Optimal{}

func (Optimal) Name() string { return StrategyOptimal }

func (Optimal) Match(candidates []*Track, centers []Point) []int {
	if len(candidates) == 0 {
		out := make([]int, len(centers))
		for i := range out {
			out[i] = -1
		}
		return out
	}
	cost := make([][]float64, len(centers))
	for i, c := range centers {
		cost[i] = make([]float64, len(candidates))
		for j, t := range candidates {
			cost[i][j] = t.distance(c)
		}
	}
	return minCostAssign(cost)
}
