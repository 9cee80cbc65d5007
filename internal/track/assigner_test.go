package track

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestAssigner(t *testing.T, maxBlocks int, strategy string) *Assigner {
	t.Helper()
	a, err := New(Config{MaxBlocks: maxBlocks, MaxQueue: DefaultMaxQueue, Strategy: strategy}, nil)
	require.NoError(t, err)
	return a
}

// seeded returns an assigner in the tracking state with tracks at the given points.
func seeded(t *testing.T, maxBlocks int, strategy string, pts ...Point) *Assigner {
	t.Helper()
	a := newTestAssigner(t, maxBlocks, strategy)
	a.Assign(context.Background(), pts)
	require.Equal(t, StateTracking, a.State())
	return a
}

func position(t *testing.T, a *Assigner, id int) Point {
	t.Helper()
	p, ok := a.Pool().Track(id).Position()
	require.True(t, ok, "track %d uninitialized", id)
	return p
}

func TestInitializationOrder(t *testing.T) {
	a := newTestAssigner(t, 6, StrategyGreedy)
	require.Equal(t, StateInitializing, a.State())

	r := []Point{Pt(300, 40), Pt(10, 10), Pt(150, 220)}
	got := a.Assign(context.Background(), r)
	require.Equal(t, []Assignment{{0, 0}, {1, 1}, {2, 2}}, got)
	require.Equal(t, StateTracking, a.State())

	for i, want := range r {
		require.Equal(t, want, position(t, a, i))
	}
	for i := 3; i < 6; i++ {
		require.False(t, a.Pool().Track(i).Initialized())
	}
	require.Equal(t, 6, a.Pool().Len())
}

func TestEmptyFramesKeepInitializing(t *testing.T) {
	a := newTestAssigner(t, 6, StrategyGreedy)
	for i := 0; i < 3; i++ {
		require.Empty(t, a.Assign(context.Background(), nil))
		require.Equal(t, StateInitializing, a.State())
	}
	a.Assign(context.Background(), []Point{Pt(1, 1)})
	require.Equal(t, StateTracking, a.State())
	require.EqualValues(t, 4, a.Stats().Frames)
}

func TestNearestNeighbor(t *testing.T) {
	testCases := []struct {
		desc     string
		strategy string
	}{
		{desc: "greedy", strategy: StrategyGreedy},
		{desc: "optimal", strategy: StrategyOptimal},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			a := seeded(t, 2, tC.strategy, Pt(0, 0), Pt(100, 100))

			got := a.Assign(context.Background(), []Point{Pt(5, 5)})
			require.Equal(t, []Assignment{{Region: 0, Track: 0}}, got)
			require.Equal(t, Pt(5, 5), position(t, a, 0))
			require.Equal(t, Pt(100, 100), position(t, a, 1))
			require.Equal(t, []Point{Pt(5, 5), Pt(0, 0)}, a.Pool().Track(0).History())
		})
	}
}

func TestGreedyCollision(t *testing.T) {
	a := seeded(t, 2, StrategyGreedy, Pt(0, 0), Pt(100, 100))

	got := a.Assign(context.Background(), []Point{Pt(5, 5), Pt(6, 6)})
	require.Equal(t, []Assignment{{Region: 0, Track: 0}, {Region: 1, Track: 0}}, got)

	require.Equal(t, Pt(6, 6), position(t, a, 0), "the last region in extractor order wins")
	require.Equal(t, []Point{Pt(6, 6), Pt(5, 5), Pt(0, 0)}, a.Pool().Track(0).History())
	require.Equal(t, []Point{Pt(100, 100)}, a.Pool().Track(1).History(), "track 1 receives nothing")
	require.EqualValues(t, 1, a.Stats().Collisions)
}

func TestOptimalResolvesCollision(t *testing.T) {
	a := seeded(t, 2, StrategyOptimal, Pt(0, 0), Pt(100, 0))

	got := a.Assign(context.Background(), []Point{Pt(5, 0), Pt(6, 0)})
	require.Len(t, got, 2)
	require.NotEqual(t, got[0].Track, got[1].Track)
	require.EqualValues(t, 0, a.Stats().Collisions)
	require.Equal(t, 2, a.Pool().Track(0).Len())
	require.Equal(t, 2, a.Pool().Track(1).Len())
}

func TestOptimalMinimizesTotal(t *testing.T) {
	// Greedy would send both regions to track 0; the optimal total sends the far one to track 1.
	a := seeded(t, 2, StrategyOptimal, Pt(0, 0), Pt(50, 0))
	got := a.Assign(context.Background(), []Point{Pt(10, 0), Pt(40, 0)})
	require.Equal(t, []Assignment{{0, 0}, {1, 1}}, got)
}

func TestOptimalMoreRegionsThanCandidates(t *testing.T) {
	a := newTestAssigner(t, 4, StrategyOptimal)
	a.Assign(context.Background(), []Point{Pt(0, 0), Pt(100, 0)})

	got := a.Assign(context.Background(), []Point{Pt(1, 0), Pt(99, 0), Pt(50, 0)})
	require.Equal(t, 0, got[0].Track)
	require.Equal(t, 1, got[1].Track)
	require.Equal(t, -1, got[2].Track)
	require.EqualValues(t, 1, a.Stats().Unmatched)
}

func TestRejectsNaN(t *testing.T) {
	a := seeded(t, 2, StrategyGreedy, Pt(0, 0), Pt(100, 100))
	before := a.Pool().Track(0).History()

	var got []Assignment
	require.NotPanics(t, func() {
		got = a.Assign(context.Background(), []Point{Pt(math.NaN(), 3)})
	})
	require.Equal(t, []Assignment{{Region: 0, Track: -1}}, got)
	require.Equal(t, Pt(0, 0), position(t, a, 0))
	require.Equal(t, before, a.Pool().Track(0).History())
	require.EqualValues(t, 1, a.Stats().Invalid)
}

func TestRejectsNaNWhileSeeding(t *testing.T) {
	a := newTestAssigner(t, 6, StrategyGreedy)
	got := a.Assign(context.Background(), []Point{Pt(1, 1), Pt(math.NaN(), 3), Pt(5, 5)})
	require.Equal(t, []Assignment{{0, 0}, {1, -1}, {2, 2}}, got)
	require.False(t, a.Pool().Track(1).Initialized())
	require.Equal(t, StateTracking, a.State())
}

func TestUninitializedTracksNeverCandidates(t *testing.T) {
	a := seeded(t, 6, StrategyGreedy, Pt(0, 0))
	for i := 0; i < 10; i++ {
		got := a.Assign(context.Background(), []Point{Pt(500, 500), Pt(900, 20)})
		require.Equal(t, 0, got[0].Track)
		require.Equal(t, 0, got[1].Track)
	}
	require.Equal(t, 1, a.Pool().Initialized())
}

func TestTooManyRegions(t *testing.T) {
	testCases := []struct {
		desc  string
		setup func(t *testing.T) *Assigner
	}{
		{
			desc:  "initializing",
			setup: func(t *testing.T) *Assigner { return newTestAssigner(t, 3, StrategyGreedy) },
		},
		{
			desc: "tracking",
			setup: func(t *testing.T) *Assigner {
				return seeded(t, 3, StrategyGreedy, Pt(0, 0), Pt(10, 0), Pt(20, 0))
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			a := tC.setup(t)
			r := []Point{Pt(0, 1), Pt(10, 1), Pt(20, 1), Pt(30, 1), Pt(40, 1)}
			got := a.Assign(context.Background(), r)
			require.Len(t, got, 5)
			require.Equal(t, -1, got[3].Track)
			require.Equal(t, -1, got[4].Track)
			require.EqualValues(t, 2, a.Stats().Dropped)
			require.Equal(t, 3, a.Pool().Len())
			for i := 0; i < 3; i++ {
				require.Equal(t, r[i], position(t, a, i))
			}
		})
	}
}

func TestTieGoesToLowestID(t *testing.T) {
	a := seeded(t, 2, StrategyGreedy, Pt(0, 0), Pt(10, 0))
	got := a.Assign(context.Background(), []Point{Pt(5, 0)})
	require.Equal(t, 0, got[0].Track)
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("")
	require.NoError(t, err)
	require.Equal(t, StrategyGreedy, s.Name())

	s, err = StrategyByName(StrategyOptimal)
	require.NoError(t, err)
	require.Equal(t, StrategyOptimal, s.Name())

	_, err = StrategyByName("kalman")
	require.True(t, errors.Is(err, ErrUnknownStrategy))

	require.Error(t, Config{MaxBlocks: 6, MaxQueue: 20, Strategy: "kalman"}.Validate())
}

func TestVisualize(t *testing.T) {
	a := newTestAssigner(t, 1, StrategyGreedy)
	v := a.Visualize()
	require.Contains(t, v, StateInitializing)
	require.Contains(t, v, StateTracking)
}
