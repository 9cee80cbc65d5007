package track

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func candidatesAt(t *testing.T, pts ...Point) []*Track {
	t.Helper()
	out := make([]*Track, len(pts))
	for i, p := range pts {
		out[i] = newTrack(i, DefaultMaxQueue, nil)
		require.NoError(t, out[i].Update(p))
	}
	return out
}

// bruteForceMin is the smallest summed distance over every matching of size min(nr, nc).
func bruteForceMin(candidates []*Track, centers []Point) float64 {
	want := min(len(candidates), len(centers))
	used := make([]bool, len(candidates))
	best := math.Inf(1)
	var walk func(i, matched int, sum float64)
	walk = func(i, matched int, sum float64) {
		if matched+len(centers)-i < want {
			return
		}
		if i == len(centers) {
			best = math.Min(best, sum)
			return
		}
		walk(i+1, matched, sum)
		for j, t := range candidates {
			if used[j] {
				continue
			}
			used[j] = true
			walk(i+1, matched+1, sum+t.distance(centers[i]))
			used[j] = false
		}
	}
	walk(0, 0, 0)
	return best
}

func TestOptimalMatchesBruteForce(t *testing.T) {
	testCases := []struct {
		desc       string
		candidates int
		centers    int
	}{
		{desc: "square 2", candidates: 2, centers: 2},
		{desc: "square 3", candidates: 3, centers: 3},
		{desc: "square 5", candidates: 5, centers: 5},
		{desc: "more tracks", candidates: 5, centers: 2},
		{desc: "more tracks by one", candidates: 4, centers: 3},
		{desc: "more regions", candidates: 2, centers: 5},
		{desc: "single track", candidates: 1, centers: 4},
		{desc: "single region", candidates: 4, centers: 1},
	}
	r := rand.New(rand.NewSource(7))
	randPt := func() Point { return Pt(float64(r.Intn(400)), float64(r.Intn(300))) }

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			for n := 0; n < 200; n++ {
				pts := make([]Point, tC.candidates)
				for i := range pts {
					pts[i] = randPt()
				}
				cands := candidatesAt(t, pts...)
				centers := make([]Point, tC.centers)
				for i := range centers {
					centers[i] = randPt()
				}

				got := Optimal{}.Match(cands, centers)
				require.Len(t, got, len(centers))

				seen := map[int]bool{}
				matched, sum := 0, 0.0
				for i, m := range got {
					if m < 0 {
						continue
					}
					require.Less(t, m, len(cands))
					require.False(t, seen[m], "track %d matched twice", m)
					seen[m] = true
					matched++
					sum += cands[m].distance(centers[i])
				}
				require.Equal(t, min(len(cands), len(centers)), matched)
				require.InDelta(t, bruteForceMin(cands, centers), sum, 1e-9, "tracks %v regions %v", pts, centers)
			}
		})
	}
}

func TestMinCostAssign(t *testing.T) {
	testCases := []struct {
		desc string
		cost [][]float64
		want []int
	}{
		{
			desc: "square",
			cost: [][]float64{{6, 1, 2}, {6, 7, 4}, {6, 1, 5}},
			want: []int{2, 0, 1},
		},
		{
			desc: "more columns",
			cost: [][]float64{{9, 1, 9}, {1, 9, 9}},
			want: []int{1, 0},
		},
		{
			desc: "more rows",
			cost: [][]float64{{5}, {1}, {3}},
			want: []int{-1, 0, -1},
		},
		{
			desc: "no columns",
			cost: [][]float64{{}, {}},
			want: []int{-1, -1},
		},
		{
			desc: "no rows",
			cost: nil,
			want: nil,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			require.Equal(t, tC.want, minCostAssign(tC.cost))
		})
	}
}
