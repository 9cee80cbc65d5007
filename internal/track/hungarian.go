package track

import "math"

// minCostAssign solves the rectangular assignment problem for an n×m cost matrix with
// Kuhn-Munkres (potentials form, O(dim³)). It returns out[i] = column assigned to row i,
// or -1. Exactly min(n, m) rows are assigned and the summed cost is minimal.
//
// The matrix is padded square with zeros. A padded row or column costs the same whatever it
// is paired with, so padding never changes which real pairs are optimal.
func minCostAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	if m == 0 {
		return out
	}

	dim := max(n, m)
	at := func(i, j int) float64 {
		if i < n && j < m {
			return cost[i][j]
		}
		return 0
	}

	// 1-indexed; column 0 is virtual. u and v are the row and column potentials, p[j] is
	// the row matched to column j and way[j] the previous column on the augmenting path.
	const inf = math.MaxFloat64 / 2
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta, j1 := inf, -1
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				if cur := at(i0-1, j-1) - u[i0] - v[j]; cur < minv[j] {
					minv[j], way[j] = cur, j0
				}
				if minv[j] < delta {
					delta, j1 = minv[j], j
				}
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= m; j++ {
		if row := p[j] - 1; row >= 0 && row < n {
			out[row] = j - 1
		}
	}
	return out
}
