package cluster

import (
	"cmp"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/sells-group/reviewpower/internal/fault"
)

// KMeans partitions points into K groups with Lloyd's algorithm and
// k-means++ seeding. Runs are single-threaded and fully determined by Seed.
type KMeans struct {
	K         int
	MaxIter   int
	NInit     int
	Tolerance float64
	Seed      uint64

	Centroids  [][]float64
	Labels     []int
	Inertia    float64
	Iterations int
}

// Fit clusters X. It fails with InsufficientData when X holds fewer than K
// distinct points.
func (m *KMeans) Fit(X [][]float64) error {
	if m.K < 1 {
		return fault.InvalidInput("k must be >= 1, got %d", m.K)
	}
	if distinct := countDistinct(X); distinct < m.K {
		return fault.InsufficientData("k-means needs %d distinct points, have %d", m.K, distinct)
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	nInit := m.NInit
	if nInit <= 0 {
		nInit = 1
	}

	tol := m.Tolerance * meanVariance(X)
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed))

	m.Inertia = math.Inf(1)
	for range nInit {
		centroids := seedPlusPlus(X, m.K, rng)
		labels, inertia, iters := lloyd(X, centroids, maxIter, tol)
		if inertia < m.Inertia {
			m.Centroids, m.Labels, m.Inertia, m.Iterations = centroids, labels, inertia, iters
		}
	}
	return nil
}

// Predict assigns each point to its nearest fitted centroid.
func (m *KMeans) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i], _ = nearest(x, m.Centroids)
	}
	return out
}

// seedPlusPlus picks k initial centroids, each new one sampled with
// probability proportional to its squared distance from the chosen set.
func seedPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(X[rng.IntN(n)]))

	dist := make([]float64, n)
	for i, x := range X {
		dist[i] = sqDist(x, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}
		pick := n - 1
		r := rng.Float64() * total
		var cum float64
		for i, d := range dist {
			cum += d
			if d > 0 && cum >= r {
				pick = i
				break
			}
		}
		c := clone(X[pick])
		centroids = append(centroids, c)
		for i, x := range X {
			if d := sqDist(x, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// lloyd refines centroids in place and returns the final labels, inertia and
// iteration count.
func lloyd(X [][]float64, centroids [][]float64, maxIter int, tol float64) ([]int, float64, int) {
	k, dims := len(centroids), len(X[0])
	labels := make([]int, len(X))
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	counts := make([]int, k)

	iter := 0
	for iter < maxIter {
		iter++
		for i, x := range X {
			labels[i], _ = nearest(x, centroids)
		}

		for c := range k {
			counts[c] = 0
			for j := range dims {
				sums[c][j] = 0
			}
		}
		for i, x := range X {
			c := labels[i]
			counts[c]++
			for j, v := range x {
				sums[c][j] += v
			}
		}

		// Empty clusters take distinct far points, ranked against this
		// iteration's centroids before any of them move.
		var far []int
		for c := range k {
			if counts[c] == 0 {
				far = relocationOrder(X, labels, centroids)
				break
			}
		}

		next := make([][]float64, 0, k)
		for c := range k {
			if counts[c] == 0 {
				continue
			}
			mean := make([]float64, dims)
			for j := range dims {
				mean[j] = sums[c][j] / float64(counts[c])
			}
			next = append(next, mean)
		}
		updated := make([][]float64, k)
		for c, n := 0, 0; c < k; c++ {
			if counts[c] == 0 {
				updated[c] = make([]float64, dims)
				far = takeDistinct(X, far, next, updated[c])
				next = append(next, updated[c])
			} else {
				updated[c] = next[n]
				n++
			}
		}

		var shift float64
		for c := range k {
			shift += sqDist(updated[c], centroids[c])
			centroids[c] = updated[c]
		}
		if shift <= tol {
			break
		}
	}

	var inertia float64
	for i, x := range X {
		var d float64
		labels[i], d = nearest(x, centroids)
		inertia += d
	}
	return labels, inertia, iter
}

// relocationOrder returns point indices sorted by distance from their
// assigned centroid, farthest first.
func relocationOrder(X [][]float64, labels []int, centroids [][]float64) []int {
	d := make([]float64, len(X))
	order := make([]int, len(X))
	for i, x := range X {
		d[i] = sqDist(x, centroids[labels[i]])
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(d[b], d[a]) })
	return order
}

// takeDistinct copies into dst the first candidate not already used as a
// centroid and returns the remaining candidates.
func takeDistinct(X [][]float64, candidates []int, used [][]float64, dst []float64) []int {
	for n, i := range candidates {
		if !slices.ContainsFunc(used, func(c []float64) bool { return slices.Equal(c, X[i]) }) {
			copy(dst, X[i])
			return candidates[n+1:]
		}
	}
	if len(candidates) > 0 {
		copy(dst, X[candidates[0]])
	}
	return candidates
}

func nearest(x []float64, centroids [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := sqDist(x, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

func sqDist(a, b []float64) float64 {
	var s float64
	for j := range a {
		d := a[j] - b[j]
		s += d * d
	}
	return s
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}

func meanVariance(X [][]float64) float64 {
	if len(X) == 0 {
		return 0
	}
	dims := len(X[0])
	var total float64
	for j := range dims {
		var mean float64
		for _, x := range X {
			mean += x[j]
		}
		mean /= float64(len(X))
		var ss float64
		for _, x := range X {
			d := x[j] - mean
			ss += d * d
		}
		total += ss / float64(len(X))
	}
	return total / float64(dims)
}

func countDistinct(X [][]float64) int {
	seen := make(map[string]struct{}, len(X))
	key := make([]byte, 0, 16)
	for _, x := range X {
		key = key[:0]
		for _, v := range x {
			key = binary.LittleEndian.AppendUint64(key, math.Float64bits(v))
		}
		seen[string(key)] = struct{}{}
	}
	return len(seen)
}
