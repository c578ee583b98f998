package curve

import (
	"math"
	"sort"

	"equity-lab/internal/domain"
)

// InterpolateAt returns the value of the curve at t.
// Before the first point or after the last it clamps to the boundary value;
// between points it interpolates linearly. A bracket of two points sharing the
// same timestamp returns the left value. An empty curve yields NaN, which
// Merge treats as "no sample".
func InterpolateAt(points []domain.EquityPoint, t int64) float64 {
	n := len(points)
	if n == 0 {
		return math.NaN()
	}
	if t <= points[0].T {
		return points[0].V
	}
	if t >= points[n-1].T {
		return points[n-1].V
	}

	// First index with T >= t; guaranteed in [1, n-1] by the clamps above.
	hi := sort.Search(n, func(i int) bool { return points[i].T >= t })
	if points[hi].T == t {
		return points[hi].V
	}
	lo := hi - 1

	left, right := points[lo], points[hi]
	span := right.T - left.T
	if span == 0 {
		return left.V
	}
	frac := float64(t-left.T) / float64(span)
	return left.V + frac*(right.V-left.V)
}

// Merge resamples every curve onto timestamps and averages the finite values.
// The result has exactly one point per timestamp, in grid order. A timestamp
// with no finite sample across all curves gets value 0.
func Merge(curves [][]domain.EquityPoint, timestamps []int64) []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(timestamps))
	for i, t := range timestamps {
		sum := 0.0
		n := 0
		for _, c := range curves {
			v := InterpolateAt(c, t)
			if !isFinite(v) {
				continue
			}
			sum += v
			n++
		}

		v := 0.0
		if n > 0 {
			v = sum / float64(n)
		}
		out[i] = domain.EquityPoint{T: t, V: v}
	}
	return out
}

// UnionTimestamps returns the sorted, de-duplicated timestamps of all curves.
func UnionTimestamps(curves [][]domain.EquityPoint) []int64 {
	seen := make(map[int64]struct{})
	for _, c := range curves {
		for _, p := range c {
			seen[p.T] = struct{}{}
		}
	}

	ts := make([]int64, 0, len(seen))
	for t := range seen {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// Composite normalizes each curve and merges them on their union grid.
func Composite(curves [][]domain.EquityPoint) []domain.EquityPoint {
	normalized := make([][]domain.EquityPoint, len(curves))
	for i, c := range curves {
		normalized[i] = Normalize(c)
	}
	return Merge(normalized, UnionTimestamps(normalized))
}
