package spatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// pointTolerance is the side length of the degenerate rectangle each point
// occupies in the tree.
const pointTolerance = 1e-9

// minFetch is the smallest candidate batch requested from the tree.
const minFetch = 16

// item adapts one Point to rtreego.Spatial. ord is the point's position in
// the build slice, used to keep ties stable.
type item struct {
	point  Point
	ord    int
	bounds rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect {
	return it.bounds
}

// unitVector projects a coordinate onto the unit sphere. Euclidean (chord)
// distance between unit vectors is strictly monotonic in great-circle
// distance, so the tree's nearest-neighbor order matches haversine order
// exactly, with none of the distortion a flat lat/lon plane has near the
// poles.
func unitVector(c domain.Coordinate) rtreego.Point {
	lat := c.Lat * math.Pi / 180
	lon := c.Lon * math.Pi / 180
	return rtreego.Point{
		math.Cos(lat) * math.Cos(lon),
		math.Cos(lat) * math.Sin(lon),
		math.Sin(lat),
	}
}

// rtreeIndex finds candidates with an r-tree over unit-sphere coordinates
// and ranks them by haversine distance, breaking exact-distance ties by
// insertion order. Results are identical to the linear index for the same
// input.
type rtreeIndex struct {
	tree *rtreego.Rtree
	n    int
}

func newRTreeIndex(points []Point) *rtreeIndex {
	tree := rtreego.NewTree(3, 25, 50)
	for i, p := range points {
		tree.Insert(&item{
			point:  p,
			ord:    i,
			bounds: unitVector(p.Coord).ToRect(pointTolerance),
		})
	}
	return &rtreeIndex{tree: tree, n: len(points)}
}

// ranked is one fetched candidate with its tie-break ordinal.
type ranked struct {
	match Match
	ord   int
}

func (idx *rtreeIndex) Nearest(q domain.Coordinate, k int) []Match {
	if k <= 0 || idx.n == 0 {
		return nil
	}
	if k > idx.n {
		k = idx.n
	}

	qp := unitVector(q)

	// Chord order equals haversine order, so the first k candidates are the
	// right k points. Fetch more so the k-th distance is strictly inside the
	// fetched set: only then is every point tied at that distance known, and
	// the insertion-order tie-break over the whole tied group can match the
	// full-scan result. Widen until that holds or everything is fetched.
	want := k
	if want < minFetch {
		want = minFetch
	}
	for {
		if want > idx.n {
			want = idx.n
		}

		candidates := idx.fetch(q, qp, want)
		if len(candidates) >= idx.n || candidates[k-1].match.DistanceKm < candidates[len(candidates)-1].match.DistanceKm {
			out := make([]Match, k)
			for i := 0; i < k; i++ {
				out[i] = candidates[i].match
			}
			return out
		}
		want *= 2
	}
}

// fetch retrieves want candidates from the tree and sorts them by haversine
// distance, insertion order breaking ties.
func (idx *rtreeIndex) fetch(q domain.Coordinate, qp rtreego.Point, want int) []ranked {
	neighbors := idx.tree.NearestNeighbors(want, qp)

	candidates := make([]ranked, 0, len(neighbors))
	for _, s := range neighbors {
		if s == nil {
			continue
		}
		it := s.(*item)
		candidates = append(candidates, ranked{
			match: Match{ID: it.point.ID, DistanceKm: domain.Haversine(q, it.point.Coord)},
			ord:   it.ord,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].match.DistanceKm != candidates[j].match.DistanceKm {
			return candidates[i].match.DistanceKm < candidates[j].match.DistanceKm
		}
		return candidates[i].ord < candidates[j].ord
	})
	return candidates
}

func (idx *rtreeIndex) Len() int {
	return idx.n
}
