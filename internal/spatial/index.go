// Package spatial answers nearest-neighbor queries over the active dataset's
// geocoded points. Candidate search may use an index over projected
// coordinates, but final ranking and all reported distances use the haversine
// great-circle formula.
package spatial

import (
	"sort"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// Point is one indexable record position.
type Point struct {
	ID    int64
	Coord domain.Coordinate
}

// Match is one query result, distance in kilometers from the query point.
type Match struct {
	ID         int64
	DistanceKm float64
}

// Index answers k-nearest queries over a fixed point set. An index is built
// once per dataset generation and never mutated; a new generation gets a new
// index.
type Index interface {
	// Nearest returns up to k matches ordered by ascending haversine
	// distance. Ties keep the points' insertion order. k <= 0 or an empty
	// index yields an empty result.
	Nearest(q domain.Coordinate, k int) []Match
	// Len returns the number of indexed points.
	Len() int
}

// rtreeThreshold is the point count above which the r-tree index pays for
// its build cost. Small datasets scan faster than they search a tree.
const rtreeThreshold = 64

// New builds an index over points, choosing the implementation by size.
func New(points []Point) Index {
	if len(points) > rtreeThreshold {
		return newRTreeIndex(points)
	}
	return newLinearIndex(points)
}

// rankAll computes haversine distance from q to every point and returns the
// top k, ordered by distance with insertion order breaking ties.
func rankAll(points []Point, q domain.Coordinate, k int) []Match {
	if k <= 0 || len(points) == 0 {
		return nil
	}

	matches := make([]Match, len(points))
	for i, p := range points {
		matches[i] = Match{ID: p.ID, DistanceKm: domain.Haversine(q, p.Coord)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

// linearIndex ranks every point on each query. Exact and cheap for small
// datasets.
type linearIndex struct {
	points []Point
}

func newLinearIndex(points []Point) *linearIndex {
	return &linearIndex{points: points}
}

func (idx *linearIndex) Nearest(q domain.Coordinate, k int) []Match {
	return rankAll(idx.points, q, k)
}

func (idx *linearIndex) Len() int {
	return len(idx.points)
}
