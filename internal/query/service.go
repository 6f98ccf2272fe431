// Package query is the read-side facade over the active dataset: nearest-site
// search, place-to-place distance, ad hoc geocoding, and the cache rebuild.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverwatch/waterpoint/internal/domain"
	"github.com/riverwatch/waterpoint/internal/geocode"
	"github.com/riverwatch/waterpoint/internal/observability"
	"github.com/riverwatch/waterpoint/internal/spatial"
	"github.com/riverwatch/waterpoint/internal/store"
)

// rebuildProgressEvery is the address interval between rebuild progress logs.
const rebuildProgressEvery = 100

// NearestResult is one record returned by SearchNearest, with its distance
// from the resolved query place.
type NearestResult struct {
	Record     domain.Record `json:"record"`
	DistanceKm float64       `json:"distance_km"`
}

// DistanceResult reports the distance between two resolved places. Km is nil
// when either place failed to resolve; the coordinate of whichever place did
// resolve is still filled in.
type DistanceResult struct {
	PlaceA string             `json:"place_a"`
	PlaceB string             `json:"place_b"`
	CoordA *domain.Coordinate `json:"coord_a,omitempty"`
	CoordB *domain.Coordinate `json:"coord_b,omitempty"`
	Km     *float64           `json:"distance_km,omitempty"`
}

// RebuildReport summarizes one cache rebuild run.
type RebuildReport struct {
	Total      int `json:"total_addresses"`
	Cached     int `json:"already_cached"`
	Resolved   int `json:"newly_resolved"`
	Unresolved int `json:"unresolved"`
}

// Service answers queries against the active dataset. Every query resolves
// its place names through the configured geocoding scheme and reads the
// dataset fresh, so results always reflect the latest committed generation.
type Service struct {
	store     *store.Store
	resolvers map[string]*geocode.Resolver
	cache     *geocode.Cache
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService builds the query facade. resolvers maps scheme name to its
// resolver; all resolvers share cache.
func NewService(
	st *store.Store,
	resolvers map[string]*geocode.Resolver,
	cache *geocode.Cache,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		store:     st,
		resolvers: resolvers,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *Service) resolver(scheme string) (*geocode.Resolver, error) {
	r, ok := s.resolvers[scheme]
	if !ok {
		return nil, fmt.Errorf("query: unknown geocoding scheme %q", scheme)
	}
	return r, nil
}

// SearchNearest resolves place through scheme and returns up to k active
// records ordered by ascending distance. An unresolvable place yields an
// empty result, not an error.
func (s *Service) SearchNearest(ctx context.Context, scheme, place string, k int) ([]NearestResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.NearestQueryDuration.Observe(time.Since(start).Seconds())
	}()

	resolver, err := s.resolver(scheme)
	if err != nil {
		return nil, err
	}

	origin, ok := resolver.Resolve(ctx, place)
	if !ok {
		s.logger.Info("nearest query place unresolved", "place", place, "scheme", scheme)
		s.metrics.NearestQueries.WithLabelValues("unresolved").Inc()
		return nil, nil
	}

	points, err := s.store.EligiblePoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: load points: %w", err)
	}

	idxPoints := make([]spatial.Point, len(points))
	for i, p := range points {
		idxPoints[i] = spatial.Point{ID: p.ID, Coord: p.Coord}
	}
	matches := spatial.New(idxPoints).Nearest(origin, k)

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	records, err := s.store.RecordsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query: load records: %w", err)
	}

	results := make([]NearestResult, 0, len(matches))
	for i, rec := range records {
		results = append(results, NearestResult{Record: rec, DistanceKm: matches[i].DistanceKm})
	}

	s.metrics.NearestQueries.WithLabelValues("ok").Inc()
	return results, nil
}

// DistanceBetween resolves both places and reports the haversine distance
// between them. Resolution failures are reported through a nil Km, never as
// an error.
func (s *Service) DistanceBetween(ctx context.Context, scheme, placeA, placeB string) (DistanceResult, error) {
	resolver, err := s.resolver(scheme)
	if err != nil {
		return DistanceResult{}, err
	}

	result := DistanceResult{PlaceA: placeA, PlaceB: placeB}

	if coord, ok := resolver.Resolve(ctx, placeA); ok {
		result.CoordA = &coord
	}
	if coord, ok := resolver.Resolve(ctx, placeB); ok {
		result.CoordB = &coord
	}
	if result.CoordA != nil && result.CoordB != nil {
		km := domain.Haversine(*result.CoordA, *result.CoordB)
		result.Km = &km
	}
	return result, nil
}

// Geocode resolves a single address through scheme. A newly resolved address
// is persisted to the cache file so one-off lookups survive the process.
func (s *Service) Geocode(ctx context.Context, scheme, address string) (domain.Coordinate, bool, error) {
	resolver, err := s.resolver(scheme)
	if err != nil {
		return domain.Coordinate{}, false, err
	}
	coord, ok := resolver.Resolve(ctx, address)
	if ok {
		if err := s.cache.Save(); err != nil {
			s.logger.Warn("persist geocode cache failed", "error", err)
		}
	}
	return coord, ok, nil
}

// RebuildCache resolves every distinct active address that is not yet cached
// and persists the merged cache. Already-cached addresses are never looked up
// again, so rerunning after a partial failure only works the remainder.
func (s *Service) RebuildCache(ctx context.Context, scheme string) (RebuildReport, error) {
	resolver, err := s.resolver(scheme)
	if err != nil {
		return RebuildReport{}, err
	}

	addrs, err := s.store.DistinctAddresses(ctx)
	if err != nil {
		return RebuildReport{}, fmt.Errorf("query: list addresses: %w", err)
	}

	report := RebuildReport{Total: len(addrs)}
	for i, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("query: rebuild interrupted: %w", err)
		}
		if _, ok := s.cache.Get(addr); ok {
			report.Cached++
			continue
		}
		if _, ok := resolver.Resolve(ctx, addr); ok {
			report.Resolved++
		} else {
			report.Unresolved++
			s.logger.Warn("address unresolved during cache rebuild", "address", addr, "scheme", scheme)
		}
		if done := i + 1; done%rebuildProgressEvery == 0 {
			s.logger.Info("cache rebuild progress", "done", done, "total", report.Total)
		}
	}

	if err := s.cache.Save(); err != nil {
		return report, fmt.Errorf("query: persist cache: %w", err)
	}

	s.logger.Info("geocode cache rebuilt",
		"scheme", scheme,
		"total", report.Total,
		"already_cached", report.Cached,
		"resolved", report.Resolved,
		"unresolved", report.Unresolved,
	)
	return report, nil
}
