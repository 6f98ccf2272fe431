package geocode

import (
	"context"
	"log/slog"
	"strings"

	"github.com/riverwatch/waterpoint/internal/domain"
	"github.com/riverwatch/waterpoint/internal/observability"
)

// Backend performs the actual address lookup for one geocoding scheme.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Lookup returns the coordinate for address. ok == false with a nil
	// error means the backend has no answer; an error covers transport or
	// data failures. Implementations must bound their own blocking time.
	Lookup(ctx context.Context, address string) (domain.Coordinate, bool, error)
}

// Resolver implements domain.Geocoder over a Backend with a read/write-through
// cache. A cache hit never touches the backend; a successful lookup is written
// to the cache before returning, so repeated resolutions are free. Backend
// failures are logged and reported as "unresolved", never as errors.
type Resolver struct {
	backend Backend
	cache   *Cache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewResolver wires a backend to the shared cache.
func NewResolver(backend Backend, cache *Cache, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		backend: backend,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve implements domain.Geocoder.
func (r *Resolver) Resolve(ctx context.Context, address string) (domain.Coordinate, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinate{}, false
	}

	if coord, ok := r.cache.Get(address); ok {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return coord, true
	}
	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	coord, ok, err := r.backend.Lookup(ctx, address)
	if err != nil {
		r.logger.Warn("geocode lookup failed",
			"backend", r.backend.Name(),
			"address", address,
			"error", err,
		)
		r.metrics.GeocodeRequests.WithLabelValues(r.backend.Name(), "error").Inc()
		return domain.Coordinate{}, false
	}
	if !ok {
		r.metrics.GeocodeRequests.WithLabelValues(r.backend.Name(), "empty").Inc()
		return domain.Coordinate{}, false
	}

	r.metrics.GeocodeRequests.WithLabelValues(r.backend.Name(), "success").Inc()
	r.cache.Put(address, coord)
	return coord, true
}
