package main

import (
	"context"
	"fmt"

	"github.com/riverwatch/waterpoint/internal/config"
	"github.com/riverwatch/waterpoint/internal/geocode"
	"github.com/riverwatch/waterpoint/internal/query"
	"github.com/riverwatch/waterpoint/internal/store"
)

// openStore opens the record database and ensures the active table exists.
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// buildResolvers constructs one resolver per available scheme, all sharing
// the persistent cache. The offline table is always available; AMap needs a
// key.
func buildResolvers(cache *geocode.Cache) (map[string]*geocode.Resolver, error) {
	resolvers := map[string]*geocode.Resolver{
		config.SchemeOffline: geocode.NewResolver(
			geocode.NewOfflineTable(cfg.OfflineTablePath), cache, logger, metrics,
		),
	}
	if cfg.AMapKey != "" {
		resolvers[config.SchemeAMap] = geocode.NewResolver(
			geocode.NewAMapClient(cfg.AMapKey, cfg.AMapTimeout), cache, logger, metrics,
		)
	}
	if _, ok := resolvers[cfg.Scheme]; !ok {
		return nil, fmt.Errorf("scheme %q is not available (is AMAP_KEY set?)", cfg.Scheme)
	}
	return resolvers, nil
}

// buildQueryService assembles the query facade and its store. The caller
// closes the returned store.
func buildQueryService(ctx context.Context) (*query.Service, *store.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	cache := geocode.LoadCache(cfg.CachePath, logger)
	resolvers, err := buildResolvers(cache)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	return query.NewService(st, resolvers, cache, logger, metrics), st, nil
}
