package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riverwatch/waterpoint/internal/domain"
	"github.com/riverwatch/waterpoint/internal/geocode"
	"github.com/riverwatch/waterpoint/internal/observability"
	"github.com/riverwatch/waterpoint/internal/store"
)

// progressEvery is the staged-row interval between progress log lines.
const progressEvery = 100

// Report summarizes one completed update run.
type Report struct {
	Staged     int `json:"staged"`
	Geocoded   int `json:"geocoded"`
	Ungeocoded int `json:"ungeocoded"`
}

// Updater runs the bulk update: read rows from a source, geocode each row's
// derived address, stage everything, then swap the staged generation in and
// persist the geocode cache. One Updater handles one run at a time.
type Updater struct {
	store         *store.Store
	resolver      domain.Geocoder
	cache         *geocode.Cache
	addressFields []string
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics
	ready         atomic.Bool
}

// NewUpdater wires an update run's dependencies. addressFields names the
// row fields concatenated into the geocoding address.
func NewUpdater(
	st *store.Store,
	resolver domain.Geocoder,
	cache *geocode.Cache,
	addressFields []string,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Updater {
	return &Updater{
		store:         st,
		resolver:      resolver,
		cache:         cache,
		addressFields: addressFields,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
	}
}

// CheckReadiness returns nil once at least one update run has committed.
func (u *Updater) CheckReadiness(_ context.Context) error {
	if !u.ready.Load() {
		return errors.New("no dataset generation committed yet")
	}
	return nil
}

// Run executes one complete update from source. On any failure before the
// swap commits, including an empty source, the previous active dataset is
// left untouched. The geocode cache is persisted even when the swap is
// refused, so lookups done during a failed run are not repeated.
func (u *Updater) Run(ctx context.Context, source RecordSource) (Report, error) {
	start := u.clock.Now()
	u.logger.Info("update started", "source", source.Name())

	rows, err := source.Rows(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("ingest: read source %s: %w", source.Name(), err)
	}

	staging, err := u.store.BeginStaging(ctx)
	if err != nil {
		return Report{}, err
	}

	report, err := u.stage(ctx, staging, rows)
	if err != nil {
		if abortErr := staging.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			u.logger.Error("abort staging failed", "error", abortErr)
		}
		return report, err
	}

	if saveErr := u.cache.Save(); saveErr != nil {
		u.logger.Error("persist geocode cache failed", "error", saveErr)
	}

	if err := staging.CommitSwap(ctx); err != nil {
		u.metrics.Swaps.WithLabelValues("rejected").Inc()
		return report, err
	}
	u.metrics.Swaps.WithLabelValues("committed").Inc()
	u.metrics.ActiveRecords.Set(float64(report.Staged))
	u.metrics.UpdateDuration.Observe(u.clock.Since(start).Seconds())
	u.ready.Store(true)

	u.logger.Info("update committed",
		"source", source.Name(),
		"staged", report.Staged,
		"geocoded", report.Geocoded,
		"ungeocoded", report.Ungeocoded,
		"elapsed", u.clock.Since(start),
	)
	return report, nil
}

func (u *Updater) stage(ctx context.Context, staging *store.Staging, rows []RawRow) (Report, error) {
	var report Report
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest: update interrupted: %w", err)
		}

		rec := u.buildRecord(ctx, row)
		if err := staging.Insert(ctx, rec); err != nil {
			return report, err
		}

		report.Staged++
		if rec.Coord != nil {
			report.Geocoded++
		} else {
			report.Ungeocoded++
		}
		u.metrics.RecordsStaged.Inc()

		if report.Staged%progressEvery == 0 {
			u.logger.Info("update progress", "staged", report.Staged, "geocoded", report.Geocoded)
		}
	}
	return report, nil
}

// buildRecord geocodes one raw row. A row whose address cannot be derived or
// resolved is still staged, just without a coordinate.
func (u *Updater) buildRecord(ctx context.Context, row RawRow) domain.Record {
	rec := domain.Record{
		Province:    row.Fields.String("省份"),
		Site:        row.Fields.String("断面名称"),
		Address:     domain.DeriveAddress(row.Fields, u.addressFields),
		Payload:     row.Fields,
		Source:      row.Source,
		ProcessedAt: u.clock.Now().UTC(),
	}

	if rec.Address == "" {
		u.logger.Warn("row has no address fields, staging without coordinate", "source", row.Source)
		return rec
	}
	if coord, ok := u.resolver.Resolve(ctx, rec.Address); ok {
		rec.Coord = &coord
	}
	return rec
}

// RunEvery repeats Run on a fixed interval until ctx is cancelled, for
// long-running service mode over a streaming source. Failed runs are logged
// and the loop continues; an empty-staging refusal is expected when the
// source had nothing new.
func (u *Updater) RunEvery(ctx context.Context, source RecordSource, interval time.Duration) error {
	timer := u.clock.NewTicker(interval)
	defer timer.Stop()

	for {
		if _, err := u.Run(ctx, source); err != nil {
			if ctx.Err() != nil {
				u.logger.Info("update loop stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, store.ErrEmptyStaging) {
				u.logger.Debug("no new rows, keeping current dataset", "source", source.Name())
			} else {
				u.logger.Error("update run failed", "source", source.Name(), "error", err)
			}
		}

		select {
		case <-ctx.Done():
			u.logger.Info("update loop stopping", "reason", ctx.Err())
			return nil
		case <-timer.Chan():
		}
	}
}
