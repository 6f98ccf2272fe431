package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	httpadapter "github.com/riverwatch/waterpoint/internal/adapter/http"
	"github.com/riverwatch/waterpoint/internal/geocode"
	"github.com/riverwatch/waterpoint/internal/ingest"
	"github.com/riverwatch/waterpoint/internal/query"
	"github.com/riverwatch/waterpoint/internal/store"
)

var serveUpdateInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long: "Starts the HTTP server for nearest-site, distance, and geocode queries.\n" +
		"When Kafka is configured, also runs a periodic update loop that consumes\n" +
		"collector rows and publishes new dataset generations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache := geocode.LoadCache(cfg.CachePath, logger)
		resolvers, err := buildResolvers(cache)
		if err != nil {
			return err
		}
		service := query.NewService(st, resolvers, cache, logger, metrics)

		updater := ingest.NewUpdater(
			st, resolvers[cfg.Scheme], cache, cfg.AddressFields,
			clockwork.NewRealClock(), logger, metrics,
		)

		// A dataset published by an earlier run counts as ready.
		ready := readiness{store: st, updater: updater}

		srv := httpadapter.NewServer(cfg.HTTPAddr, service, cfg.Scheme, ready, logger)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()

		if cfg.KafkaEnabled() {
			source := ingest.NewKafkaSource(cfg, logger)
			defer source.Close()
			go func() {
				if err := updater.RunEvery(ctx, source, serveUpdateInterval); err != nil {
					logger.Error("update loop error", "error", err)
				}
			}()
		} else {
			logger.Info("kafka not configured, serving existing dataset only")
		}

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// readiness reports ready once a dataset generation exists, whether it was
// committed by this process or a previous one.
type readiness struct {
	store   *store.Store
	updater *ingest.Updater
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.updater.CheckReadiness(ctx); err == nil {
		return nil
	}
	n, err := r.store.CountActive(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no dataset generation available yet")
	}
	return nil
}

func init() {
	serveCmd.Flags().DurationVar(&serveUpdateInterval, "update-interval", 5*time.Minute, "interval between kafka update runs")
	rootCmd.AddCommand(serveCmd)
}
