package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/riverwatch/waterpoint/internal/geocode"
	"github.com/riverwatch/waterpoint/internal/ingest"
)

var updateSource string

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Ingest records, geocode them, and publish a new dataset generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var source ingest.RecordSource
		switch updateSource {
		case "xlsx":
			source = ingest.NewXLSXSource(cfg.DataDir, cfg.DataGlob)
		case "kafka":
			if !cfg.KafkaEnabled() {
				return fmt.Errorf("kafka source requires KAFKA_BROKERS")
			}
			ks := ingest.NewKafkaSource(cfg, logger)
			defer ks.Close()
			source = ks
		default:
			return fmt.Errorf("unknown source %q (want xlsx or kafka)", updateSource)
		}

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

		updater := ingest.NewUpdater(
			st, resolvers[cfg.Scheme], cache, cfg.AddressFields,
			clockwork.NewRealClock(), logger, metrics,
		)

		report, err := updater.Run(ctx, source)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"published %d records (%d geocoded, %d without coordinates)\n",
			report.Staged, report.Geocoded, report.Ungeocoded,
		)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateSource, "source", "xlsx", "record source: xlsx or kafka")
	rootCmd.AddCommand(updateCmd)
}
