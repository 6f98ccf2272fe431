package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCacheScheme string

var buildCacheCmd = &cobra.Command{
	Use:   "build-cache",
	Short: "Geocode every uncached address in the active dataset",
	Long: "Walks the distinct addresses of the active dataset and resolves each one\n" +
		"that is not yet in the geocode cache, then persists the merged cache.\n" +
		"Safe to rerun: cached addresses are never looked up again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, st, err := buildQueryService(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scheme := buildCacheScheme
		if scheme == "" {
			scheme = cfg.Scheme
		}

		report, err := service.RebuildCache(ctx, scheme)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"%d addresses: %d already cached, %d resolved, %d unresolved\n",
			report.Total, report.Cached, report.Resolved, report.Unresolved,
		)
		return nil
	},
}

func init() {
	buildCacheCmd.Flags().StringVar(&buildCacheScheme, "scheme", "", "geocoding scheme override (amap or offline)")
	rootCmd.AddCommand(buildCacheCmd)
}
