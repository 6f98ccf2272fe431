package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riverwatch/waterpoint/internal/geocode"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report active dataset and cache state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		active, err := st.CountActive(ctx)
		if err != nil {
			return err
		}
		points, err := st.EligiblePoints(ctx)
		if err != nil {
			return err
		}

		cache := geocode.LoadCache(cfg.CachePath, logger)

		fmt.Fprintf(out, "database:        %s\n", st.Path())
		fmt.Fprintf(out, "active records:  %d\n", active)
		fmt.Fprintf(out, "with coordinate: %d\n", len(points))
		fmt.Fprintf(out, "cached addresses: %d (%s)\n", cache.Len(), cfg.CachePath)

		if _, err := os.Stat(cfg.OfflineTablePath); err == nil {
			fmt.Fprintf(out, "offline table:   %s\n", cfg.OfflineTablePath)
		} else {
			fmt.Fprintf(out, "offline table:   %s (missing)\n", cfg.OfflineTablePath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
