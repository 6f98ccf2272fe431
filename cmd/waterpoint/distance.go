package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var distanceScheme string

var distanceCmd = &cobra.Command{
	Use:   "distance PLACE_A PLACE_B",
	Short: "Great-circle distance between two places",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, st, err := buildQueryService(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scheme := distanceScheme
		if scheme == "" {
			scheme = cfg.Scheme
		}

		result, err := service.DistanceBetween(ctx, scheme, args[0], args[1])
		if err != nil {
			return err
		}
		if result.Km == nil {
			if result.CoordA == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "could not resolve %q\n", args[0])
			}
			if result.CoordB == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "could not resolve %q\n", args[1])
			}
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %.1f km\n", args[0], args[1], *result.Km)
		return nil
	},
}

func init() {
	distanceCmd.Flags().StringVar(&distanceScheme, "scheme", "", "geocoding scheme override (amap or offline)")
	rootCmd.AddCommand(distanceCmd)
}
