package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var geocodeScheme string

var geocodeCmd = &cobra.Command{
	Use:   "geocode ADDRESS",
	Short: "Resolve a single address to a coordinate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, st, err := buildQueryService(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scheme := geocodeScheme
		if scheme == "" {
			scheme = cfg.Scheme
		}

		coord, ok, err := service.Geocode(ctx, scheme, args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "could not resolve %q\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: lat=%.6f lon=%.6f\n", args[0], coord.Lat, coord.Lon)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeScheme, "scheme", "", "geocoding scheme override (amap or offline)")
	rootCmd.AddCommand(geocodeCmd)
}
