package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryPlace  string
	queryTop    int
	queryScheme string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the monitoring sites nearest to a place",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, st, err := buildQueryService(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scheme := queryScheme
		if scheme == "" {
			scheme = cfg.Scheme
		}

		results, err := service.SearchNearest(ctx, scheme, queryPlace, queryTop)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no results for %q\n", queryPlace)
			return nil
		}

		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryPlace, "place", "", "place name to search around")
	queryCmd.Flags().IntVar(&queryTop, "top", 5, "number of sites to return")
	queryCmd.Flags().StringVar(&queryScheme, "scheme", "", "geocoding scheme override (amap or offline)")
	_ = queryCmd.MarkFlagRequired("place")
	rootCmd.AddCommand(queryCmd)
}
