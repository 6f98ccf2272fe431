// Command waterpoint maintains and queries the water monitoring point
// database: it ingests collector exports, geocodes monitoring sections,
// publishes dataset generations atomically, and answers nearest-site and
// distance queries from the CLI or over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/riverwatch/waterpoint/internal/config"
	"github.com/riverwatch/waterpoint/internal/observability"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "waterpoint",
	Short: "Water monitoring point database and nearest-site query engine",
	Long: "Ingests surface water monitoring records from collector exports or Kafka,\n" +
		"geocodes each monitoring section, and answers nearest-site and distance\n" +
		"queries against the atomically published dataset.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
		metrics = observability.NewMetrics()
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
