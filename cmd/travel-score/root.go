package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/travel-score/internal/adapter/kafka"
	"github.com/couchcryptid/travel-score/internal/adapter/mapbox"
	"github.com/couchcryptid/travel-score/internal/adapter/nominatim"
	"github.com/couchcryptid/travel-score/internal/adapter/tabular"
	"github.com/couchcryptid/travel-score/internal/config"
	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/couchcryptid/travel-score/internal/observability"
	"github.com/couchcryptid/travel-score/internal/pipeline"
	"github.com/couchcryptid/travel-score/internal/store"
)

// newRootCmd builds the command line on top of cfg. Flag defaults come from
// the environment so a flag always wins over its variable.
func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "travel-score --input_file trips.csv",
		Short: "Resolve city/country pairs to coordinates",
		Long: `
travel-score reads a CSV (or XLSX) file with City and Country columns and
writes a JSON array of coordinates. Known places come from a local city
database; unknown ones are geocoded and appended to it for the next run.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.InputFile, "input_file", cfg.InputFile, "CSV or XLSX file with City and Country columns")
	f.StringVar(&cfg.CityDB, "citydb", cfg.CityDB, "city database CSV (CITYDB_PATH)")
	f.StringVar(&cfg.Output, "output", cfg.Output, "JSON output file (OUTPUT_PATH)")
	f.StringVar(&cfg.Provider, "provider", cfg.Provider, "geocoding provider: nominatim or mapbox (GEOCODER_PROVIDER)")
	f.BoolVar(&cfg.IndexedStore, "indexed-store", cfg.IndexedStore, "load the city database into memory once (STORE_INDEXED)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (LOG_LEVEL)")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json (LOG_FORMAT)")
	f.StringVar(&cfg.LogOutput, "log-output", cfg.LogOutput, "stderr, stdout or a file path (LOG_OUTPUT)")
	f.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this file after the run (METRICS_FILE)")
	f.StringVar(&cfg.Progress, "progress", cfg.Progress, "progress bar: auto, always or never (PROGRESS)")
	_ = cmd.MarkFlagRequired("input_file")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	logger, closer, err := observability.NewLogger(observability.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	metrics := observability.NewMetrics()

	if cfg.MetricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
				logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", werr)
			}
		}()
	}

	resolver := newResolver(cfg, metrics, logger)
	logger.Info("geocoding enabled", "provider", resolver.Name(), "timeout", cfg.GeocodeTimeout)

	db, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	output := tabular.NewJSONWriter(cfg.Output)
	loaders := []pipeline.BatchLoader{output}
	if len(cfg.KafkaBrokers) > 0 {
		kw := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, runID, logger)
		defer func() {
			if cerr := kw.Close(); cerr != nil {
				logger.Error("kafka writer close error", "error", cerr)
			}
		}()
		loaders = append(loaders, kw)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(
		tabular.NewReader(cfg.InputFile),
		pipeline.NewRowResolver(db, resolver, logger, metrics),
		logger,
		metrics,
		loaders...,
	)
	if showProgress(cfg.Progress) {
		p.SetProgress(func(total int) pipeline.Progress {
			return progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Resolving"),
				progressbar.OptionSetWriter(stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		})
	}

	summary, err := p.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		return err
	}

	logger.Info("run complete",
		"processed", summary.Processed,
		"from_store", summary.FromStore,
		"from_resolver", summary.FromResolver,
		"skipped", summary.Skipped,
	)
	logger.Info("results saved", "cities", len(summary.Results), "path", output.Path())
	return nil
}

func newResolver(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Resolver {
	if cfg.Provider == config.ProviderMapbox {
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeTimeout, metrics, logger)
	}
	return nominatim.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.GeocodeTimeout, metrics, logger)
}

func newStore(cfg *config.Config, logger *slog.Logger) (pipeline.Store, error) {
	file := store.NewFileStore(cfg.CityDB, logger)
	if !cfg.IndexedStore {
		logger.Info("city database opened", "path", file.Path())
		return file, nil
	}
	indexed, err := store.NewIndexedStore(file)
	if err != nil {
		return nil, fmt.Errorf("load city database: %w", err)
	}
	logger.Info("city database indexed", "path", file.Path(), "records", indexed.Len())
	return indexed, nil
}

func showProgress(mode string) bool {
	switch mode {
	case config.ProgressAlways:
		return true
	case config.ProgressNever:
		return false
	default:
		return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	}
}
