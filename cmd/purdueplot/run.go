package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/cache"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/cloudwriter"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/collector"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/config"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/database"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/metrics"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/publisher"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/scraper"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/snapshot"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

var (
	runOutDir string
	runLag    int
	runOnce   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the VISTA API and rewrite the diagram CSVs every minute",
	Long: `Fetches one minute of signal cycles and detector events per interval,
updates the in-memory diagram history and replaces the four CSV files.
Snapshots are also archived, announced over MQTT, mirrored to S3 and cached
in Redis when those are enabled in config. Stops on SIGINT or SIGTERM.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "directory the CSV files are written to (overrides config)")
	runCmd.Flags().IntVar(&runLag, "lag", -1, "hours behind now to request (overrides config)")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "collect a single minute and exit")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if runOutDir != "" {
		cfg.OutDir = runOutDir
	}
	if runLag >= 0 {
		cfg.HourLag = runLag
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := metrics.StartServer(cfg.MetricsAddr, func(err error) {
			log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
		})
		defer srv.Close()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	sinks, closeSinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	client := scraper.NewVistaClient(cfg.CyclesURL, cfg.TrafficURL, cfg.GetRequestTimeout())
	writer := snapshot.NewWriter(cfg.GetOutDir())
	c := collector.New(client, writer, log, collector.Options{
		HourLag:  cfg.GetHourLag(),
		Interval: cfg.GetInterval(),
	}, sinks...)

	log.Info().
		Str("out_dir", writer.Dir()).
		Int("hour_lag", cfg.GetHourLag()).
		Dur("interval", cfg.GetInterval()).
		Int("sinks", len(sinks)).
		Msg("collector starting")

	if runOnce {
		_, err := c.RunOnce(ctx, c.TargetMinute(time.Now()))
		return err
	}

	if err := c.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("collector stopped")
	return nil
}

// buildSinks wires every enabled destination. A destination that cannot be
// reached at startup is skipped with a warning; the CSV files are always
// written.
func buildSinks(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]collector.Sink, func(), error) {
	var (
		sinks   []collector.Sink
		closers []func()
		db      *database.DB
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Archive {
		var err error
		db, err = openDB()
		if err != nil {
			return nil, closeAll, fmt.Errorf("opening database: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		sinks = append(sinks, collector.NewSink("archive", func(_ context.Context, snap *models.Snapshot, sum models.SnapshotSummary) error {
			return db.InsertSnapshot(snap, sum.CreatedAt)
		}))
	}

	if cfg.MQTT.Enabled {
		pub, err := publisher.New(cfg.MQTT, cfg.GetOutDir())
		if err != nil {
			log.Warn().Err(err).Msg("MQTT disabled for this run")
		} else {
			closers = append(closers, pub.Close)
			sinks = append(sinks, collector.NewSink("mqtt", func(_ context.Context, _ *models.Snapshot, sum models.SnapshotSummary) error {
				if err := pub.Publish(sum); err != nil {
					return err
				}
				if db != nil {
					return db.MarkPublished(sum.ID)
				}
				return nil
			}))
		}
	}

	if cfg.S3.Enabled {
		factory, err := cloudwriter.NewS3WriterFactory(ctx, cfg.S3.Region)
		if err != nil {
			log.Warn().Err(err).Msg("S3 mirror disabled for this run")
		} else {
			mirror := cloudwriter.NewMirror(factory, cfg.S3.Bucket, cfg.S3.Prefix)
			sinks = append(sinks, collector.NewSink("s3", func(ctx context.Context, snap *models.Snapshot, _ models.SnapshotSummary) error {
				return mirror.Upload(ctx, snap)
			}))
		}
	}

	if cfg.Redis.Enabled {
		rc, err := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.GetRedisTTL())
		if err != nil {
			log.Warn().Err(err).Msg("Redis cache disabled for this run")
		} else {
			closers = append(closers, func() { rc.Close() })
			sinks = append(sinks, collector.NewSink("redis", rc.Store))
		}
	}

	return sinks, closeAll, nil
}
