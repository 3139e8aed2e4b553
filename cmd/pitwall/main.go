// Package main provides the pitwall ingestion pipeline binary.
//
// pitwall synchronizes Formula 1 race data from the Jolpica results API into
// the local PostgreSQL store. Each invocation runs one or more ingestion jobs
// to completion, logs a per-job summary, and optionally publishes a run
// report to Kafka.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitwall-io/pitwall/internal/config"
	"github.com/pitwall-io/pitwall/internal/identity"
	"github.com/pitwall-io/pitwall/internal/ingest"
	"github.com/pitwall-io/pitwall/internal/jolpica"
	"github.com/pitwall-io/pitwall/internal/report"
	"github.com/pitwall-io/pitwall/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "pitwall"
)

const publishTimeout = 10 * time.Second

// jobRunner is one ingestion job exposed through the -job flag.
type jobRunner struct {
	name string
	run  func(context.Context) (ingest.Summary, error)
}

func main() {
	jobFlag := flag.String("job", "all", "ingestion job to run: races, qualifying, laps, pitstops or all")
	dryRun := flag.Bool("dry-run", false, "resolve and reconcile without writing to the database")
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))

	logger.Info("Starting pitwall ingestion",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("job", *jobFlag),
		slog.Bool("dry_run", *dryRun),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, logger, *jobFlag, *dryRun))
}

// run wires the pipeline and executes the selected jobs, returning the
// process exit code. Separated from main so deferred cleanup runs before
// os.Exit.
func run(ctx context.Context, logger *slog.Logger, jobName string, dryRun bool) int {
	clientConfig := jolpica.LoadClientConfig()

	client, err := jolpica.NewClient(clientConfig, logger)
	if err != nil {
		logger.Error("Failed to create results API client", slog.String("error", err.Error()))

		return 1
	}

	logger.Info("Results API client initialized",
		slog.String("base_url", clientConfig.BaseURL),
		slog.Duration("request_interval", clientConfig.RequestInterval),
		slog.Int("page_size", clientConfig.PageSize),
	)

	storageConfig := storage.LoadConfig()

	conn, err := storage.NewConnection(ctx, storageConfig, logger)
	if err != nil {
		logger.Error("Failed to connect to database",
			slog.String("database_url", storageConfig.MaskDatabaseURL()),
			slog.String("error", err.Error()),
		)

		return 1
	}

	defer func() {
		_ = conn.Close()
	}()

	factStore, err := storage.NewFactStore(conn, logger)
	if err != nil {
		logger.Error("Failed to create fact store", slog.String("error", err.Error()))

		return 1
	}

	var store ingest.Store = factStore

	var dryStore *storage.MemoryStore

	if dryRun {
		dryStore = storage.NewDryRunStore(factStore)
		store = dryStore

		logger.Warn("Dry run: fact writes stay in memory and are discarded at exit")
	}

	aliases, err := identity.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load alias configuration", slog.String("error", err.Error()))

		return 1
	}

	jobConfig := ingest.LoadJobConfig(configPath())

	service := ingest.NewService(store, client, logger,
		ingest.WithAliases(aliases),
		ingest.WithTimingSeasons(jobConfig.TimingSeasons),
	)

	publisher := report.NewPublisher(report.LoadConfig(), logger)

	defer func() {
		_ = publisher.Close()
	}()

	jobs, err := selectJobs(service, jobName)
	if err != nil {
		logger.Error("Unknown job", slog.String("job", jobName), slog.String("error", err.Error()))

		return 2
	}

	exitCode := 0

	for _, job := range jobs {
		summary, runErr := runJob(ctx, logger, publisher, job)
		if runErr != nil {
			exitCode = 1
		}

		logger.Info("Job finished",
			slog.String("job", job.name),
			slog.Int("created", summary.Created),
			slog.Int("updated", summary.Updated),
			slog.Int("skipped", summary.Skipped),
			slog.Int("failed", summary.Failed),
		)

		if ctx.Err() != nil {
			logger.Warn("Shutdown requested, remaining jobs skipped")

			break
		}
	}

	if dryStore != nil {
		races, qualifying, laps, pitStops := dryStore.FactCounts()
		logger.Info("Dry run complete, nothing written",
			slog.Int("races", races),
			slog.Int("qualifying_results", qualifying),
			slog.Int("laps", laps),
			slog.Int("pit_stops", pitStops),
		)
	}

	return exitCode
}

// runJob executes one job and publishes its run report. Publishing uses a
// fresh context so a cancelled run still reports its partial outcome.
func runJob(
	ctx context.Context,
	logger *slog.Logger,
	publisher *report.Publisher,
	job jobRunner,
) (ingest.Summary, error) {
	runReport := report.NewRunReport(job.name)

	logger.Info("Job starting", slog.String("job", job.name), slog.String("run_id", runReport.RunID))

	summary, err := job.run(ctx)
	if err != nil {
		logger.Error("Job failed",
			slog.String("job", job.name),
			slog.String("error", err.Error()),
		)
	}

	runReport.Finish(summary, err)

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if pubErr := publisher.Publish(publishCtx, runReport); pubErr != nil {
		logger.Warn("Failed to publish run report",
			slog.String("job", job.name),
			slog.String("error", pubErr.Error()),
		)
	}

	return summary, err
}

// selectJobs maps the -job flag to the jobs to execute, in dependency order:
// timing jobs key against races, so races always runs first under "all".
func selectJobs(service *ingest.Service, jobName string) ([]jobRunner, error) {
	races := jobRunner{name: "races", run: service.IngestRaces}
	qualifying := jobRunner{name: "qualifying", run: service.IngestQualifying}
	laps := jobRunner{name: "laps", run: service.IngestLaps}
	pitStops := jobRunner{name: "pitstops", run: service.IngestPitStops}

	switch jobName {
	case "races":
		return []jobRunner{races}, nil
	case "qualifying":
		return []jobRunner{qualifying}, nil
	case "laps":
		return []jobRunner{laps}, nil
	case "pitstops":
		return []jobRunner{pitStops}, nil
	case "all":
		return []jobRunner{races, qualifying, laps, pitStops}, nil
	default:
		return nil, errors.New(`job must be one of "races", "qualifying", "laps", "pitstops", "all"`)
	}
}

func configPath() string {
	if path := os.Getenv(identity.ConfigPathEnvVar); path != "" {
		return path
	}

	return identity.DefaultConfigPath
}
