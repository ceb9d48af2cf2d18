package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/common"
	"github.com/sitewright/sitewright/internal/ingest"
	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
	"github.com/sitewright/sitewright/internal/scheduler"
	"github.com/sitewright/sitewright/internal/services/generator"
	"github.com/sitewright/sitewright/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	jobFile      = flag.String("job", "", "Conversion job file (TOML) with mapping, template and options")
	preview      = flag.Bool("preview", false, "Compute sitemap layout without writing output")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Sitewright version %s\n", common.GetVersion())
		os.Exit(0)
	}

	inputs := flag.Args()
	if len(inputs) == 0 || *jobFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: sitewright -job <job.toml> [-config <sitewright.toml>] <file.csv> [...]")
		os.Exit(2)
	}

	// Startup sequence: config, logger, banner, storage, scheduler
	if len(configFiles) == 0 {
		if _, err := os.Stat("sitewright.toml"); err == nil {
			configFiles = append(configFiles, "sitewright.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	jobCfg, err := loadJobConfig(*jobFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *jobFile).Msg("Failed to load job file")
		os.Exit(1)
	}

	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
		os.Exit(1)
	}
	defer storage.Close()

	opts := scheduler.Options{
		PollInterval:    config.Scheduler.PollIntervalDuration(),
		RetryBaseDelay:  config.Scheduler.RetryBaseDelayDuration(),
		GracePeriod:     config.Cleanup.GracePeriodDuration(),
		CleanupSchedule: config.Cleanup.Schedule,
	}
	sched := scheduler.New(storage.Batches(), storage.RecordSets(), opts, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}
	defer sched.Stop()

	files, err := openSources(inputs)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open input files")
		os.Exit(1)
	}

	ctx := context.Background()
	batchID, err := sched.SubmitBatch(ctx, files, jobCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to submit batch")
		os.Exit(1)
	}

	report := waitForBatch(ctx, sched, batchID)

	gen := generator.NewService(storage.RecordSets(), storage.Blobs(), logger)
	exitCode := 0
	for _, task := range report.Tasks {
		if task.Status != models.TaskStatusCompleted {
			if task.Status == models.TaskStatusError {
				exitCode = 1
			}
			continue
		}

		var result *models.GenerateResult
		if *preview {
			result, err = gen.PreviewSitemaps(ctx, task.ResultSetID, jobCfg)
		} else {
			result, err = gen.GenerateSitemaps(ctx, task.ResultSetID, jobCfg)
		}
		if err != nil {
			logger.Error().Err(err).Str("file", task.SourceFile).Msg("Sitemap generation failed")
			exitCode = 1
			continue
		}

		for _, f := range result.Files {
			fmt.Printf("%s: %s (%d URLs)\n", task.SourceFile, f.Name, f.URLCount)
		}
		if result.HasIndex {
			fmt.Printf("%s: %s\n", task.SourceFile, result.IndexName)
		}
	}

	logger.Info().
		Str("batch_id", batchID).
		Str("status", string(report.Status)).
		Msg("Run finished")
	os.Exit(exitCode)
}

// loadJobConfig reads the conversion configuration from a TOML job file
func loadJobConfig(path string) (models.ConversionConfig, error) {
	cfg := models.NewDefaultConversionConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read job file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse job file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openSources builds a batch input per CSV path
func openSources(paths []string) ([]interfaces.BatchInput, error) {
	var files []interfaces.BatchInput
	for _, path := range paths {
		src, err := ingest.NewCSVSource(path, ',')
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		files = append(files, interfaces.BatchInput{
			FileName: path,
			Size:     info.Size(),
			Source:   src,
		})
	}
	return files, nil
}

// waitForBatch polls status until the batch is terminal. Ctrl-C cancels the
// batch cooperatively and waits for the final report.
func waitForBatch(ctx context.Context, sched *scheduler.Scheduler, batchID string) *models.BatchStatusReport {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logger.Warn().Str("batch_id", batchID).Msg("Interrupt received, cancelling batch")
			if err := sched.Cancel(ctx, batchID); err != nil {
				logger.Warn().Err(err).Msg("Cancel failed")
			}
		case <-ticker.C:
		}

		report, err := sched.GetStatus(ctx, batchID)
		if err != nil {
			logger.Error().Err(err).Msg("Status query failed")
			continue
		}

		logger.Info().
			Str("status", string(report.Status)).
			Int("completed", report.Progress.CompletedTasks).
			Int("processing", report.Progress.ProcessingTasks).
			Int("pending", report.Progress.PendingTasks).
			Int("failed", report.Progress.FailedTasks).
			Msg("Batch progress")

		switch report.Status {
		case models.BatchStatusCompleted, models.BatchStatusPartial,
			models.BatchStatusFailed, models.BatchStatusCancelled:
			return report
		}
	}
}
