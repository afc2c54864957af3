package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/watermarker/internal/batch"
	"github.com/aliskhannn/watermarker/internal/config"
	"github.com/aliskhannn/watermarker/internal/infra/kafka/producer"
	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/processor"
	"github.com/aliskhannn/watermarker/internal/progress"
	"github.com/aliskhannn/watermarker/internal/report"
	runrepo "github.com/aliskhannn/watermarker/internal/repository/run"
	"github.com/aliskhannn/watermarker/internal/storage/file"
	"github.com/aliskhannn/watermarker/internal/storage/remote"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailures  = 1
	exitConfig    = 2
	exitCancelled = 130
)

const usage = `Usage: watermarker [command] [flags]

Commands:
  run       watermark every image of the input directory (default)
  preview   render a contact sheet with the current settings
  preset    save or show a settings preset
  history   list recorded runs
  version   print the version

Examples:
  watermarker -i photos/ -o watermarked/ -w logo.png
  watermarker -i photos/ -o watermarked/ -w logo.png --anchor BR --scale 25 --auto-scale
  watermarker -i photos/ -o watermarked/ -w logo.png --format JPG --extra WEBP --archive --dry-run

Run "watermarker <command> --help" for the flags of a command.
`

func main() {
	zlog.Init()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Context & signals: an interrupt stops dispatching new images.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		return runBatch(ctx, args)
	case "preview":
		return runPreview(args)
	case "preset":
		return runPreset(args)
	case "history":
		return runHistory(ctx, args)
	case "version":
		fmt.Println(config.Version)
		return exitOK
	case "help":
		fmt.Print(usage)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return exitConfig
	}
}

// loadConfig parses the flags and loads the configuration. ok is false when
// the caller should exit with code.
func loadConfig(fs *pflag.FlagSet, args []string) (cfg *config.Config, code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, exitOK, false
		}
		return nil, exitConfig, false
	}

	cfg, err := config.Load(fs)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to load configuration")
		return nil, exitConfig, false
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return cfg, exitOK, true
}

func runBatch(ctx context.Context, args []string) int {
	cfg, code, ok := loadConfig(config.NewFlagSet("run"), args)
	if !ok {
		return code
	}

	placement, err := cfg.Settings.Placement()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("invalid placement")
		return exitConfig
	}
	output, err := cfg.Settings.Output()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("invalid output settings")
		return exitConfig
	}

	// Resolve and validate paths: input must exist, output must not be inside input.
	inputDir, outputDir, err := batch.ResolvePaths(cfg.InputDir, cfg.OutputDir, output.DryRun)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("invalid directories")
		return exitConfig
	}

	// The overlay is decoded once and shared by all workers.
	overlay, err := processor.LoadOverlay(cfg.Watermark)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("watermark", cfg.Watermark).Msg("failed to load watermark")
		return exitConfig
	}

	// Retry strategy for Kafka and remote storage calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	runID := uuid.New()
	sinks := progress.Multi{progress.NewLog(time.Second)}
	if cfg.Kafka.Topic != "" {
		p := producer.New(&cfg.Kafka, strategy, runID.String())
		defer func() {
			if err := p.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
			}
		}()
		sinks = append(sinks, p)
	}

	proc := processor.New(file.NewStorage(inputDir), file.NewStorage(outputDir))
	b := batch.New(batch.Options{
		RunID:     runID,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Overlay:   overlay,
		Placement: placement,
		Output:    output,
		Workers:   cfg.Workers,
		Recurse:   cfg.Settings.Recurse,
	}, proc, sinks)

	jobs, err := b.Plan()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("nothing to process")
		return exitConfig
	}

	zlog.Logger.Info().
		Str("run", runID.String()).
		Str("input", inputDir).
		Str("output", outputDir).
		Int("files", len(jobs)).
		Int("workers", cfg.Workers).
		Bool("dry_run", output.DryRun).
		Msg("starting batch")

	res := b.Run(ctx, jobs)
	fmt.Println(res.Summary)

	// Bookkeeping after the run is not interrupted by the signal that may
	// have stopped the batch.
	postCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if cfg.History.Path != "" {
		if err := saveHistory(postCtx, cfg.History.Path, res, inputDir, outputDir); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to record run history")
		}
	}

	if cfg.Storage.Endpoint != "" && !output.DryRun {
		if err := publish(postCtx, cfg, strategy, runID, outputDir, res); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to publish results")
		}
	}

	return exitCode(res.Summary)
}

// exitCode maps a finished batch to the process exit code: failures win
// over cancellation, skipped files alone are not an error.
func exitCode(s report.Summary) int {
	switch {
	case !s.Succeeded():
		return exitFailures
	case s.Cancelled:
		return exitCancelled
	default:
		return exitOK
	}
}

func saveHistory(ctx context.Context, path string, res batch.Result, inputDir, outputDir string) error {
	db, err := runrepo.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := runrepo.NewRepository(db)
	rec := runrepo.FromSummary(res.Summary, inputDir, outputDir, config.Version)

	return repo.SaveRun(ctx, rec, res.Outcomes)
}

// publish uploads the archive (or every output when there is none or
// upload_all is set) and the processing log under <prefix>/<run id>/.
func publish(ctx context.Context, cfg *config.Config, strategy retry.Strategy, runID uuid.UUID, outputDir string, res batch.Result) error {
	store, err := remote.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	var files []string
	if res.Summary.Archive != "" {
		files = append(files, res.Summary.Archive)
	}
	if res.Summary.Archive == "" || cfg.Storage.UploadAll {
		for _, o := range res.Outcomes {
			if o.Status == model.StatusSuccess {
				files = append(files, o.Outputs...)
			}
		}
	}
	if res.Summary.LogFile != "" {
		files = append(files, res.Summary.LogFile)
	}

	prefix := filepath.ToSlash(filepath.Join(cfg.Storage.Prefix, runID.String()))
	for _, f := range files {
		key, err := filepath.Rel(outputDir, f)
		if err != nil {
			key = filepath.Base(f)
		}

		var object string
		err = retry.Do(func() error {
			var uploadErr error
			object, uploadErr = store.Upload(ctx, prefix, key, f)
			return uploadErr
		}, strategy)
		if err != nil {
			return err
		}

		zlog.Logger.Debug().Str("object", object).Msg("uploaded")
	}

	zlog.Logger.Info().
		Int("files", len(files)).
		Str("bucket", cfg.Storage.BucketName).
		Str("prefix", prefix).
		Msg("results published")

	return nil
}
