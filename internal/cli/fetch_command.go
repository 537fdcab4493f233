package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"yt-transcripts/internal/batch"
	"yt-transcripts/internal/config"
	"yt-transcripts/internal/metrics"
	"yt-transcripts/internal/model"
	"yt-transcripts/internal/transcript"
)

type fetchOptions struct {
	runID   string
	tui     bool
	jsonOut bool
	verbose bool
	logOut  io.Writer
}

type fetchResult struct {
	model.Summary
	Provider       string `json:"provider"`
	Checkpoint     string `json:"checkpoint"`
	Origin         string `json:"origin"`
	Duplicates     int    `json:"duplicates"`
	SkippedPrivate int    `json:"skipped_private"`
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	settings := bindSettingsFlags(fs)
	tui := fs.Bool("tui", false, "show a full-screen progress view")
	jsonOut := fs.Bool("json", false, "print the run summary as JSON")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := settings.load(fs)
	if err != nil {
		return err
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *tui && !stdinIsTTY() {
		return errors.New("--tui requires an interactive terminal")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fetch(ctx, cfg, fetchOptions{
		runID:   uuid.NewString(),
		tui:     *tui,
		jsonOut: *jsonOut,
		verbose: *debug,
		logOut:  os.Stderr,
	})
}

func fetch(ctx context.Context, cfg *config.Config, opts fetchOptions) error {
	logOut := opts.logOut
	if opts.tui {
		logOut = io.Discard
	}
	logger := newLogger(cfg.Log, logOut)

	source, err := loadIDs(ctx, cfg)
	if err != nil {
		return err
	}
	if source.Duplicates > 0 || source.SkippedPrivate > 0 {
		logger.Info("id source loaded",
			slog.String("origin", source.Origin),
			slog.Int("ids", len(source.IDs)),
			slog.Int("duplicates", source.Duplicates),
			slog.Int("skipped_private", source.SkippedPrivate),
		)
	}

	lock, err := lockCheckpoint(cfg, opts.runID)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release checkpoint lock", slog.Any("error", err))
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := transcript.New(cfg.Provider.Name, transcript.Options{
		Languages: cfg.Provider.Languages,
		MaxChars:  cfg.Provider.MaxChars,
		Timeout:   cfg.Provider.Timeout,
		APIKey:    cfg.Provider.SerpAPIKey,
		Logger:    logger,
		YTDLP:     ytdlpClient(cfg),
	})
	if err != nil {
		return err
	}

	pacer, err := batch.NewPacer(batch.PacerConfig{
		MinDelay:  cfg.Pacing.MinDuration(),
		MaxDelay:  cfg.Pacing.MaxDuration(),
		PerMinute: cfg.Pacing.PerMinute,
	})
	if err != nil {
		return err
	}
	recorder := metrics.NewRecorder(provider.Name())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reporter batch.Reporter
	var waitTUI func() error
	switch {
	case opts.tui:
		title := fmt.Sprintf("yt-transcripts · %s → %s", provider.Name(), checkpointLabel(cfg))
		program, tuiReporter := batch.NewTUI(title, cancel)
		reporter = tuiReporter
		tuiDone := make(chan error, 1)
		go func() {
			_, err := program.Run()
			if err != nil {
				cancel()
			}
			tuiDone <- err
		}()
		waitTUI = func() error { return <-tuiDone }
	case !opts.jsonOut:
		reporter = batch.NewLineReporter(stdout, opts.verbose)
	}

	driver, err := batch.NewDriver(batch.Options{
		Store:       store,
		Classifier:  batch.NewClassifier(cfg.Classifier.BlockHints...),
		Pacer:       pacer,
		Reporter:    reporter,
		Metrics:     recorder,
		Logger:      logger,
		RunID:       opts.runID,
		MaxItems:    cfg.Run.MaxItems,
		ItemTimeout: cfg.Provider.ItemTimeout,
	})
	if err != nil {
		return err
	}

	summary, runErr := driver.Run(runCtx, source.IDs, provider.Fetch)
	if waitTUI != nil {
		if err := waitTUI(); err != nil {
			logger.Warn("progress view failed", slog.Any("error", err))
		}
	}

	if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics textfile not written", slog.Any("error", err))
	}

	if opts.jsonOut {
		if err := printJSON(fetchResult{
			Summary:        summary,
			Provider:       provider.Name(),
			Checkpoint:     checkpointLabel(cfg),
			Origin:         source.Origin,
			Duplicates:     source.Duplicates,
			SkippedPrivate: source.SkippedPrivate,
		}); err != nil {
			return err
		}
	} else if !opts.tui {
		fmt.Fprintln(stdout, batch.FormatSummary(summary))
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled) && ctx.Err() == nil:
		// Stopped from the progress view.
		return nil
	case errors.Is(runErr, context.Canceled):
		return errors.New("interrupted; resolved videos are saved, rerun fetch to resume")
	default:
		return runErr
	}
	if summary.Aborted && !opts.jsonOut {
		fmt.Fprintln(stdout, "next: wait before resuming, or lower the request rate with --min-delay/--max-delay")
	}
	return nil
}
