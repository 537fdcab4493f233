package cli

import (
	"context"
	"fmt"

	"yt-transcripts/internal/checkpoint"
	"yt-transcripts/internal/config"
	"yt-transcripts/internal/discovery"
	"yt-transcripts/internal/ytdlp"
)

func ytdlpClient(cfg *config.Config) ytdlp.Client {
	return ytdlp.Client{
		Binary:             cfg.YTDLP.Binary,
		CookiesPath:        cfg.Source.Cookies,
		CookiesFromBrowser: cfg.YTDLP.CookiesFromBrowser,
		JSRuntime:          cfg.YTDLP.JSRuntime,
	}
}

func loadIDs(ctx context.Context, cfg *config.Config) (discovery.Result, error) {
	var lister discovery.PlaylistLister
	if cfg.Source.PlaylistURL != "" {
		lister = ytdlpClient(cfg)
	}
	return discovery.Load(ctx, discovery.Source{
		Path:        cfg.Source.Path,
		Column:      cfg.Source.Column,
		PlaylistURL: cfg.Source.PlaylistURL,
	}, lister)
}

func openStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	return checkpoint.Open(ctx, checkpoint.Options{
		Driver: cfg.Checkpoint.Driver,
		Path:   cfg.Checkpoint.Path,
		DSN:    cfg.Checkpoint.DSN,
	})
}

// checkpointLabel names the checkpoint in output without leaking a DSN.
func checkpointLabel(cfg *config.Config) string {
	if cfg.Checkpoint.Driver == checkpoint.DriverPostgres {
		return "postgres"
	}
	return firstNonEmpty(cfg.Checkpoint.Path, cfg.Checkpoint.DSN)
}

// lockCheckpoint takes the single-writer lock for file-backed checkpoints.
// Postgres checkpoints and lock: false return a no-op lock.
func lockCheckpoint(cfg *config.Config, runID string) (checkpoint.Lock, error) {
	if !cfg.Checkpoint.Lock || cfg.Checkpoint.Driver == checkpoint.DriverPostgres {
		return checkpoint.Lock{}, nil
	}
	path := firstNonEmpty(cfg.Checkpoint.Path, cfg.Checkpoint.DSN)
	lock, err := checkpoint.AcquireLock(checkpoint.LockPathFor(path), runID)
	if err != nil {
		return checkpoint.Lock{}, fmt.Errorf("%w (another fetch may be running; remove the lock directory if it is stale)", err)
	}
	return lock, nil
}
