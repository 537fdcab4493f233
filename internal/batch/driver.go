// Package batch runs a resumable, paced, sequential fetch over a declared list
// of work items.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yt-transcripts/internal/checkpoint"
	"yt-transcripts/internal/metrics"
	"yt-transcripts/internal/model"
)

// FetchFunc retrieves the content for one item.
type FetchFunc func(ctx context.Context, id string) (string, error)

type Options struct {
	Store      checkpoint.Store
	Classifier Classifier
	Pacer      *Pacer
	Reporter   Reporter
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
	RunID      string
	// MaxItems stops the run after this many fetch attempts. Zero means no limit.
	MaxItems    int
	ItemTimeout time.Duration
}

type Driver struct {
	store       checkpoint.Store
	classifier  Classifier
	pacer       *Pacer
	reporter    Reporter
	metrics     *metrics.Recorder
	logger      *slog.Logger
	runID       string
	maxItems    int
	itemTimeout time.Duration
	itemLevel   slog.Level
}

func NewDriver(opts Options) (*Driver, error) {
	if opts.Store == nil {
		return nil, errors.New("batch driver: checkpoint store is required")
	}
	if opts.MaxItems < 0 {
		return nil, fmt.Errorf("batch driver: max items must be >= 0")
	}
	d := &Driver{
		store:       opts.Store,
		classifier:  opts.Classifier,
		pacer:       opts.Pacer,
		reporter:    opts.Reporter,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		runID:       opts.RunID,
		maxItems:    opts.MaxItems,
		itemTimeout: opts.ItemTimeout,
	}
	// Without a reporter the log is the only per-item record.
	d.itemLevel = slog.LevelDebug
	if d.reporter == nil {
		d.reporter = nopReporter{}
		d.itemLevel = slog.LevelInfo
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.runID != "" {
		d.logger = d.logger.With(slog.String("run_id", d.runID))
	}
	return d, nil
}

// Run processes every id without a resolved checkpoint entry, in the given
// order. Per-item failures never escape; the returned error is non-nil only
// when the checkpoint cannot be loaded or written, or ctx ends.
func (d *Driver) Run(ctx context.Context, ids []string, fetch FetchFunc) (model.Summary, error) {
	started := time.Now()
	summary := model.Summary{RunID: d.runID}

	cp, err := d.store.Load(ctx)
	if err != nil {
		// Reporters still need their end-of-run signal; a progress view
		// only exits once it has seen one.
		d.reporter.Finish(summary)
		return summary, fmt.Errorf("load checkpoint: %w", err)
	}

	declared := DedupeIDs(ids)
	pending := make([]string, 0, len(declared))
	for _, id := range declared {
		if !cp.Resolved(id) {
			pending = append(pending, id)
		}
	}
	summary.Total = len(declared)

	d.reporter.Start(len(declared), len(declared)-len(pending), len(pending))
	d.logger.Info("run started",
		slog.Int("declared", len(declared)),
		slog.Int("resolved", len(declared)-len(pending)),
		slog.Int("pending", len(pending)),
	)

	var runErr error
loop:
	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		itemStart := time.Now()
		payload, fetchErr := d.fetchItem(ctx, id, fetch)
		if fetchErr != nil && ctx.Err() != nil {
			// Interrupted mid-fetch: the item stays pending.
			runErr = ctx.Err()
			break
		}
		summary.Attempted++

		var outcome model.Outcome
		switch {
		case fetchErr != nil:
			outcome = d.classifier.Classify(fetchErr)
		case strings.TrimSpace(payload) == "":
			outcome = model.Permanent(model.KindNotFound, "provider returned an empty transcript")
		default:
			outcome = model.Success(payload)
		}

		ev := model.ItemEvent{
			Index:   i + 1,
			Pending: len(pending),
			ID:      id,
			Outcome: outcome,
			Elapsed: time.Since(itemStart),
		}

		switch outcome.Status {
		case model.StatusAborted:
			summary.Aborted = true
			summary.AbortedID = id
			d.observe(ev)
			d.logger.Warn("provider block detected, stopping run",
				slog.String("id", id),
				slog.String("detail", outcome.Detail),
			)
			break loop
		case model.StatusSuccess, model.StatusPermanent:
			// A fetched result is persisted even if shutdown started meanwhile.
			if err := d.store.Record(context.WithoutCancel(ctx), id, outcome); err != nil {
				runErr = fmt.Errorf("record %s: %w", id, err)
				d.observe(ev)
				break loop
			}
			cp[id] = outcome
			ev.Recorded = true
		case model.StatusTransient:
			summary.Transient++
		}
		d.observe(ev)

		if i == len(pending)-1 {
			break
		}
		if d.maxItems > 0 && summary.Attempted >= d.maxItems {
			d.logger.Info("max items reached", slog.Int("max_items", d.maxItems))
			break
		}
		if d.pacer != nil {
			delay := d.pacer.NextDelay()
			d.reporter.Waiting(delay)
			if err := d.pacer.Wait(ctx, delay); err != nil {
				runErr = err
				break
			}
		}
	}

	for _, id := range declared {
		o, ok := cp[id]
		switch {
		case ok && o.Status == model.StatusSuccess:
			summary.Succeeded++
		case ok && o.Status == model.StatusPermanent:
			summary.PermanentlyFailed++
		default:
			summary.Remaining++
		}
	}
	summary.Elapsed = time.Since(started)

	d.reporter.Finish(summary)
	d.metrics.ObserveSummary(summary)
	d.logger.Info("run finished",
		slog.Int("attempted", summary.Attempted),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("permanently_failed", summary.PermanentlyFailed),
		slog.Int("remaining", summary.Remaining),
		slog.Bool("aborted", summary.Aborted),
		slog.Duration("elapsed", summary.Elapsed),
	)
	return summary, runErr
}

func (d *Driver) fetchItem(ctx context.Context, id string, fetch FetchFunc) (string, error) {
	if d.itemTimeout <= 0 {
		return fetch(ctx, id)
	}
	itemCtx, cancel := context.WithTimeout(ctx, d.itemTimeout)
	defer cancel()
	return fetch(itemCtx, id)
}

func (d *Driver) observe(ev model.ItemEvent) {
	d.reporter.Item(ev)
	d.metrics.ObserveItem(ev)

	attrs := []any{
		slog.String("id", ev.ID),
		slog.String("status", ev.Outcome.Status),
		slog.Duration("elapsed", ev.Elapsed),
	}
	if ev.Outcome.Kind != "" {
		attrs = append(attrs, slog.String("kind", ev.Outcome.Kind))
	}
	if ev.Outcome.Status == model.StatusSuccess {
		attrs = append(attrs, slog.Int("chars", len(ev.Outcome.Payload)))
	} else if ev.Outcome.Detail != "" {
		attrs = append(attrs, slog.String("detail", ev.Outcome.Detail))
	}
	d.logger.Log(context.Background(), d.itemLevel, "item processed", attrs...)
}

// DedupeIDs trims ids, drops blanks and keeps the first occurrence of each.
func DedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
