package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"yt-transcripts/internal/batch"
	"yt-transcripts/internal/checkpoint"
	"yt-transcripts/internal/model"
)

const statusPendingPreview = 5

type statusReport struct {
	Checkpoint      string   `json:"checkpoint"`
	Origin          string   `json:"origin"`
	Declared        int      `json:"declared"`
	Succeeded       int      `json:"succeeded"`
	Disabled        int      `json:"disabled"`
	NotFound        int      `json:"not_found"`
	Unavailable     int      `json:"unavailable"`
	Pending         int      `json:"pending"`
	Undeclared      int      `json:"undeclared"`
	TranscriptBytes int64    `json:"transcript_bytes"`
	NextPending     []string `json:"next_pending"`
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	settings := bindSettingsFlags(fs)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := settings.load(fs)
	if err != nil {
		return err
	}
	ctx := context.Background()

	source, err := loadIDs(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	cp, err := store.Load(ctx)
	if err != nil {
		return err
	}

	rep := buildStatus(source.IDs, cp)
	rep.Checkpoint = checkpointLabel(cfg)
	rep.Origin = source.Origin
	if *jsonOut {
		return printJSON(rep)
	}

	fmt.Fprintln(stdout, titleStyle.Render("yt-transcripts status"))
	fmt.Fprintf(stdout, "checkpoint: %s\n", rep.Checkpoint)
	fmt.Fprintf(stdout, "declared: %d (%s)\n", rep.Declared, rep.Origin)
	fmt.Fprintf(stdout, "succeeded: %d\n", rep.Succeeded)
	fmt.Fprintf(stdout, "disabled: %d\n", rep.Disabled)
	fmt.Fprintf(stdout, "not_found: %d\n", rep.NotFound)
	fmt.Fprintf(stdout, "unavailable: %d\n", rep.Unavailable)
	fmt.Fprintf(stdout, "pending: %d\n", rep.Pending)
	if rep.Undeclared > 0 {
		fmt.Fprintf(stdout, "undeclared_entries: %d\n", rep.Undeclared)
	}
	fmt.Fprintf(stdout, "transcript_size: %s\n", humanize.Bytes(uint64(rep.TranscriptBytes)))
	if len(rep.NextPending) > 0 {
		more := ""
		if rep.Pending > len(rep.NextPending) {
			more = fmt.Sprintf(" (+%s more)", humanize.Comma(int64(rep.Pending-len(rep.NextPending))))
		}
		fmt.Fprintf(stdout, "next: %s%s\n", strings.Join(rep.NextPending, ", "), more)
	}
	return nil
}

func buildStatus(ids []string, cp checkpoint.Checkpoint) statusReport {
	declared := batch.DedupeIDs(ids)
	rep := statusReport{Declared: len(declared), NextPending: []string{}}
	seen := make(map[string]bool, len(declared))
	for _, id := range declared {
		seen[id] = true
		o, ok := cp[id]
		if !ok || !o.IsResolved() {
			rep.Pending++
			if len(rep.NextPending) < statusPendingPreview {
				rep.NextPending = append(rep.NextPending, id)
			}
			continue
		}
		if o.Status == model.StatusSuccess {
			rep.Succeeded++
			rep.TranscriptBytes += int64(len(o.Payload))
			continue
		}
		switch o.Kind {
		case model.KindDisabled:
			rep.Disabled++
		case model.KindUnavailable:
			rep.Unavailable++
		default:
			rep.NotFound++
		}
	}
	for id := range cp {
		if !seen[id] {
			rep.Undeclared++
		}
	}
	return rep
}
