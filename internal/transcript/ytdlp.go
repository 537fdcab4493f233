package transcript

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"yt-transcripts/internal/model"
	"yt-transcripts/internal/ytdlp"
)

// YTDLP fetches subtitles by shelling out to yt-dlp. It is the slowest
// provider but survives most watch-page changes.
type YTDLP struct {
	client    ytdlp.Client
	languages []string
	maxChars  int
	logger    *slog.Logger
}

func NewYTDLP(opts Options) *YTDLP {
	opts = opts.withDefaults()
	return &YTDLP{
		client:    opts.YTDLP,
		languages: opts.Languages,
		maxChars:  opts.MaxChars,
		logger:    opts.Logger,
	}
}

func (p *YTDLP) Name() string { return ProviderYTDLP }

func (p *YTDLP) Fetch(ctx context.Context, id string) (string, error) {
	dir, err := os.MkdirTemp("", "ytt-subs-*")
	if err != nil {
		return "", fmt.Errorf("yt-dlp: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	files, err := p.client.DownloadSubtitles(ctx, ytdlp.SubtitleOptions{
		VideoID:   id,
		OutputDir: dir,
		Languages: p.languages,
	})
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w", mapYTDLPError(err, id))
	}
	file, ok := pickSubtitleFile(files, id, p.languages)
	if !ok {
		return "", fmt.Errorf("yt-dlp: languages %s: %w", strings.Join(p.languages, ","), model.ErrNoTranscript)
	}
	p.logger.Debug("subtitle file selected", slog.String("id", id), slog.String("file", filepath.Base(file)))

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	defer f.Close()
	segments, err := parseVTT(f)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: parse %s: %w", filepath.Base(file), err)
	}
	return Clean(segments, p.maxChars), nil
}

// mapYTDLPError attaches a sentinel from yt-dlp's stderr. Unrecognized
// failures have the id masked so it cannot match a block hint.
func mapYTDLPError(err error, id string) error {
	var cmdErr *ytdlp.CommandError
	if !errors.As(err, &cmdErr) {
		return err
	}
	lower := strings.ToLower(cmdErr.Stderr)
	switch {
	case strings.Contains(lower, "sign in to confirm"),
		strings.Contains(lower, "http error 429"),
		strings.Contains(lower, "too many requests"):
		return fmt.Errorf("%w: %w", err, model.ErrProviderBlocked)
	case strings.Contains(lower, "private video"),
		strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "has been removed"):
		return fmt.Errorf("%w: %w", err, model.ErrVideoUnavailable)
	}
	if id == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), id, "<video>"))
}

// pickSubtitleFile chooses "<id>.<lang>.vtt" in language preference order.
func pickSubtitleFile(files []string, id string, languages []string) (string, bool) {
	langOf := func(f string) string {
		return strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f), id+"."), ".vtt"))
	}
	for _, want := range languages {
		want = strings.ToLower(want)
		for _, f := range files {
			if langOf(f) == want {
				return f, true
			}
		}
		for _, f := range files {
			if strings.HasPrefix(langOf(f), want+"-") {
				return f, true
			}
		}
	}
	return "", false
}

var vttTimingTag = regexp.MustCompile(`<\d{2}:\d{2}(:\d{2})?\.\d{3}>`)

// parseVTT returns cue text lines. Rolling captions repeat the previous
// line, so consecutive duplicates are dropped.
func parseVTT(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		out    []string
		inCue  bool
		header = true
		last   string
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			inCue = false
			header = false
			continue
		case header:
			continue
		case strings.Contains(line, "-->"):
			inCue = true
			continue
		case !inCue:
			// cue identifiers, NOTE and STYLE blocks
			continue
		}
		text := strings.TrimSpace(plainText(vttTimingTag.ReplaceAllString(line, "")))
		if text == "" || text == last {
			continue
		}
		last = text
		out = append(out, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
