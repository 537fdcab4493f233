package batch

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"yt-transcripts/internal/model"
)

// DefaultBlockHints are lower-case message fragments that mean the provider
// has started refusing this client.
var DefaultBlockHints = []string{
	"429",
	"403",
	"too many requests",
	"forbidden",
	"rate limit",
	"ratelimit",
	"blocking",
	"blocked",
	"captcha",
	"unusual traffic",
}

var permanentHints = []struct {
	kind  string
	hints []string
}{
	{model.KindDisabled, []string{"transcripts are disabled", "transcripts disabled", "subtitles are disabled"}},
	{model.KindNotFound, []string{"no transcript", "could not retrieve a transcript", "transcript not found"}},
	{model.KindUnavailable, []string{"video unavailable", "video is unavailable", "private video", "video has been removed"}},
}

// Classifier turns a provider error into an Outcome.
type Classifier struct {
	blockHints []string
}

func NewClassifier(extraBlockHints ...string) Classifier {
	hints := make([]string, 0, len(DefaultBlockHints)+len(extraBlockHints))
	hints = append(hints, DefaultBlockHints...)
	for _, h := range extraBlockHints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hints = append(hints, h)
		}
	}
	return Classifier{blockHints: hints}
}

func (c Classifier) Classify(err error) model.Outcome {
	if err == nil {
		return model.Transient("nil error")
	}
	detail := truncate(err.Error(), 300)

	switch {
	case errors.Is(err, model.ErrTranscriptsDisabled):
		return model.Permanent(model.KindDisabled, detail)
	case errors.Is(err, model.ErrNoTranscript):
		return model.Permanent(model.KindNotFound, detail)
	case errors.Is(err, model.ErrVideoUnavailable):
		return model.Permanent(model.KindUnavailable, detail)
	case errors.Is(err, model.ErrProviderBlocked):
		return model.Aborted(detail)
	}

	var statusErr *model.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusForbidden:
			return model.Aborted(detail)
		}
		return model.Transient(detail)
	}

	text := strings.ToLower(stripURLs(err.Error()))
	if containsAny(text, c.hints()) {
		return model.Aborted(detail)
	}
	for _, p := range permanentHints {
		if containsAny(text, p.hints) {
			return model.Permanent(p.kind, detail)
		}
	}
	return model.Transient(detail)
}

func (c Classifier) hints() []string {
	if c.blockHints == nil {
		return DefaultBlockHints
	}
	return c.blockHints
}

func containsAny(text string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// stripURLs drops URL tokens so ids and query strings cannot match a hint.
func stripURLs(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if strings.Contains(f, "://") {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// truncate caps s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
