// Package transcript fetches and cleans caption text for a single video.
package transcript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"yt-transcripts/internal/ytdlp"
)

const (
	ProviderYouTube = "youtube"
	ProviderSerpAPI = "serpapi"
	ProviderYTDLP   = "ytdlp"
)

// Provider returns the cleaned transcript of one video. Errors wrap the
// sentinels in internal/model where the cause is known.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, id string) (string, error)
}

type Options struct {
	Languages []string
	MaxChars  int
	Timeout   time.Duration
	APIKey    string
	// BaseURL overrides the provider endpoint root.
	BaseURL    string
	HTTPClient *http.Client
	Retry      RetryConfig
	Logger     *slog.Logger
	// YTDLP configures the yt-dlp binary for the ytdlp provider.
	YTDLP ytdlp.Client
}

func (o Options) withDefaults() Options {
	langs := make([]string, 0, len(o.Languages))
	for _, l := range o.Languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	o.Languages = langs
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Retry == (RetryConfig{}) {
		o.Retry = DefaultRetryConfig
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// New returns the provider registered under name.
func New(name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderYouTube:
		return NewYouTube(opts), nil
	case ProviderSerpAPI:
		return NewSerpAPI(opts)
	case ProviderYTDLP:
		return NewYTDLP(opts), nil
	default:
		return nil, fmt.Errorf("unknown transcript provider %q (want %s, %s or %s)", name, ProviderYouTube, ProviderSerpAPI, ProviderYTDLP)
	}
}
