package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"yt-transcripts/internal/model"
)

const defaultSerpAPIBase = "https://serpapi.com"

type serpResponse struct {
	Error      string `json:"error"`
	Transcript []struct {
		Snippet string `json:"snippet"`
	} `json:"transcript"`
	AvailableTranscripts []struct {
		LanguageCode string `json:"language_code"`
		Type         string `json:"type"`
	} `json:"available_transcripts"`
}

func (r serpResponse) hasASR(lang string) bool {
	for _, t := range r.AvailableTranscripts {
		if strings.EqualFold(t.LanguageCode, lang) && t.Type == "asr" {
			return true
		}
	}
	return false
}

// SerpAPI fetches transcripts through SerpApi's youtube_video_transcript
// engine.
type SerpAPI struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	languages []string
	maxChars  int
	retry     RetryConfig
	logger    *slog.Logger
}

func NewSerpAPI(opts Options) (*SerpAPI, error) {
	opts = opts.withDefaults()
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("serpapi provider requires an api key (set SERPAPI_API_KEY or provider.serpapi_key)")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultSerpAPIBase
	}
	return &SerpAPI{
		client:    opts.HTTPClient,
		endpoint:  base + "/search.json",
		apiKey:    key,
		languages: opts.Languages,
		maxChars:  opts.MaxChars,
		retry:     opts.Retry,
		logger:    opts.Logger,
	}, nil
}

func (s *SerpAPI) Name() string { return ProviderSerpAPI }

func (s *SerpAPI) Fetch(ctx context.Context, id string) (string, error) {
	for _, lang := range s.languages {
		resp, err := s.query(ctx, id, lang, "")
		if errors.Is(err, model.ErrNoTranscript) {
			s.logger.Debug("no transcript in language", slog.String("id", id), slog.String("language", lang))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("serpapi: %w", err)
		}
		if len(resp.Transcript) == 0 && resp.hasASR(lang) {
			s.logger.Debug("retrying with generated transcript", slog.String("id", id), slog.String("language", lang))
			resp, err = s.query(ctx, id, lang, "asr")
			if errors.Is(err, model.ErrNoTranscript) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("serpapi asr: %w", err)
			}
		}
		if len(resp.Transcript) > 0 {
			segments := make([]string, 0, len(resp.Transcript))
			for _, t := range resp.Transcript {
				segments = append(segments, t.Snippet)
			}
			return Clean(segments, s.maxChars), nil
		}
	}
	return "", fmt.Errorf("serpapi: languages %s: %w", strings.Join(s.languages, ","), model.ErrNoTranscript)
}

func (s *SerpAPI) query(ctx context.Context, id, lang, kind string) (serpResponse, error) {
	q := url.Values{}
	q.Set("engine", "youtube_video_transcript")
	q.Set("v", id)
	q.Set("language_code", lang)
	if kind != "" {
		q.Set("type", kind)
	}
	q.Set("api_key", s.apiKey)

	data, err := retryDo(ctx, s.retry, s.logger, func() ([]byte, error) {
		return do(ctx, s.client, request{url: s.endpoint + "?" + q.Encode()})
	})

	var resp serpResponse
	if err != nil {
		var statusErr *model.StatusError
		if !errors.As(err, &statusErr) {
			return resp, err
		}
		// SerpApi reports most failures as JSON with a non-2xx status.
		if json.Unmarshal([]byte(statusErr.Body), &resp) != nil || resp.Error == "" {
			return resp, mapSerpStatus(statusErr)
		}
		return resp, mapSerpError(resp.Error, statusErr)
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return resp, mapSerpError(resp.Error, nil)
	}
	return resp, nil
}

func mapSerpStatus(statusErr *model.StatusError) error {
	switch statusErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("api key rejected: %w", model.ErrProviderBlocked)
	}
	return statusErr
}

func mapSerpError(msg string, statusErr *model.StatusError) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "run out of searches"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "account"):
		return fmt.Errorf("%s: %w", msg, model.ErrProviderBlocked)
	case strings.Contains(lower, "hasn't returned any results"),
		strings.Contains(lower, "no transcript"),
		strings.Contains(lower, "transcript is not available"):
		return fmt.Errorf("%s: %w", msg, model.ErrNoTranscript)
	case strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "private"):
		return fmt.Errorf("%s: %w", msg, model.ErrVideoUnavailable)
	case statusErr != nil:
		return statusErr
	}
	return errors.New(msg)
}
