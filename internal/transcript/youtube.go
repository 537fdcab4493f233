package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"yt-transcripts/internal/model"
)

const (
	defaultYouTubeBase = "https://www.youtube.com"

	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "20.10.38"

	playerResponseMarker = "ytInitialPlayerResponse"
)

// YouTube reads caption tracks straight from YouTube: the watch page first,
// the Innertube player endpoint when the page carries no player response.
type YouTube struct {
	client    *http.Client
	baseURL   string
	languages []string
	maxChars  int
	retry     RetryConfig
	logger    *slog.Logger
}

func NewYouTube(opts Options) *YouTube {
	opts = opts.withDefaults()
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultYouTubeBase
	}
	return &YouTube{
		client:    opts.HTTPClient,
		baseURL:   base,
		languages: opts.Languages,
		maxChars:  opts.MaxChars,
		retry:     opts.Retry,
		logger:    opts.Logger,
	}
}

func (y *YouTube) Name() string { return ProviderYouTube }

func (y *YouTube) Fetch(ctx context.Context, id string) (string, error) {
	pr, err := y.playerResponse(ctx, id)
	if err != nil {
		return "", fmt.Errorf("youtube: %w", err)
	}
	if err := checkPlayability(pr.PlayabilityStatus); err != nil {
		return "", fmt.Errorf("youtube: %w", err)
	}
	if pr.Captions == nil || len(pr.Captions.Renderer.CaptionTracks) == 0 {
		return "", fmt.Errorf("youtube: %w", model.ErrTranscriptsDisabled)
	}

	track, ok := pickTrack(pr.Captions.Renderer.CaptionTracks, y.languages)
	if !ok {
		return "", fmt.Errorf("youtube: languages %s: %w", strings.Join(y.languages, ","), model.ErrNoTranscript)
	}
	y.logger.Debug("caption track selected",
		slog.String("id", id),
		slog.String("language", track.LanguageCode),
		slog.Bool("generated", track.generated()),
		slog.String("name", track.Name.String()),
	)

	segments, err := y.timedText(ctx, track)
	if err != nil {
		return "", fmt.Errorf("youtube: %w", err)
	}
	return Clean(segments, y.maxChars), nil
}

func (y *YouTube) playerResponse(ctx context.Context, id string) (playerResponse, error) {
	page, err := retryDo(ctx, y.retry, y.logger, func() ([]byte, error) {
		return do(ctx, y.client, request{
			url:     y.baseURL + "/watch?v=" + url.QueryEscape(id) + "&hl=en",
			headers: map[string]string{"Cookie": "CONSENT=YES+cb; SOCS=CAI"},
		})
	})
	if err != nil {
		return playerResponse{}, fmt.Errorf("watch page: %w", err)
	}

	pr, found, err := parseWatchPage(page)
	if err != nil {
		return playerResponse{}, err
	}
	if found {
		return pr, nil
	}
	y.logger.Debug("watch page has no player response, using innertube", slog.String("id", id))
	return y.innertubePlayer(ctx, id)
}

// parseWatchPage extracts ytInitialPlayerResponse from the page scripts.
// found is false when no script carries it.
func parseWatchPage(page []byte) (pr playerResponse, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return pr, false, fmt.Errorf("parse watch page: %w", err)
	}
	if doc.Find("form#captcha-form, div.g-recaptcha").Length() > 0 {
		return pr, false, fmt.Errorf("watch page shows a captcha: %w", model.ErrProviderBlocked)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if i := strings.Index(text, playerResponseMarker); i >= 0 {
			if j := strings.IndexByte(text[i:], '{'); j >= 0 {
				raw = text[i+j:]
				return false
			}
		}
		return true
	})
	if raw == "" {
		return pr, false, nil
	}
	// Decode stops after the first JSON value, ignoring the trailing script.
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&pr); err != nil {
		return pr, false, fmt.Errorf("decode player response: %w", err)
	}
	return pr, true, nil
}

func (y *YouTube) innertubePlayer(ctx context.Context, id string) (playerResponse, error) {
	var body innertubeRequest
	body.Context.Client.ClientName = innertubeClientName
	body.Context.Client.ClientVersion = innertubeClientVersion
	body.Context.Client.HL = "en"
	body.VideoID = id
	payload, err := json.Marshal(body)
	if err != nil {
		return playerResponse{}, fmt.Errorf("encode innertube request: %w", err)
	}

	data, err := retryDo(ctx, y.retry, y.logger, func() ([]byte, error) {
		return do(ctx, y.client, request{
			method:  http.MethodPost,
			url:     y.baseURL + "/youtubei/v1/player?prettyPrint=false",
			body:    payload,
			headers: map[string]string{"Content-Type": "application/json"},
		})
	})
	if err != nil {
		return playerResponse{}, fmt.Errorf("innertube player: %w", err)
	}
	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return playerResponse{}, fmt.Errorf("decode innertube player: %w", err)
	}
	return pr, nil
}

func checkPlayability(ps playabilityStatus) error {
	status := strings.ToUpper(ps.Status)
	if status == "" || status == "OK" {
		return nil
	}
	reason := strings.TrimSpace(ps.Reason)
	lower := strings.ToLower(reason)
	if strings.Contains(lower, "not a bot") || strings.Contains(lower, "unusual traffic") {
		return fmt.Errorf("%s: %s: %w", status, reason, model.ErrProviderBlocked)
	}
	if reason == "" {
		reason = "no reason given"
	}
	return fmt.Errorf("%s: %s: %w", status, reason, model.ErrVideoUnavailable)
}

// pickTrack prefers a manual track in any requested language, in request
// order, over a generated one.
func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	for _, generated := range []bool{false, true} {
		for _, lang := range languages {
			for _, t := range tracks {
				if t.generated() == generated && strings.EqualFold(t.LanguageCode, lang) {
					return t, true
				}
			}
		}
	}
	return captionTrack{}, false
}

func (y *YouTube) timedText(ctx context.Context, track captionTrack) ([]string, error) {
	u, err := url.Parse(track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("caption url: %w", err)
	}
	if !u.IsAbs() {
		base, _ := url.Parse(y.baseURL)
		u = base.ResolveReference(u)
	}
	// The srv3 format carries per-word timing; the default XML is enough.
	q := u.Query()
	q.Del("fmt")
	u.RawQuery = q.Encode()

	data, err := retryDo(ctx, y.retry, y.logger, func() ([]byte, error) {
		return do(ctx, y.client, request{url: u.String()})
	})
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		// Seen when YouTube wants a proof-of-origin token; retry on a later run.
		return nil, errors.New("timedtext returned an empty body")
	}

	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("decode timedtext: %w", err)
	}
	segments := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		segments = append(segments, t.Body)
	}
	if len(segments) == 0 {
		return nil, errors.New("timedtext has no text segments")
	}
	return segments, nil
}
