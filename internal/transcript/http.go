package transcript

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"yt-transcripts/internal/model"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	maxBodyBytes = 8 << 20
)

type request struct {
	method  string
	url     string
	body    []byte
	headers map[string]string
}

// do sends req and returns the body of a 2xx response. Other statuses become
// a *model.StatusError; a redirect to the Google "sorry" interstitial becomes
// model.ErrProviderBlocked.
func do(ctx context.Context, client *http.Client, req request) ([]byte, error) {
	method := req.method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil && strings.HasPrefix(resp.Request.URL.Path, "/sorry") {
		return nil, fmt.Errorf("redirected to %s: %w", resp.Request.URL.Redacted(), model.ErrProviderBlocked)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.StatusError{
			StatusCode: resp.StatusCode,
			URL:        redactURL(req.url),
			Body:       snippet(data, 200),
		}
	}
	return data, nil
}

// redactURL hides query parameters such as api keys.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = s[:n]
	}
	return s
}
