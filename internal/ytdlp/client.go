package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultBinary = "yt-dlp"

// Client runs the yt-dlp binary. The zero value uses yt-dlp from PATH.
type Client struct {
	Binary             string
	CookiesPath        string
	CookiesFromBrowser string
	JSRuntime          string
}

type DependencyReport struct {
	YTDLPFound bool   `json:"yt_dlp_found"`
	YTDLPPath  string `json:"yt_dlp_path,omitempty"`
}

// CommandError carries the tail of yt-dlp's stderr so callers can classify
// the failure by message.
type CommandError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	msg := "yt-dlp failed: " + e.Err.Error()
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func (c Client) bin() string {
	if b := strings.TrimSpace(c.Binary); b != "" {
		return b
	}
	return defaultBinary
}

func (c Client) DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(c.bin()); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	return report
}

func CheckJSRuntime(raw string) (string, error) {
	runtime, ok := normalizeJSRuntime(raw)
	if !ok {
		return "", fmt.Errorf("invalid js runtime %q (expected auto, deno, node, quickjs, or bun)", strings.TrimSpace(raw))
	}
	if runtime == "auto" {
		return runtime, nil
	}
	candidates := jsRuntimeBinaryCandidates(runtime)
	for _, bin := range candidates {
		if _, err := exec.LookPath(bin); err == nil {
			return runtime, nil
		}
	}
	return "", fmt.Errorf("missing dependency for js runtime %q: install one of [%s] or set js runtime to auto", runtime, strings.Join(candidates, ", "))
}

// FlatPlaylistJSON returns yt-dlp's flat JSON listing of a playlist or
// channel without resolving each entry.
func (c Client) FlatPlaylistJSON(ctx context.Context, sourceURL string) ([]byte, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	args, err := c.commonArgs([]string{"--flat-playlist", "-J"})
	if err != nil {
		return nil, err
	}
	args = append(args, strings.TrimSpace(sourceURL))

	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}
	return out, nil
}

type SubtitleOptions struct {
	VideoID   string
	OutputDir string
	Languages []string
}

// DownloadSubtitles writes manual and generated subtitles for one video as
// VTT into OutputDir and returns the written files. yt-dlp only falls back to
// a generated track when a language has no manual one.
func (c Client) DownloadSubtitles(ctx context.Context, opts SubtitleOptions) ([]string, error) {
	id := strings.TrimSpace(opts.VideoID)
	if id == "" {
		return nil, fmt.Errorf("video id is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	args, err := c.commonArgs([]string{
		"--no-playlist",
		"--skip-download",
		"--no-progress",
		"-P", opts.OutputDir,
		"-o", "%(id)s.%(ext)s",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", subLangs(opts.Languages),
		"--sub-format", "vtt/best",
		"--convert-subs", "vtt",
	})
	if err != nil {
		return nil, err
	}
	args = append(args, "https://www.youtube.com/watch?v="+id)

	if _, err := c.run(ctx, args); err != nil {
		return nil, err
	}

	return filepath.Glob(filepath.Join(opts.OutputDir, id+".*.vtt"))
}

func (c Client) commonArgs(args []string) ([]string, error) {
	if strings.TrimSpace(c.CookiesPath) != "" {
		cookiesPath, err := resolveCookiesPath(c.CookiesPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--cookies", cookiesPath)
	}
	if strings.TrimSpace(c.CookiesFromBrowser) != "" {
		args = append(args, "--cookies-from-browser", c.CookiesFromBrowser)
	}
	return appendJSRuntimeArgs(args, c.JSRuntime)
}

func (c Client) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("missing dependency: %s is not installed or not on PATH: %w", c.bin(), err)
		}
		return nil, &CommandError{Args: args, Err: err, Stderr: tail(stderr.String(), 500)}
	}
	return stdout.Bytes(), nil
}

func subLangs(languages []string) string {
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, normalizeSubLangs(l))
		}
	}
	if len(langs) == 0 {
		return normalizeSubLangs("")
	}
	return strings.Join(langs, ",")
}

func normalizeSubLangs(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "", "english", "en":
		return "en,en.*,-live_chat"
	case "all":
		return "all,-live_chat"
	default:
		return v
	}
}

func appendJSRuntimeArgs(args []string, rawRuntime string) ([]string, error) {
	runtime, ok := normalizeJSRuntime(rawRuntime)
	if !ok {
		return nil, fmt.Errorf("invalid js runtime %q (expected auto, deno, node, quickjs, or bun)", strings.TrimSpace(rawRuntime))
	}
	if runtime == "auto" {
		return args, nil
	}
	return append(args, "--no-js-runtimes", "--js-runtimes", runtime), nil
}

func normalizeJSRuntime(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return "auto", true
	case "deno", "node", "quickjs", "bun":
		return strings.ToLower(strings.TrimSpace(raw)), true
	default:
		return "", false
	}
}

func jsRuntimeBinaryCandidates(runtime string) []string {
	switch runtime {
	case "quickjs":
		return []string{"quickjs", "qjs"}
	default:
		return []string{runtime}
	}
}

func resolveCookiesPath(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve cookies path %s: %w", p, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cookies file %s: %w", abs, err)
	}
	return abs, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
