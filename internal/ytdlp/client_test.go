package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes a shell script standing in for yt-dlp. It records its
// arguments to args.txt next to itself.
func fakeBinary(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := "#!/usr/bin/env bash\nset -euo pipefail\nprintf '%s\\n' \"$@\" > " + argsFile + "\n" + body
	bin := filepath.Join(dir, "yt-dlp")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, argsFile
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(raw)), "\n")
}

func TestFlatPlaylistJSON(t *testing.T) {
	bin, argsFile := fakeBinary(t, `echo '{"id":"PL1","entries":[{"id":"a"}]}'`)
	out, err := Client{Binary: bin, JSRuntime: "auto"}.FlatPlaylistJSON(context.Background(), " https://www.youtube.com/playlist?list=PL1 ")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"PL1"`)
	assert.Equal(t, []string{"--flat-playlist", "-J", "https://www.youtube.com/playlist?list=PL1"}, readArgs(t, argsFile))
}

func TestFlatPlaylistJSON_Failure(t *testing.T) {
	bin, _ := fakeBinary(t, "echo 'ERROR: HTTP Error 429: Too Many Requests' >&2\nexit 1")
	_, err := Client{Binary: bin}.FlatPlaylistJSON(context.Background(), "https://example.com/list")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Contains(t, cmdErr.Stderr, "429")
	assert.Contains(t, err.Error(), "yt-dlp failed")
}

func TestFlatPlaylistJSON_EmptyOutput(t *testing.T) {
	bin, _ := fakeBinary(t, "exit 0")
	_, err := Client{Binary: bin}.FlatPlaylistJSON(context.Background(), "https://example.com/list")
	assert.ErrorContains(t, err, "empty output")

	_, err = Client{Binary: bin}.FlatPlaylistJSON(context.Background(), " ")
	assert.Error(t, err)
}

func TestFlatPlaylistJSON_MissingBinary(t *testing.T) {
	_, err := Client{Binary: filepath.Join(t.TempDir(), "nope")}.FlatPlaylistJSON(context.Background(), "https://example.com/list")
	assert.ErrorContains(t, err, "missing dependency")
}

func TestDownloadSubtitles(t *testing.T) {
	// Writes a VTT into the directory that follows -P.
	bin, argsFile := fakeBinary(t, `
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-P" ]; then out="$a"; fi
  prev="$a"
done
printf 'WEBVTT\n\n00:00.000 --> 00:01.000\nhello\n' > "$out/vid123.en.vtt"
`)
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# cookies"), 0o600))

	dir := t.TempDir()
	files, err := Client{Binary: bin, CookiesPath: cookies, JSRuntime: "auto"}.DownloadSubtitles(context.Background(), SubtitleOptions{
		VideoID:   "vid123",
		OutputDir: dir,
		Languages: []string{"en", "de"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "vid123.en.vtt")}, files)

	args := readArgs(t, argsFile)
	assert.Contains(t, args, "--skip-download")
	assert.Contains(t, args, "en,en.*,-live_chat,de")
	assert.Contains(t, args, cookies)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid123", args[len(args)-1])
}

func TestDownloadSubtitles_Validation(t *testing.T) {
	_, err := Client{}.DownloadSubtitles(context.Background(), SubtitleOptions{OutputDir: t.TempDir()})
	assert.Error(t, err)
	_, err = Client{}.DownloadSubtitles(context.Background(), SubtitleOptions{VideoID: "a"})
	assert.Error(t, err)
	_, err = Client{CookiesPath: filepath.Join(t.TempDir(), "missing.txt")}.DownloadSubtitles(context.Background(), SubtitleOptions{VideoID: "a", OutputDir: t.TempDir()})
	assert.ErrorContains(t, err, "cookies file")
}

func TestJSRuntimeArgs(t *testing.T) {
	args, err := appendJSRuntimeArgs([]string{"-J"}, "Node")
	require.NoError(t, err)
	assert.Equal(t, []string{"-J", "--no-js-runtimes", "--js-runtimes", "node"}, args)

	_, err = appendJSRuntimeArgs(nil, "perl")
	assert.Error(t, err)

	_, err = CheckJSRuntime("auto")
	assert.NoError(t, err)
}
