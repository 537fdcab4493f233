package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fakeYTDLPScript = `#!/usr/bin/env bash
set -euo pipefail
printf '%s\n' "$*" >> "$YTDLP_ARGS_LOG"
if printf '%s ' "$@" | grep -q -- '--flat-playlist'; then
  cat "$YTDLP_FIXTURE"
  exit 0
fi
out=""
prev=""
url=""
for a in "$@"; do
  if [ "$prev" = "-P" ]; then out="$a"; fi
  prev="$a"
  url="$a"
done
id="${url##*v=}"
case "$id" in
  *priv*) echo "ERROR: [youtube] $id: Private video" >&2; exit 1 ;;
  *block*) echo "ERROR: [youtube] $id: Sign in to confirm you're not a bot" >&2; exit 1 ;;
esac
printf 'WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello from %s\n' "$id" > "$out/$id.en.vtt"
`

// setupHarness puts a fake yt-dlp on PATH and runs the test from a clean
// working directory so no stray config or .env is picked up.
func setupHarness(t *testing.T) (string, string) {
	t.Helper()
	tmp := t.TempDir()
	fakeBin := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(fakeBin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fakeBin, "yt-dlp"), []byte(fakeYTDLPScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}
	argsLog := filepath.Join(tmp, "ytdlp-args.log")
	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))
	t.Setenv("YTDLP_ARGS_LOG", argsLog)
	t.Chdir(tmp)
	return tmp, argsLog
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func writeFileOrFatal(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFileOrFatal(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(b), "\n")
}

func fetchJSON(t *testing.T, args ...string) fetchResult {
	t.Helper()
	out := captureStdout(t)
	base := []string{"fetch", "--provider", "ytdlp", "--min-delay", "0", "--max-delay", "0", "--json"}
	if err := Run(append(base, args...)); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	var res fetchResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode fetch output %q: %v", out.String(), err)
	}
	return res
}

func TestHarnessFetchResumesFromCheckpoint(t *testing.T) {
	tmp, argsLog := setupHarness(t)
	ids := filepath.Join(tmp, "ids.txt")
	writeFileOrFatal(t, ids, "v1\nvpriv\nv2\nv1\n")
	cp := filepath.Join(tmp, "out", "transcripts.csv")

	res := fetchJSON(t, "--ids", ids, "--checkpoint", cp)
	if res.Total != 3 || res.Succeeded != 2 || res.PermanentlyFailed != 1 || res.Remaining != 0 || res.Attempted != 3 {
		t.Fatalf("unexpected first summary: %+v", res.Summary)
	}
	if res.Duplicates != 1 || res.Origin != "text" || res.Provider != "ytdlp" {
		t.Fatalf("unexpected source info: %+v", res)
	}

	saved := readFileOrFatal(t, cp)
	if !strings.Contains(saved, "hello from v1") || !strings.Contains(saved, "VIDEO_UNAVAILABLE") {
		t.Fatalf("unexpected checkpoint contents:\n%s", saved)
	}
	if _, err := os.Stat(cp + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("expected lock to be released, stat err=%v", err)
	}
	calls := countLines(t, argsLog)
	if calls != 3 {
		t.Fatalf("expected 3 yt-dlp calls, got %d", calls)
	}

	res = fetchJSON(t, "--ids", ids, "--checkpoint", cp)
	if res.Attempted != 0 || res.Succeeded != 2 || res.Remaining != 0 {
		t.Fatalf("expected resumed run to fetch nothing: %+v", res.Summary)
	}
	if got := countLines(t, argsLog); got != calls {
		t.Fatalf("resumed run invoked yt-dlp again: %d calls", got)
	}
}

func TestHarnessFetchStopsOnProviderBlock(t *testing.T) {
	tmp, argsLog := setupHarness(t)
	ids := filepath.Join(tmp, "ids.txt")
	writeFileOrFatal(t, ids, "v1\nvblock\nv2\n")
	cp := filepath.Join(tmp, "transcripts.csv")

	res := fetchJSON(t, "--ids", ids, "--checkpoint", cp)
	if !res.Aborted || res.AbortedID != "vblock" || res.Succeeded != 1 || res.Remaining != 2 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if got := countLines(t, argsLog); got != 2 {
		t.Fatalf("expected the run to stop before v2, got %d yt-dlp calls", got)
	}
	saved := readFileOrFatal(t, cp)
	if strings.Contains(saved, "vblock") {
		t.Fatalf("blocked item must stay pending:\n%s", saved)
	}
}

func TestHarnessPlaylistPassesJSRuntimeArgs(t *testing.T) {
	tmp, argsLog := setupHarness(t)
	fixture := filepath.Join(tmp, "flat.json")
	writeFileOrFatal(t, fixture, `{"id":"PL1","title":"List","entries":[{"id":"v1","title":"Video 1","url":"v1"}]}`)
	t.Setenv("YTDLP_FIXTURE", fixture)
	if err := os.WriteFile(filepath.Join(tmp, "bin", "node"), []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YTT_YTDLP_JS_RUNTIME", "node")

	res := fetchJSON(t, "--playlist", "https://example.com/list", "--checkpoint", filepath.Join(tmp, "cp.csv"))
	if res.Origin != "playlist" || res.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", res)
	}
	logged := readFileOrFatal(t, argsLog)
	if strings.Count(logged, "--no-js-runtimes --js-runtimes node") != 2 {
		t.Fatalf("expected js runtime args on both yt-dlp calls, got:\n%s", logged)
	}
}

func TestHarnessFetchRefusesLockedCheckpoint(t *testing.T) {
	tmp, _ := setupHarness(t)
	ids := filepath.Join(tmp, "ids.txt")
	writeFileOrFatal(t, ids, "v1\n")
	cp := filepath.Join(tmp, "transcripts.csv")
	if err := os.Mkdir(cp+".lock", 0o755); err != nil {
		t.Fatal(err)
	}

	captureStdout(t)
	err := Run([]string{"fetch", "--ids", ids, "--checkpoint", cp, "--provider", "ytdlp"})
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestHarnessFetchWithoutSource(t *testing.T) {
	setupHarness(t)
	captureStdout(t)
	err := Run([]string{"fetch", "--provider", "ytdlp"})
	if err == nil || !strings.Contains(err.Error(), "no id source") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestStatusCountsOutcomes(t *testing.T) {
	tmp, argsLog := setupHarness(t)
	ids := filepath.Join(tmp, "videos.csv")
	writeFileOrFatal(t, ids, "title,id\nA,v1\nB,v2\nC,v3\nD,v4\n")
	cp := filepath.Join(tmp, "transcripts.csv")
	writeFileOrFatal(t, cp, "id,transcript\nv1,hello\nv2,TRANSCRIPTS_DISABLED\nzz,orphan\n")

	out := captureStdout(t)
	if err := Run([]string{"status", "--ids", ids, "--checkpoint", cp, "--json"}); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var rep statusReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if rep.Declared != 4 || rep.Succeeded != 1 || rep.Disabled != 1 || rep.Pending != 2 || rep.Undeclared != 1 {
		t.Fatalf("unexpected status: %+v", rep)
	}
	if rep.TranscriptBytes != 5 || strings.Join(rep.NextPending, ",") != "v3,v4" {
		t.Fatalf("unexpected status details: %+v", rep)
	}
	if countLines(t, argsLog) != 0 {
		t.Fatal("status must not call yt-dlp")
	}

	out.Reset()
	if err := Run([]string{"status", "--ids", ids, "--checkpoint", cp}); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "pending: 2") || !strings.Contains(out.String(), "next: v3, v4") {
		t.Fatalf("unexpected status output:\n%s", out.String())
	}
}

func TestInitWritesSampleConfig(t *testing.T) {
	tmp, _ := setupHarness(t)
	path := filepath.Join(tmp, "yt-transcripts.yaml")

	out := captureStdout(t)
	if err := Run([]string{"init", "--path", path}); err != nil {
		t.Fatalf("init failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(readFileOrFatal(t, path), "checkpoint:") {
		t.Fatal("sample config missing checkpoint section")
	}
	if !strings.Contains(out.String(), "created_config: true") {
		t.Fatalf("unexpected init output:\n%s", out.String())
	}

	out.Reset()
	if err := Run([]string{"init", "--path", path}); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Fatalf("expected existing config notice:\n%s", out.String())
	}
}

func TestDoctorRequiresYTDLPForPlaylist(t *testing.T) {
	tmp, _ := setupHarness(t)
	captureStdout(t)
	missing := filepath.Join(tmp, "nowhere", "yt-dlp")
	t.Setenv("YTT_YTDLP_BINARY", missing)

	if err := Run([]string{"doctor", "--checkpoint", filepath.Join(tmp, "cp.csv")}); err != nil {
		t.Fatalf("doctor without yt-dlp needs should pass: %v", err)
	}
	err := Run([]string{"doctor", "--playlist", "https://example.com/list", "--checkpoint", filepath.Join(tmp, "cp.csv")})
	if err == nil {
		t.Fatal("expected doctor failure when yt-dlp is required but missing")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := Run([]string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
