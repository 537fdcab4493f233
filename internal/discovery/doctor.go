package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"yt-transcripts/internal/ytdlp"
)

type DoctorOptions struct {
	CheckpointPath string
	// NeedYTDLP marks yt-dlp as required (playlist source or ytdlp provider).
	NeedYTDLP bool
	YTDLP     ytdlp.Client
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Doctor runs preflight checks for a fetch run.
func Doctor(opts DoctorOptions) DoctorResult {
	checks := make([]DoctorCheck, 0, 3)

	dep := opts.YTDLP.DependencyStatus()
	checks = append(checks, DoctorCheck{
		Name:    "dependency:yt-dlp",
		OK:      dep.YTDLPFound || !opts.NeedYTDLP,
		Message: dependencyMessage(dep.YTDLPFound, dep.YTDLPPath, "yt-dlp", opts.NeedYTDLP),
	})

	if opts.NeedYTDLP {
		_, err := ytdlp.CheckJSRuntime(opts.YTDLP.JSRuntime)
		check := DoctorCheck{Name: "dependency:js-runtime", OK: err == nil, Message: "ok"}
		if err != nil {
			check.Message = err.Error()
		}
		checks = append(checks, check)
	}

	if p := strings.TrimSpace(opts.CheckpointPath); p != "" {
		dirOK, msg := ensureWritableDir(filepath.Dir(p))
		checks = append(checks, DoctorCheck{
			Name:    "directory:checkpoint",
			OK:      dirOK,
			Message: msg,
		})
	}

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}
}

func dependencyMessage(found bool, path, name string, required bool) string {
	switch {
	case found:
		return name + " found at " + path
	case required:
		return name + " not found on PATH"
	default:
		return name + " not found on PATH (only needed for playlist sources and the ytdlp provider)"
	}
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "yt-transcripts-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
