// Package discovery resolves the declared list of video ids from a CSV file,
// a plain id list or a YouTube playlist.
package discovery

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	OriginIDs      = "ids"
	OriginCSV      = "csv"
	OriginText     = "text"
	OriginPlaylist = "playlist"

	DefaultColumn = "id"
)

type Source struct {
	// IDs given directly take precedence over every other source.
	IDs         []string
	Path        string
	Column      string
	PlaylistURL string
}

type Result struct {
	Origin         string   `json:"origin"`
	IDs            []string `json:"ids"`
	Duplicates     int      `json:"duplicates"`
	SkippedPrivate int      `json:"skipped_private"`
	SourceTitle    string   `json:"source_title,omitempty"`
}

// PlaylistLister lists a playlist or channel as yt-dlp flat JSON.
type PlaylistLister interface {
	FlatPlaylistJSON(ctx context.Context, sourceURL string) ([]byte, error)
}

// Load resolves src into ids in declaration order with duplicates removed.
func Load(ctx context.Context, src Source, lister PlaylistLister) (Result, error) {
	var (
		res Result
		raw []string
		err error
	)
	switch {
	case len(src.IDs) > 0:
		res.Origin = OriginIDs
		raw = src.IDs
	case strings.TrimSpace(src.PlaylistURL) != "":
		res.Origin = OriginPlaylist
		if lister == nil {
			return res, errors.New("playlist source requires yt-dlp")
		}
		var pl playlist
		pl, err = loadPlaylist(ctx, lister, src.PlaylistURL)
		raw = pl.ids
		res.SkippedPrivate = pl.skippedPrivate
		res.SourceTitle = pl.title
	case strings.TrimSpace(src.Path) != "":
		if isCSVPath(src.Path, src.Column) {
			res.Origin = OriginCSV
			raw, err = readCSVColumn(src.Path, src.Column)
		} else {
			res.Origin = OriginText
			raw, err = readIDList(src.Path)
		}
	default:
		return res, errors.New("no id source configured (set --ids, --playlist or source.path)")
	}
	if err != nil {
		return res, err
	}

	seen := make(map[string]bool, len(raw))
	res.IDs = make([]string, 0, len(raw))
	for _, r := range raw {
		id := NormalizeID(r)
		if id == "" {
			continue
		}
		if seen[id] {
			res.Duplicates++
			continue
		}
		seen[id] = true
		res.IDs = append(res.IDs, id)
	}
	return res, nil
}

func isCSVPath(path, column string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || (ext != ".txt" && strings.TrimSpace(column) != "")
}

func readCSVColumn(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}

	names := []string{DefaultColumn, "video_id"}
	if c := strings.TrimSpace(column); c != "" {
		names = []string{c}
	}
	idx := columnIndex(header, names...)
	if idx < 0 {
		return nil, fmt.Errorf("%s has no %q column (header: %s)", path, names[0], strings.Join(header, ","))
	}

	var ids []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if idx < len(rec) {
			ids = append(ids, rec[idx])
		}
	}
	return ids, nil
}

func columnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}

func readIDList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open id source: %w", err)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, nil
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// NormalizeID accepts a bare id or a YouTube video URL and returns the id.
// Unrecognized input is returned trimmed so odd ids still reach the provider.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || videoIDPattern.MatchString(s) {
		return s
	}
	if !strings.Contains(s, "/") {
		return s
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case host == "youtu.be" && len(parts) >= 1 && parts[0] != "":
		return parts[0]
	case len(parts) >= 2 && (parts[0] == "shorts" || parts[0] == "live" || parts[0] == "embed"):
		return parts[1]
	}
	return strings.TrimSpace(raw)
}
