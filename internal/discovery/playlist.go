package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type ytDLPCollection struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	PlaylistCount int          `json:"playlist_count"`
	Entries       []ytDLPEntry `json:"entries"`
}

type ytDLPEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	// Channel listings nest one playlist per tab.
	Entries []ytDLPEntry `json:"entries"`
}

type playlist struct {
	title          string
	ids            []string
	skippedPrivate int
}

func loadPlaylist(ctx context.Context, lister PlaylistLister, sourceURL string) (playlist, error) {
	raw, err := lister.FlatPlaylistJSON(ctx, strings.TrimSpace(sourceURL))
	if err != nil {
		return playlist{}, fmt.Errorf("list playlist: %w", err)
	}
	var c ytDLPCollection
	if err := json.Unmarshal(raw, &c); err != nil {
		return playlist{}, fmt.Errorf("parse yt-dlp source JSON: %w", err)
	}

	pl := playlist{title: strings.TrimSpace(c.Title)}
	var walk func(entries []ytDLPEntry)
	walk = func(entries []ytDLPEntry) {
		for _, e := range entries {
			if len(e.Entries) > 0 {
				walk(e.Entries)
				continue
			}
			if isPrivateEntryTitle(e.Title) {
				pl.skippedPrivate++
				continue
			}
			id := strings.TrimSpace(e.ID)
			if id == "" {
				id = NormalizeID(e.URL)
			}
			if id != "" {
				pl.ids = append(pl.ids, id)
			}
		}
	}
	walk(c.Entries)
	return pl, nil
}

func isPrivateEntryTitle(title string) bool {
	t := strings.TrimSpace(title)
	return t == "[Private video]" || t == "[Deleted video]"
}
