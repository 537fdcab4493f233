package cli

import (
	"flag"
	"strings"

	"yt-transcripts/internal/config"
)

// settingsFlags are the config overrides shared by fetch, status and doctor.
type settingsFlags struct {
	config     string
	ids        string
	column     string
	playlist   string
	checkpoint string
	driver     string
	provider   string
	languages  string
	minDelay   float64
	maxDelay   float64
	maxItems   int
}

func bindSettingsFlags(fs *flag.FlagSet) *settingsFlags {
	f := &settingsFlags{}
	fs.StringVar(&f.config, "config", "", "config file (default: ./"+config.DefaultFileName+" when present)")
	fs.StringVar(&f.ids, "ids", "", "id source: CSV file or one id/URL per line")
	fs.StringVar(&f.column, "column", "", "CSV column holding video ids (default: id, then video_id)")
	fs.StringVar(&f.playlist, "playlist", "", "playlist or channel URL listed via yt-dlp")
	fs.StringVar(&f.checkpoint, "checkpoint", "", "checkpoint path (CSV file or SQLite database)")
	fs.StringVar(&f.driver, "driver", "", "checkpoint driver: csv|sqlite|postgres")
	fs.StringVar(&f.provider, "provider", "", "transcript provider: youtube|serpapi|ytdlp")
	fs.StringVar(&f.languages, "lang", "", "comma-separated transcript languages in preference order")
	fs.Float64Var(&f.minDelay, "min-delay", 0, "minimum seconds between requests")
	fs.Float64Var(&f.maxDelay, "max-delay", 0, "maximum seconds between requests")
	fs.IntVar(&f.maxItems, "max-items", 0, "max fetch attempts this invocation (0 = no limit)")
	return f
}

// load reads the configuration and applies only the flags that were set.
func (f *settingsFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return config.Load(strings.TrimSpace(f.config), func(c *config.Config) {
		if set["ids"] {
			c.Source.Path = strings.TrimSpace(f.ids)
			c.Source.PlaylistURL = ""
		}
		if set["playlist"] {
			c.Source.PlaylistURL = strings.TrimSpace(f.playlist)
		}
		if set["column"] {
			c.Source.Column = strings.TrimSpace(f.column)
		}
		if set["checkpoint"] {
			c.Checkpoint.Path = strings.TrimSpace(f.checkpoint)
		}
		if set["driver"] {
			c.Checkpoint.Driver = f.driver
		}
		if set["provider"] {
			c.Provider.Name = f.provider
		}
		if set["lang"] {
			c.Provider.Languages = splitList(f.languages)
		}
		if set["min-delay"] {
			c.Pacing.MinDelay = f.minDelay
		}
		if set["max-delay"] {
			c.Pacing.MaxDelay = f.maxDelay
		}
		if set["max-items"] {
			c.Run.MaxItems = f.maxItems
		}
	})
}
