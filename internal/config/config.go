// Package config loads fetch settings from defaults, an optional YAML file,
// a .env file and YTT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultFileName       = "yt-transcripts.yaml"
	DefaultCheckpointPath = "transcripts.csv"
	DefaultProvider       = "youtube"
	DefaultMinDelay       = 2.0
	DefaultMaxDelay       = 6.0
	DefaultMaxChars       = 10000
	DefaultTimeout        = 30 * time.Second
)

type Config struct {
	Source     SourceConfig     `mapstructure:"source" yaml:"source"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	Pacing     PacingConfig     `mapstructure:"pacing" yaml:"pacing"`
	Provider   ProviderConfig   `mapstructure:"provider" yaml:"provider"`
	YTDLP      YTDLPConfig      `mapstructure:"ytdlp" yaml:"ytdlp"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Run        RunConfig        `mapstructure:"run" yaml:"run"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

type SourceConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	// Column is the CSV id column. Empty tries "id" then "video_id".
	Column      string `mapstructure:"column" yaml:"column"`
	PlaylistURL string `mapstructure:"playlist_url" yaml:"playlist_url"`
	// Cookies is a cookies.txt handed to yt-dlp.
	Cookies string `mapstructure:"cookies" yaml:"cookies"`
}

type CheckpointConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	Lock   bool   `mapstructure:"lock" yaml:"lock"`
}

// PacingConfig delays are in seconds.
type PacingConfig struct {
	MinDelay  float64 `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay  float64 `mapstructure:"max_delay" yaml:"max_delay"`
	PerMinute float64 `mapstructure:"per_minute" yaml:"per_minute"`
}

func (p PacingConfig) MinDuration() time.Duration { return seconds(p.MinDelay) }
func (p PacingConfig) MaxDuration() time.Duration { return seconds(p.MaxDelay) }

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

type ProviderConfig struct {
	Name       string        `mapstructure:"name" yaml:"name"`
	Languages  []string      `mapstructure:"languages" yaml:"languages"`
	SerpAPIKey string        `mapstructure:"serpapi_key" yaml:"serpapi_key"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxChars   int           `mapstructure:"max_chars" yaml:"max_chars"`
	// ItemTimeout bounds one fetch including provider retries. Zero disables it.
	ItemTimeout time.Duration `mapstructure:"item_timeout" yaml:"item_timeout"`
}

type YTDLPConfig struct {
	Binary             string `mapstructure:"binary" yaml:"binary"`
	JSRuntime          string `mapstructure:"js_runtime" yaml:"js_runtime"`
	CookiesFromBrowser string `mapstructure:"cookies_from_browser" yaml:"cookies_from_browser"`
}

type ClassifierConfig struct {
	// BlockHints extend the built-in provider block hints.
	BlockHints []string `mapstructure:"block_hints" yaml:"block_hints"`
}

type RunConfig struct {
	MaxItems int `mapstructure:"max_items" yaml:"max_items"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type MetricsConfig struct {
	// Textfile is written in Prometheus text format after each run.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Checkpoint: CheckpointConfig{
			Driver: "csv",
			Path:   DefaultCheckpointPath,
			Lock:   true,
		},
		Pacing: PacingConfig{MinDelay: DefaultMinDelay, MaxDelay: DefaultMaxDelay},
		Provider: ProviderConfig{
			Name:      DefaultProvider,
			Languages: []string{"en"},
			Timeout:   DefaultTimeout,
			MaxChars:  DefaultMaxChars,
		},
		YTDLP: YTDLPConfig{Binary: "yt-dlp", JSRuntime: "auto"},
		Log:   LogConfig{Level: "info", Format: "pretty"},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Pacing.MinDelay < 0 || c.Pacing.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("pacing delays must be >= 0 (min_delay=%g max_delay=%g)", c.Pacing.MinDelay, c.Pacing.MaxDelay))
	} else if c.Pacing.MinDelay > c.Pacing.MaxDelay {
		errs = append(errs, fmt.Errorf("pacing.min_delay %g is greater than pacing.max_delay %g", c.Pacing.MinDelay, c.Pacing.MaxDelay))
	}
	if c.Pacing.PerMinute < 0 {
		errs = append(errs, errors.New("pacing.per_minute must be >= 0"))
	}

	switch strings.ToLower(c.Checkpoint.Driver) {
	case "csv", "sqlite":
		if strings.TrimSpace(c.Checkpoint.Path) == "" && strings.TrimSpace(c.Checkpoint.DSN) == "" {
			errs = append(errs, errors.New("checkpoint.path is required"))
		}
	case "postgres":
		if strings.TrimSpace(c.Checkpoint.DSN) == "" {
			errs = append(errs, errors.New("checkpoint.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint.driver %q (expected csv, sqlite, or postgres)", c.Checkpoint.Driver))
	}

	switch strings.ToLower(c.Provider.Name) {
	case "youtube", "ytdlp":
	case "serpapi":
		if strings.TrimSpace(c.Provider.SerpAPIKey) == "" {
			errs = append(errs, errors.New("provider.serpapi_key (or SERPAPI_API_KEY) is required for the serpapi provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider.name %q (expected youtube, serpapi, or ytdlp)", c.Provider.Name))
	}
	if c.Provider.MaxChars < 0 {
		errs = append(errs, errors.New("provider.max_chars must be >= 0"))
	}
	if c.Provider.Timeout < 0 || c.Provider.ItemTimeout < 0 {
		errs = append(errs, errors.New("provider timeouts must be >= 0"))
	}
	if c.Run.MaxItems < 0 {
		errs = append(errs, errors.New("run.max_items must be >= 0"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "pretty", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q (expected pretty, text, or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NeedsYTDLP reports whether this configuration shells out to yt-dlp.
func (c *Config) NeedsYTDLP() bool {
	return strings.TrimSpace(c.Source.PlaylistURL) != "" || strings.EqualFold(c.Provider.Name, "ytdlp")
}
