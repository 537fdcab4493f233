package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "yt-transcripts"
	configType = "yaml"
	envPrefix  = "YTT"
	dotEnvFile = ".env"
)

// Load resolves configuration from defaults, the YAML file at path (or
// yt-transcripts.yaml in the working directory), .env and the environment.
// A missing default file is not an error; a missing explicit path is.
// overrides run before validation, so command-line flags win.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The SerpApi key keeps the variable name the key is issued under.
	if err := v.BindEnv("provider.serpapi_key", envPrefix+"_PROVIDER_SERPAPI_KEY", "SERPAPI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if p := strings.TrimSpace(path); p != "" {
		v.SetConfigFile(p)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, override := range overrides {
		override(&cfg)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("source.column", d.Source.Column)
	v.SetDefault("source.playlist_url", d.Source.PlaylistURL)
	v.SetDefault("source.cookies", d.Source.Cookies)

	v.SetDefault("checkpoint.driver", d.Checkpoint.Driver)
	v.SetDefault("checkpoint.path", d.Checkpoint.Path)
	v.SetDefault("checkpoint.dsn", d.Checkpoint.DSN)
	v.SetDefault("checkpoint.lock", d.Checkpoint.Lock)

	v.SetDefault("pacing.min_delay", d.Pacing.MinDelay)
	v.SetDefault("pacing.max_delay", d.Pacing.MaxDelay)
	v.SetDefault("pacing.per_minute", d.Pacing.PerMinute)

	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.languages", d.Provider.Languages)
	v.SetDefault("provider.serpapi_key", d.Provider.SerpAPIKey)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.max_chars", d.Provider.MaxChars)
	v.SetDefault("provider.item_timeout", d.Provider.ItemTimeout)

	v.SetDefault("ytdlp.binary", d.YTDLP.Binary)
	v.SetDefault("ytdlp.js_runtime", d.YTDLP.JSRuntime)
	v.SetDefault("ytdlp.cookies_from_browser", d.YTDLP.CookiesFromBrowser)

	v.SetDefault("classifier.block_hints", []string{})
	v.SetDefault("run.max_items", d.Run.MaxItems)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

func normalize(cfg *Config) {
	cfg.Checkpoint.Driver = strings.ToLower(strings.TrimSpace(cfg.Checkpoint.Driver))
	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Provider.Languages = trimList(cfg.Provider.Languages)
	cfg.Classifier.BlockHints = trimList(cfg.Classifier.BlockHints)
	if len(cfg.Provider.Languages) == 0 {
		cfg.Provider.Languages = []string{"en"}
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
