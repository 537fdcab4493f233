package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"yt-transcripts/internal/checkpoint"
)

var sectionComments = map[string]string{
	"source":     "Where the declared video ids come from. Set path (CSV or one id per line) or playlist_url.",
	"checkpoint": "Resolved outcomes are saved here after every item. driver: csv | sqlite | postgres.",
	"pacing":     "Seconds to wait between provider calls, drawn uniformly from [min_delay, max_delay].",
	"provider":   "Transcript provider: youtube | serpapi | ytdlp. serpapi_key falls back to SERPAPI_API_KEY.",
	"ytdlp":      "Only used for playlist sources and the ytdlp provider.",
	"classifier": "Extra error substrings that mean the provider is blocking us.",
	"run":        "max_items stops after that many fetch attempts (0 = no limit).",
	"log":        "level: debug | info | warn | error. format: pretty | text | json.",
	"metrics":    "Optional Prometheus textfile written at the end of each run.",
}

// SampleYAML renders the default configuration with a comment per section.
func SampleYAML() ([]byte, error) {
	var root yaml.Node
	if err := root.Encode(Default()); err != nil {
		return nil, fmt.Errorf("encode sample config: %w", err)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if c, ok := sectionComments[key.Value]; ok {
			key.HeadComment = c
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# yt-transcripts configuration. Environment variables override it as YTT_<SECTION>_<KEY>.\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("encode sample config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSample writes the sample configuration to path. An existing file is
// only replaced when force is set. It reports whether a file was written.
func WriteSample(path string, force bool) (bool, error) {
	target := strings.TrimSpace(path)
	if target == "" {
		target = DefaultFileName
	}
	if _, err := os.Stat(target); err == nil && !force {
		return false, nil
	} else if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}

	data, err := SampleYAML()
	if err != nil {
		return false, err
	}
	if err := checkpoint.WriteBytes(target, data); err != nil {
		return false, fmt.Errorf("write %s: %w", target, err)
	}
	return true, nil
}
