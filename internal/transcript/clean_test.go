package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name     string
		segments []string
		max      int
		want     string
	}{
		{"joins and collapses", []string{" hello ", "world\n\nagain"}, 0, "hello world again"},
		{"drops cues", []string{"[Music]", "words", "[Applause]", "♪ ♪", "more"}, 0, "words more"},
		{"keeps inline brackets", []string{"see [this] here"}, 0, "see [this] here"},
		{"entities and tags", []string{"it&#39;s <i>fine</i> &amp; good"}, 0, "it's fine & good"},
		{"line break tag", []string{"one<br>two"}, 0, "one two"},
		{"empty", []string{"", "  "}, 0, ""},
		{"truncates", []string{"abcdef ghij"}, 6, "abcdef..."},
		{"truncates runes", []string{"äöüß xyz"}, 4, "äöüß..."},
		{"no truncate when short", []string{"abc"}, 10, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Clean(tc.segments, tc.max))
		})
	}
}
