package transcript

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Clean joins caption segments into one paragraph. Markup and entities are
// removed, cue-only segments like "[Music]" are dropped and whitespace is
// collapsed. maxChars > 0 truncates the result on a rune boundary and
// appends "...".
func Clean(segments []string, maxChars int) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(plainText(seg))
		if text == "" || isCue(text) {
			continue
		}
		parts = append(parts, text)
	}
	out := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return truncateRunes(out, maxChars)
}

// plainText returns the text content of an HTML fragment with entities
// decoded. Caption segments carry <font> tags and double-escaped entities.
func plainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}

func isCue(text string) bool {
	if len(text) < 2 {
		return false
	}
	switch {
	case text[0] == '[' && text[len(text)-1] == ']':
		return true
	case strings.Trim(text, "♪ ") == "":
		return true
	}
	return false
}

func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return strings.TrimRight(s[:i], " ") + "..."
		}
		n++
	}
	return s
}
