package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"yt-transcripts/internal/model"
)

func TestClassifier_Taxonomy(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		name   string
		err    error
		status string
		kind   string
	}{
		{"disabled sentinel", fmt.Errorf("youtube abc: %w", model.ErrTranscriptsDisabled), model.StatusPermanent, model.KindDisabled},
		{"no transcript sentinel", fmt.Errorf("serpapi: %w", model.ErrNoTranscript), model.StatusPermanent, model.KindNotFound},
		{"unavailable sentinel", model.ErrVideoUnavailable, model.StatusPermanent, model.KindUnavailable},
		{"blocked sentinel", fmt.Errorf("watch page: %w", model.ErrProviderBlocked), model.StatusAborted, model.KindProviderBlock},
		{"429 status", &model.StatusError{StatusCode: 429}, model.StatusAborted, model.KindProviderBlock},
		{"403 status", fmt.Errorf("timedtext: %w", &model.StatusError{StatusCode: 403}), model.StatusAborted, model.KindProviderBlock},
		{"503 status", &model.StatusError{StatusCode: 503}, model.StatusTransient, model.KindUnknown},
		{"too many requests text", errors.New("Too Many Requests"), model.StatusAborted, model.KindProviderBlock},
		{"forbidden text", errors.New("request forbidden by upstream"), model.StatusAborted, model.KindProviderBlock},
		{"disabled text", errors.New("Subtitles are disabled for this video"), model.StatusPermanent, model.KindDisabled},
		{"not found text", errors.New("Could not retrieve a transcript for the video"), model.StatusPermanent, model.KindNotFound},
		{"private text", errors.New("Private video"), model.StatusPermanent, model.KindUnavailable},
		{"timeout", context.DeadlineExceeded, model.StatusTransient, model.KindUnknown},
		{"network", errors.New("dial tcp: connection reset by peer"), model.StatusTransient, model.KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.err)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.kind, got.Kind)
			assert.NotEmpty(t, got.Detail)
		})
	}
}

func TestClassifier_SentinelBeatsBlockHint(t *testing.T) {
	err := fmt.Errorf("forbidden player response: %w", model.ErrVideoUnavailable)
	got := NewClassifier().Classify(err)
	assert.Equal(t, model.StatusPermanent, got.Status)
	assert.Equal(t, model.KindUnavailable, got.Kind)
}

func TestClassifier_IgnoresHintsInsideURLs(t *testing.T) {
	err := errors.New(`Get "https://www.youtube.com/watch?v=a429blocked": dial tcp: i/o timeout`)
	got := NewClassifier().Classify(err)
	assert.Equal(t, model.StatusTransient, got.Status)
}

func TestClassifier_ExtraBlockHints(t *testing.T) {
	err := errors.New("sign in to confirm you're not a bot")
	assert.Equal(t, model.StatusTransient, NewClassifier().Classify(err).Status)
	assert.Equal(t, model.StatusAborted, NewClassifier("  Not a BOT ").Classify(err).Status)
}

func TestClassifier_ZeroValueUsesDefaults(t *testing.T) {
	var c Classifier
	assert.Equal(t, model.StatusAborted, c.Classify(errors.New("HTTP Error 429")).Status)
}

func TestClassifier_DetailKeepsRunesWhole(t *testing.T) {
	// 'x' shifts the two-byte runes so byte 300 lands mid-rune.
	err := errors.New("x" + strings.Repeat("é", 200))
	o := NewClassifier().Classify(err)
	assert.Equal(t, model.StatusTransient, o.Status)
	assert.True(t, utf8.ValidString(o.Detail))
	assert.Len(t, o.Detail, 299)
}
