package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider-neutral failure signals. Transcript providers wrap these so the
// classifier never depends on a particular provider's error types.
var (
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	ErrNoTranscript        = errors.New("no transcript found")
	ErrVideoUnavailable    = errors.New("video unavailable")
	ErrProviderBlocked     = errors.New("provider is blocking requests")

	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")
	ErrNotPersistable    = errors.New("outcome is not persistable")
)

// StatusError is returned by providers for non-success HTTP responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}
