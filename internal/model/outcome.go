package model

import (
	"fmt"
	"strings"
)

const (
	StatusSuccess   = "success"
	StatusPermanent = "failed_permanent"
	StatusTransient = "failed_transient"
	StatusAborted   = "aborted"
)

const (
	KindDisabled      = "disabled"
	KindNotFound      = "not_found"
	KindUnavailable   = "unavailable"
	KindUnknown       = "unknown"
	KindProviderBlock = "provider_block"
)

// Checkpoint sentinels stored in place of transcript text.
const (
	SentinelDisabled    = "TRANSCRIPTS_DISABLED"
	SentinelNotFound    = "NO_TRANSCRIPT_FOUND"
	SentinelUnavailable = "VIDEO_UNAVAILABLE"
)

var permanentSentinels = map[string]string{
	KindDisabled:    SentinelDisabled,
	KindNotFound:    SentinelNotFound,
	KindUnavailable: SentinelUnavailable,
}

// Outcome is the result of processing one work item.
type Outcome struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Payload string `json:"-"`
	Detail  string `json:"detail,omitempty"`
}

func Success(payload string) Outcome {
	return Outcome{Status: StatusSuccess, Payload: payload}
}

func Permanent(kind, detail string) Outcome {
	return Outcome{Status: StatusPermanent, Kind: kind, Detail: detail}
}

func Transient(detail string) Outcome {
	return Outcome{Status: StatusTransient, Kind: KindUnknown, Detail: detail}
}

func Aborted(detail string) Outcome {
	return Outcome{Status: StatusAborted, Kind: KindProviderBlock, Detail: detail}
}

func (o Outcome) IsResolved() bool {
	return o.Status == StatusSuccess || o.Status == StatusPermanent
}

func (o Outcome) Label() string {
	if o.Kind == "" {
		return o.Status
	}
	return o.Status + ":" + o.Kind
}

func IsPermanentKind(kind string) bool {
	_, ok := permanentSentinels[kind]
	return ok
}

// EncodePayload renders a resolved outcome as the second checkpoint column.
func EncodePayload(o Outcome) (string, error) {
	switch o.Status {
	case StatusSuccess:
		return o.Payload, nil
	case StatusPermanent:
		s, ok := permanentSentinels[o.Kind]
		if !ok {
			return "", fmt.Errorf("unknown permanent failure kind %q", o.Kind)
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNotPersistable, o.Label())
	}
}

// DecodePayload is the inverse of EncodePayload. The boolean is false for an
// empty payload, which means the item is still pending.
func DecodePayload(payload string) (Outcome, bool) {
	if strings.TrimSpace(payload) == "" {
		return Outcome{}, false
	}
	for kind, s := range permanentSentinels {
		if payload == s {
			return Permanent(kind, ""), true
		}
	}
	return Success(payload), true
}
