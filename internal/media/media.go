package media

import (
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown media kind")

// Kind tags the provider family a queue entry belongs to. Each kind maps to
// exactly one adapter variant.
type Kind string

const (
	KindVideo       Kind = "video"
	KindAudioWidget Kind = "audio_widget"
	KindRawAudio    Kind = "raw_audio"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVideo, KindAudioWidget, KindRawAudio:
		return Kind(s), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Media identifies one queue entry. TrackId is the unique id of the entry
// itself, so the same video queued twice is two distinct tracks. ProviderRef
// is whatever the provider needs to locate the stream: a video id for
// KindVideo, a track url for KindAudioWidget, a direct stream url for
// KindRawAudio.
type Media struct {
	TrackId     string `json:"id"`
	ProviderRef string `json:"media_id"`
	Kind        Kind   `json:"type"`
	EmbedURL    string `json:"embed_url"`
	Title       string `json:"title"`
}
