package session

import (
	"time"

	"github.com/syncroom/player/internal/engine/clock"
	"github.com/syncroom/player/internal/engine/provider"
	"github.com/syncroom/player/internal/media"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// SyncEvent is the one inbound playback signal. A nil Media means no active
// track. StartedAt and ServerNow are server epoch milliseconds; either may be
// zero when the server did not supply them.
type SyncEvent struct {
	Media     *media.Media
	StartedAt int64
	ServerNow int64
	IsHost    bool
}

// TrackSession is the authoritative unit of playback state. Exactly one may
// be live; the controller replaces it wholesale on every new track. All
// fields are owned by the controller's run loop.
type TrackSession struct {
	Media     media.Media
	StartedAt int64
	Offset    clock.Offset
	Role      Role
	CreatedAt time.Time

	Adapter provider.Adapter

	// Ready flips once the adapter confirmed it can report position.
	Ready bool
	// EndReported latches the at-most-once end notification. It never
	// resets within a session's lifetime.
	EndReported bool
}

// Expected is the position in seconds this session should be at right now.
func (s *TrackSession) Expected(now time.Time) float64 {
	return clock.ExpectedElapsed(now, s.StartedAt, s.Offset).Seconds()
}

// Status is a read-only snapshot of the live session for the control surface.
type Status struct {
	TrackId     string  `json:"track_id,omitempty"`
	ProviderRef string  `json:"provider_ref,omitempty"`
	Kind        string  `json:"kind,omitempty"`
	Title       string  `json:"title,omitempty"`
	State       string  `json:"state"`
	Role        Role    `json:"role,omitempty"`
	Expected    float64 `json:"expected_seconds"`
	EndReported bool    `json:"end_reported"`
}
