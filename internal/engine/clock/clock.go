package clock

import "time"

// Offset is the difference between the local and the server wall clock,
// measured once per sync event as localNow - serverNow. It is carried for
// the lifetime of the session it was measured for.
type Offset time.Duration

// MeasureOffset derives the clock offset from the server timestamp attached
// to a sync event. A zero serverNow means the event carried no server clock,
// in which case the local clock is trusted as-is.
func MeasureOffset(localNow time.Time, serverNowMs int64) Offset {
	if serverNowMs == 0 {
		return 0
	}

	return Offset(localNow.UnixMilli()-serverNowMs) * Offset(time.Millisecond)
}

// ExpectedElapsed converts the server-announced track start instant into the
// position the track should be at right now. Never negative: a start
// timestamp in the future clamps to zero rather than producing a rewind.
func ExpectedElapsed(now time.Time, startedAtMs int64, offset Offset) time.Duration {
	if startedAtMs == 0 {
		return 0
	}

	elapsed := time.Duration(now.UnixMilli()-startedAtMs)*time.Millisecond - time.Duration(offset)
	if elapsed < 0 {
		return 0
	}

	return elapsed
}
