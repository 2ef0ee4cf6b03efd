package reminder

import "time"

// ComputeFireAt returns the absolute time an offset fires for the given anchor.
// BEFORE subtracts the magnitude, AFTER adds it. Magnitude validation belongs to
// the caller.
func ComputeFireAt(anchor time.Time, magnitude time.Duration, direction Direction) time.Time {
	if direction == Before {
		return anchor.Add(-magnitude)
	}
	return anchor.Add(magnitude)
}

// Minutes converts a stored minute count into a duration.
func Minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// InWindow reports whether fireAt lies in [now, now+window].
func InWindow(fireAt, now time.Time, window time.Duration) bool {
	until := fireAt.Sub(now)
	return until >= 0 && until <= window
}

// RecentlyChanged reports whether changedAt lies in (now-window, now].
// Cancellation notices use it with the appointment's updatedAt as the
// cancellation clock.
func RecentlyChanged(changedAt, now time.Time, window time.Duration) bool {
	since := now.Sub(changedAt)
	return since > 0 && since <= window
}
