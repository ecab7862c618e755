package process

import "time"

// Restart tracker constants.
const (
	// MaxBackoffAttempts caps the exponent used in backoff calculation to
	// prevent integer overflow on long-lived processes.
	MaxBackoffAttempts int = 30
)

// RestartTracker implements the exponential-backoff-with-cooldown restart
// policy described by a Policy value: delay doubles on each consecutive
// attempt, and the attempt counter resets once the process has stayed
// Running for at least RestartCooldown.
type RestartTracker struct {
	// policy holds the restart thresholds taken from the process descriptor.
	policy Policy

	// attempts tracks consecutive restart attempts since the last reset.
	attempts int

	// lastAttempt records when the most recent restart attempt was made.
	lastAttempt time.Time
}

// NewRestartTracker creates a tracker bound to the given policy.
//
// Params:
//   - policy: the restart thresholds to enforce.
//
// Returns:
//   - *RestartTracker: a new tracker with a zeroed attempt count.
func NewRestartTracker(policy Policy) *RestartTracker {
	return &RestartTracker{policy: policy}
}

// ShouldRestart reports whether the policy allows another restart attempt.
//
// Returns:
//   - bool: false when auto-restart is disabled or attempts are exhausted.
func (rt *RestartTracker) ShouldRestart() bool {
	if !rt.policy.AutoRestart {
		return false
	}
	if rt.policy.MaxRestartAttempts <= 0 {
		// Zero means unlimited attempts within the cooldown window.
		return true
	}
	return rt.attempts < rt.policy.MaxRestartAttempts
}

// RecordAttempt increments the attempt counter and stamps the attempt time.
func (rt *RestartTracker) RecordAttempt() {
	rt.attempts++
	rt.lastAttempt = time.Now()
}

// Reset zeroes the attempt counter, e.g. after an operator-initiated restart.
func (rt *RestartTracker) Reset() {
	rt.attempts = 0
}

// MaybeReset resets the counter once the process has run stably for at
// least the policy's RestartCooldown.
//
// Params:
//   - uptime: how long the process has been continuously Running.
func (rt *RestartTracker) MaybeReset(uptime time.Duration) {
	cooldown := rt.policy.RestartCooldown.Duration()
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if uptime >= cooldown {
		rt.Reset()
	}
}

// Attempts returns the current consecutive-attempt count.
//
// Returns:
//   - int: the number of restart attempts recorded since the last reset.
func (rt *RestartTracker) Attempts() int {
	return rt.attempts
}

// NextDelay computes the next restart delay via exponential backoff:
// delay = RestartDelay * 2^attempts, capped at 10x the base delay.
//
// Returns:
//   - time.Duration: the delay to wait before the next restart attempt.
func (rt *RestartTracker) NextDelay() time.Duration {
	base := rt.policy.RestartDelay.Duration()
	if base <= 0 {
		base = time.Second
	}
	maxDelay := base * 10

	attempts := min(rt.attempts, MaxBackoffAttempts)
	// #nosec G115 - attempts is capped to MaxBackoffAttempts (30), safe for uint conversion
	delay := base * time.Duration(1<<uint(attempts))

	return min(delay, maxDelay)
}

// IsExhausted reports whether the policy's MaxRestartAttempts has been hit.
//
// Returns:
//   - bool: true once no further restart attempts are permitted.
func (rt *RestartTracker) IsExhausted() bool {
	if rt.policy.MaxRestartAttempts <= 0 {
		return false
	}
	return rt.attempts >= rt.policy.MaxRestartAttempts
}

// LastAttempt returns the time of the most recent recorded attempt.
//
// Returns:
//   - time.Time: zero value if no attempt has been recorded yet.
func (rt *RestartTracker) LastAttempt() time.Time {
	return rt.lastAttempt
}
