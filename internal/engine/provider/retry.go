package provider

import "time"

// retryUntil calls fn until it reports success, doubling the delay between
// attempts up to maxDelay, and gives up after maxAttempts. done receives the
// final outcome. The first attempt is made immediately on the caller's
// goroutine; subsequent attempts run on timer goroutines.
func retryUntil(maxAttempts int, initialDelay, maxDelay time.Duration, fn func() bool, done func(ok bool)) {
	if fn() {
		done(true)
		return
	}

	var attempt func(n int, delay time.Duration)
	attempt = func(n int, delay time.Duration) {
		if n >= maxAttempts {
			done(false)
			return
		}

		time.AfterFunc(delay, func() {
			if fn() {
				done(true)
				return
			}

			next := delay * 2
			if next > maxDelay {
				next = maxDelay
			}
			attempt(n+1, next)
		})
	}

	attempt(1, initialDelay)
}
