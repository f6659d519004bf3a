// Package retry runs operations a fixed number of times with a doubling
// delay between attempts.
package retry

import "time"

// Defaults applied when a Policy field is left zero.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy controls how many times an operation is attempted and how long
// to wait between attempts. The delay doubles after every failed attempt
// and is never capped. The zero value retries DefaultAttempts times
// starting at DefaultDelay.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Delay is the wait before the second attempt.
	Delay time.Duration

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// Do runs op until it succeeds or the policy's attempts run out. The
// first success returns immediately. After a failed attempt Do sleeps
// for the current delay and doubles it, except after the final attempt,
// whose error is returned without sleeping.
func Do[T any](p Policy, op func() (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		last = err
		if attempt < attempts {
			sleep(delay)
			delay *= 2
		}
	}

	var zero T
	return zero, last
}

// Run is Do for operations without a result value.
func Run(p Policy, op func() error) error {
	_, err := Do(p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
