// Package clock is the time source the refresh components schedule against.
// Production code passes an *eventloop.Loop; tests pass a *Fake.
package clock

import "time"

// Clock arms one-shot callbacks and reports the current instant.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once d has elapsed. d <= 0 fires as soon as possible.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop reports whether the call was prevented from firing.
	Stop() bool
}
