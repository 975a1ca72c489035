package authserver

import "time"

// Clock is the time source for every expiry decision in the authorization
// server. Production code uses SystemClock; tests inject a controllable one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
