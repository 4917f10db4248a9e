package keeper

import "time"

// Clock is the time collaborator. One call per operation; tests substitute
// a manual clock to simulate elapsed time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
