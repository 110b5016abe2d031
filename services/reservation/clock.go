package reservation

import "time"

// Clock allows injecting time into the engine. The server clock is the
// sole authority on hold expiry; client countdowns are cosmetic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// SystemClock returns a clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
