package channel

import "time"

// Clock abstracts time so freshness and replay checks are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
