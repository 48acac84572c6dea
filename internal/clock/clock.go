package clock

import (
	"time"

	"go.uber.org/fx"
)

// Module provides the wall clock used by services.
var Module = fx.Provide(NewSystemClock)

// Clock abstracts time.Now so tests can pin sale timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
