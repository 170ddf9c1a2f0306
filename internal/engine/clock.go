package engine

import (
	"time"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// SystemClock implements schemas.Clock over the real time package.
type SystemClock struct{}

var _ schemas.Clock = SystemClock{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (SystemClock) NewTicker(d time.Duration) schemas.Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
