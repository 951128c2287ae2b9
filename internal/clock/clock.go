// Package clock provides the monotonic time source injected into the
// control plane so tests can drive heartbeat timeouts deterministically.
package clock

import (
	"time"

	utilclock "k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"
)

// Clock is the time source ClusterState and HealthMonitor depend on.
type Clock interface {
	Now() time.Time
}

// Real wraps k8s.io/utils/clock's RealClock, the production implementation.
func Real() Clock {
	return utilclock.RealClock{}
}

// Fake is a controllable clock for tests; it wraps
// k8s.io/utils/clock/testing.FakeClock so tests can advance time without
// sleeping.
type Fake struct {
	*clocktesting.FakeClock
}

// NewFake creates a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{FakeClock: clocktesting.NewFakeClock(start)}
}

// Now satisfies Clock; FakeClock already exposes Now().
func (f *Fake) Now() time.Time { return f.FakeClock.Now() }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) { f.FakeClock.Step(d) }
