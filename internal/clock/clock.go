// Package clock supplies the protocol time against which every voting window,
// unlock buffer and grace period is evaluated. Protocol time is whole unix
// seconds and must never move backwards.
package clock

import (
	"errors"
	"sync"
	"time"
)

var now = time.Now

// ErrTimeWentBackwards is returned when a manual clock is set to an earlier
// instant than the one it already reports.
var ErrTimeWentBackwards = errors.New("protocol time cannot go backwards")

// Timestamp is protocol time in unix seconds.
type Timestamp int64

// FromTime converts a standard time.Time to a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// ToTime converts a Timestamp to a UTC time.Time.
func (ts Timestamp) ToTime() time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

// Add returns ts shifted by d, truncated to whole seconds.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return ts + Timestamp(d/time.Second)
}

// Before reports whether ts is strictly before u.
func (ts Timestamp) Before(u Timestamp) bool { return ts < u }

// After reports whether ts is strictly after u.
func (ts Timestamp) After(u Timestamp) bool { return ts > u }

// String formats the timestamp as RFC3339.
func (ts Timestamp) String() string {
	return ts.ToTime().Format(time.RFC3339)
}

// Clock reports the current protocol time.
type Clock interface {
	Now() Timestamp
}

// System is a Clock backed by the wall clock.
type System struct{}

func (System) Now() Timestamp {
	return FromTime(now())
}

// Manual is a Clock that only moves when told to. It is used by tests and by
// scenario replays where every operation carries its own execution time.
type Manual struct {
	mu sync.Mutex
	ts Timestamp
}

// NewManual returns a manual clock reporting start.
func NewManual(start Timestamp) *Manual {
	return &Manual{ts: start}
}

func (m *Manual) Now() Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ts
}

// Set moves the clock to ts.
func (m *Manual) Set(ts Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts < m.ts {
		return ErrTimeWentBackwards
	}
	m.ts = ts
	return nil
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.ts = m.ts.Add(d)
	}
	return m.ts
}
