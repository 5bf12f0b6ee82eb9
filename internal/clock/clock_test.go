package clock

import (
	"testing"
	"time"

	"github.com/go-quicktest/qt"
)

func TestTimestamp_Conversion(t *testing.T) {
	t.Run("round trips through time.Time", func(t *testing.T) {
		want := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

		ts := FromTime(want)

		qt.Assert(t, qt.Equals(ts.ToTime(), want))
		qt.Assert(t, qt.Equals(ts.String(), "2026-03-01T12:00:00Z"))
	})

	t.Run("add truncates to whole seconds", func(t *testing.T) {
		ts := Timestamp(100)

		qt.Assert(t, qt.Equals(ts.Add(1500*time.Millisecond), Timestamp(101)))
		qt.Assert(t, qt.Equals(ts.Add(30*24*time.Hour), Timestamp(100+30*24*3600)))
		qt.Assert(t, qt.IsTrue(ts.Before(ts.Add(time.Second))))
		qt.Assert(t, qt.IsTrue(ts.Add(time.Second).After(ts)))
	})
}

func TestSystem_Now(t *testing.T) {
	fixed := time.Date(2027, time.January, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	qt.Assert(t, qt.Equals(System{}.Now(), FromTime(fixed)))
}

func TestManual(t *testing.T) {
	t.Run("advances forward only", func(t *testing.T) {
		m := NewManual(1_000)

		qt.Assert(t, qt.Equals(m.Advance(time.Minute), Timestamp(1_060)))
		qt.Assert(t, qt.Equals(m.Advance(-time.Hour), Timestamp(1_060)))
		qt.Assert(t, qt.Equals(m.Now(), Timestamp(1_060)))
	})

	t.Run("set rejects going backwards", func(t *testing.T) {
		m := NewManual(1_000)

		qt.Assert(t, qt.IsNil(m.Set(2_000)))
		qt.Assert(t, qt.ErrorIs(m.Set(1_999), ErrTimeWentBackwards))
		qt.Assert(t, qt.Equals(m.Now(), Timestamp(2_000)))
	})
}
