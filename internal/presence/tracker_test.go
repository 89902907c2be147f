package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/reading"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)}
	tr := NewTracker(Options{
		Tolerance: 3 * time.Second,
		Location:  time.FixedZone("UTC+8", 8*60*60),
		Now:       clock.Now,
	})
	return tr, clock
}

func TestTracker_FirstObservationUsesClock(t *testing.T) {
	tr, _ := newTestTracker()

	st, changed := tr.Observe("device_001", reading.Reading{Timestamp: 100, FormattedTime: "12:00:01"})
	if !st.Online || !changed {
		t.Errorf("fresh reading: status = %+v, changed = %v", st, changed)
	}

	st, changed = tr.Observe("device_002", reading.Reading{Timestamp: 100, FormattedTime: "09:15:00"})
	if st.Online || !changed {
		t.Errorf("stale reading: status = %+v, changed = %v", st, changed)
	}
}

func TestTracker_ArrivalDrivesPresence(t *testing.T) {
	tr, clock := newTestTracker()

	// Stale clock: offline until a newer reading arrives.
	tr.Observe("device_001", reading.Reading{Timestamp: 100, FormattedTime: "01:00:00"})

	clock.Advance(10 * time.Second)
	if st, changed := tr.Observe("device_001", reading.Reading{Timestamp: 100, FormattedTime: "01:00:00"}); st.Online || changed {
		t.Errorf("repeat reading: status = %+v, changed = %v", st, changed)
	}

	// Producer clock still wrong, but the timestamp advanced.
	st, changed := tr.Observe("device_001", reading.Reading{Timestamp: 101, FormattedTime: "01:00:01"})
	if !st.Online || !changed {
		t.Errorf("new arrival: status = %+v, changed = %v", st, changed)
	}
	if !st.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen = %v, want %v", st.LastSeen, clock.Now())
	}

	clock.Advance(3 * time.Second)
	if got := tr.Evaluate(); len(got) != 0 {
		t.Errorf("Evaluate() at tolerance = %+v, want no change", got)
	}

	clock.Advance(time.Second)
	got := tr.Evaluate()
	if len(got) != 1 || got[0].Device != "device_001" || got[0].Online {
		t.Errorf("Evaluate() after tolerance = %+v, want device_001 offline", got)
	}
	if tr.Status("device_001").Online {
		t.Error("Status() still online")
	}
}

func TestTracker_OlderTimestampIgnored(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Observe("device_001", reading.Reading{Timestamp: 200, FormattedTime: "12:00:00"})

	clock.Advance(5 * time.Second)
	if st, _ := tr.Observe("device_001", reading.Reading{Timestamp: 150}); st.Online {
		t.Error("older timestamp counted as an arrival")
	}
}

func TestTracker_AllAndForget(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Observe("device_b", reading.Reading{Timestamp: 1})
	tr.Observe("device_a", reading.Reading{Timestamp: 1})

	all := tr.All()
	if len(all) != 2 || all[0].Device != "device_a" || all[1].Device != "device_b" {
		t.Errorf("All() = %+v", all)
	}

	tr.Forget("device_a")
	if len(tr.All()) != 1 {
		t.Errorf("All() after Forget = %+v", tr.All())
	}
	if st := tr.Status("device_a"); st.Online || st.Device != "device_a" {
		t.Errorf("Status(forgotten) = %+v", st)
	}
}

func TestTracker_Run(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Observe("device_001", reading.Reading{Timestamp: 1, FormattedTime: "12:00:00"})
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []Status, 1)
	go tr.Run(ctx, 5*time.Millisecond, func(s []Status) {
		select {
		case got <- s:
		default:
		}
	})

	select {
	case s := <-got:
		if len(s) != 1 || s[0].Online {
			t.Errorf("transition = %+v, want device_001 offline", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no transition from Run")
	}
}
