package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// Status is a device's presence.
type Status struct {
	Device   string    `json:"device"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen,omitzero"`
	// Timestamp of the newest reading observed.
	Timestamp int64 `json:"timestamp"`
}

// Options configures a Tracker.
type Options struct {
	Tolerance time.Duration
	// Location is the producer's time zone, used for first observations.
	Location *time.Location
	// Now defaults to time.Now. Values must carry a monotonic reading for
	// arrival measurements to ignore wall-clock jumps.
	Now func() time.Time
}

type deviceState struct {
	online    bool
	arrived   time.Time
	timestamp int64
	seen      bool
}

// Tracker holds presence for every known device.
//
// All methods are safe for concurrent use.
type Tracker struct {
	opts Options

	mu      sync.Mutex
	devices map[string]*deviceState
}

// NewTracker creates a tracker.
func NewTracker(opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Tracker{opts: opts, devices: make(map[string]*deviceState)}
}

// Observe records the newest reading of device. It returns the resulting
// status and whether it differs from the previous one. A device's first
// observation is judged by its formatted time; afterwards only a reading
// with a newer timestamp counts as an arrival.
func (t *Tracker) Observe(device string, latest reading.Reading) (Status, bool) {
	now := t.opts.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.devices[device]
	if !ok {
		st = &deviceState{}
		t.devices[device] = st
	}
	was := st.online
	first := !st.seen

	switch {
	case first:
		st.seen = true
		st.timestamp = latest.Timestamp
		if IsOnlineByClock(latest.FormattedTime, now, t.opts.Location, t.opts.Tolerance) {
			st.arrived = now
		}
	case latest.Timestamp > st.timestamp:
		st.timestamp = latest.Timestamp
		st.arrived = now
	}
	st.online = t.onlineLocked(st, now)

	return t.statusLocked(device, st), first || st.online != was
}

// Forget drops a device that disappeared from the store.
func (t *Tracker) Forget(device string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.devices, device)
}

// Evaluate re-checks every device against the current time and returns the
// ones whose status changed, sorted by device.
func (t *Tracker) Evaluate() []Status {
	now := t.opts.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	var changed []Status
	for id, st := range t.devices {
		online := t.onlineLocked(st, now)
		if online != st.online {
			st.online = online
			changed = append(changed, t.statusLocked(id, st))
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Device < changed[j].Device })
	return changed
}

// Status returns the presence of device. Unknown devices are offline.
func (t *Tracker) Status(device string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.devices[device]
	if !ok {
		return Status{Device: device}
	}
	return t.statusLocked(device, st)
}

// All returns every tracked device, sorted.
func (t *Tracker) All() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Status, 0, len(t.devices))
	for id, st := range t.devices {
		out = append(out, t.statusLocked(id, st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}

// Run calls Evaluate every interval until ctx is cancelled and passes any
// transitions to fn.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, fn func([]Status)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if changed := t.Evaluate(); len(changed) > 0 && fn != nil {
				fn(changed)
			}
		}
	}
}

func (t *Tracker) onlineLocked(st *deviceState, now time.Time) bool {
	if st.arrived.IsZero() {
		return false
	}
	return now.Sub(st.arrived) <= t.opts.Tolerance
}

func (t *Tracker) statusLocked(id string, st *deviceState) Status {
	return Status{Device: id, Online: st.online, LastSeen: st.arrived, Timestamp: st.timestamp}
}
