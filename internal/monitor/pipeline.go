package monitor

import (
	"context"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// followSelection keeps one data watch on the selected device until ctx
// is cancelled.
func (m *Monitor) followSelection(ctx context.Context) {
	states, cancel := m.Selection.Subscribe()
	defer cancel()

	var (
		stop    context.CancelFunc
		done    chan struct{}
		current string
	)
	release := func() {
		if stop == nil {
			return
		}
		stop()
		<-done
		stop = nil
	}
	defer release()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			m.sinks.SelectionChanged(st)

			if st.SelectedDevice == current {
				m.setPlace(st.SelectedPlace)
				continue
			}

			release()
			current = st.SelectedDevice
			gen := m.begin(st.SelectedDevice, st.SelectedPlace)
			if current == "" {
				continue
			}

			wctx, wcancel := context.WithCancel(ctx)
			stop, done = wcancel, make(chan struct{})
			go m.watchDevice(wctx, current, gen, done)
		}
	}
}

func (m *Monitor) watchDevice(ctx context.Context, id string, gen uint64, done chan<- struct{}) {
	defer close(done)
	m.logger.Debug("watching device data", "device", id)

	err := rtdb.Watch(ctx, m.Store, device.DataPath(id), func(snap rtdb.Snapshot) {
		m.onData(gen, snap)
	})
	if err != nil && ctx.Err() == nil {
		m.logger.Warn("device data listener ended", "device", id, "error", err)
	}
}

// begin starts a new generation for id and resets the derived state.
func (m *Monitor) begin(id, place string) uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.device, m.place = id, place
	m.readings = nil
	m.derived = Derive(id, place, nil, m.Settings.Current(), m.opts.HistoryWindow)
	d := m.derived
	m.mu.Unlock()

	m.sinks.ReadingsUpdated(d)
	return gen
}

func (m *Monitor) setPlace(place string) {
	m.mu.Lock()
	if m.place == place {
		m.mu.Unlock()
		return
	}
	m.place = place
	m.derived.Place = place
	d := m.derived
	m.mu.Unlock()
	m.sinks.ReadingsUpdated(d)
}

// onData derives state from a data snapshot unless it belongs to a
// released watch.
func (m *Monitor) onData(gen uint64, snap rtdb.Snapshot) {
	sorted := reading.FromSnapshot(snap)
	s := m.Settings.Current()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("dropping stale device data", "path", snap.Path())
		return
	}
	m.readings = sorted
	m.derived = Derive(m.device, m.place, sorted, s, m.opts.HistoryWindow)
	d := m.derived
	m.mu.Unlock()

	m.sinks.ReadingsUpdated(d)
}
