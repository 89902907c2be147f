package device

import (
	"fmt"
	"slices"
	"sync"
)

// SelectionState is the shared device selection shown by every view.
type SelectionState struct {
	Devices        []string `json:"devices"`
	SelectedDevice string   `json:"selected_device"`
	SelectedPlace  string   `json:"selected_place"`
}

func (s SelectionState) clone() SelectionState {
	s.Devices = slices.Clone(s.Devices)
	return s
}

func (s SelectionState) equal(o SelectionState) bool {
	return s.SelectedDevice == o.SelectedDevice &&
		s.SelectedPlace == o.SelectedPlace &&
		slices.Equal(s.Devices, o.Devices)
}

// Selection holds the selected device. Refresh and SelectDevice are the
// only writers. Exactly one device is selected whenever the registry is
// non-empty.
//
// All public methods are thread-safe.
type Selection struct {
	mu     sync.Mutex
	state  SelectionState
	places map[string]string
	subs   map[chan SelectionState]struct{}
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{
		places: make(map[string]string),
		subs:   make(map[chan SelectionState]struct{}),
	}
}

// State returns a copy of the current selection.
func (s *Selection) State() SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Selected returns the selected device, or "" when none.
func (s *Selection) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectedDevice
}

// Refresh replaces the device list. The first device is selected when
// nothing is; an existing selection is kept while its device is present.
// Subscribers are notified only when the state changes.
func (s *Selection) Refresh(devices []Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := SelectionState{Devices: make([]string, 0, len(devices))}
	places := make(map[string]string, len(devices))
	for _, d := range devices {
		next.Devices = append(next.Devices, d.ID)
		places[d.ID] = d.Place
	}

	next.SelectedDevice = s.state.SelectedDevice
	if _, ok := places[next.SelectedDevice]; !ok {
		next.SelectedDevice = ""
		if len(next.Devices) > 0 {
			next.SelectedDevice = next.Devices[0]
		}
	}
	next.SelectedPlace = places[next.SelectedDevice]

	s.places = places
	s.setLocked(next)
}

// SelectDevice makes id the selected device.
// Returns ErrDeviceNotFound if id isn't in the current device list.
func (s *Selection) SelectDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	place, ok := s.places[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	next := s.state.clone()
	next.SelectedDevice = id
	next.SelectedPlace = place
	s.setLocked(next)
	return nil
}

// Subscribe returns a channel that receives the current state immediately
// and every later change. Slow receivers only see the newest state. Call
// cancel to release the channel; it is closed afterwards.
func (s *Selection) Subscribe() (<-chan SelectionState, func()) {
	ch := make(chan SelectionState, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.state.clone()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Selection) setLocked(next SelectionState) {
	if next.equal(s.state) {
		return
	}
	s.state = next
	for ch := range s.subs {
		// Conflate: replace an undelivered state with the newest one.
		select {
		case <-ch:
		default:
		}
		ch <- next.clone()
	}
}
