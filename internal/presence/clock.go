package presence

import (
	"errors"
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// ErrInvalidClock is returned for a formatted time that isn't HH:MM:SS.
var ErrInvalidClock = errors.New("presence: invalid clock value")

// ParseClock converts "HH:MM:SS" into seconds since midnight.
func ParseClock(s string) (int, error) {
	var h, m, sec int
	if n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil || n != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*3600 + m*60 + sec, nil
}

// ClockDelta returns the distance in seconds between two times of day,
// taking the shorter way around midnight.
func ClockDelta(a, b int) int {
	d := (a - b) % secondsPerDay
	if d < 0 {
		d = -d
	}
	if d > secondsPerDay/2 {
		d = secondsPerDay - d
	}
	return d
}

// SecondsOfDay returns t's time of day in loc.
func SecondsOfDay(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// IsOnlineByClock compares a producer's formatted time with now, both read
// in the producer's zone. Unparseable times are offline.
//
// Parameters:
//   - formatted: The reading's formatted_time
//   - now: Consumer wall clock
//   - loc: Producer time zone
//   - tolerance: Maximum allowed difference
func IsOnlineByClock(formatted string, now time.Time, loc *time.Location, tolerance time.Duration) bool {
	produced, err := ParseClock(formatted)
	if err != nil {
		return false
	}
	delta := ClockDelta(produced, SecondsOfDay(now, loc))
	return time.Duration(delta)*time.Second <= tolerance
}
