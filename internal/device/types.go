package device

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// DefaultPrefix marks device keys at the store root.
const DefaultPrefix = "device_"

// MaxPlaceLength is the longest accepted place name, in characters.
const MaxPlaceLength = 100

// Path segments below a device key.
const (
	SegmentData  = "data"
	SegmentInfo  = "info"
	SegmentPlace = "place"
)

// Device is one sensor node.
type Device struct {
	ID           string           `json:"id"`
	Place        string           `json:"place,omitempty"`
	ReadingCount int              `json:"reading_count"`
	Latest       *reading.Reading `json:"latest,omitempty"`
}

// DeepCopy returns a copy that shares nothing with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Latest != nil {
		latest := *d.Latest
		cp.Latest = &latest
	}
	return &cp
}

// DisplayName is the place when known, else the ID.
func (d Device) DisplayName() string {
	if d.Place != "" {
		return d.Place
	}
	return d.ID
}

// IsDeviceKey reports whether a root key names a device.
func IsDeviceKey(key, prefix string) bool {
	return len(key) > len(prefix) && strings.HasPrefix(key, prefix)
}

// ValidatePlace trims place and checks its length.
func ValidatePlace(place string) (string, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPlace)
	}
	if n := utf8.RuneCountInString(place); n > MaxPlaceLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrInvalidPlace, n, MaxPlaceLength)
	}
	return place, nil
}
