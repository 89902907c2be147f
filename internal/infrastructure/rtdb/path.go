package rtdb

import (
	"fmt"
	"strings"
)

// InfoConnectedPath is the server-maintained connectivity flag.
const InfoConnectedPath = ".info/connected"

// forbidden characters in keys.
const forbidden = ".#$[]"

// CleanPath trims slashes and collapses empty segments. The root is "".
func CleanPath(p string) string {
	return strings.Join(splitPath(p), "/")
}

// JoinPath joins segments into a clean path.
func JoinPath(parts ...string) string {
	return CleanPath(strings.Join(parts, "/"))
}

func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// validatePath rejects keys the store would refuse. The .info namespace
// is allowed for reads only and is checked by callers.
func validatePath(p string) error {
	for i, seg := range splitPath(p) {
		if i == 0 && seg == ".info" {
			continue
		}
		if strings.ContainsAny(seg, forbidden) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return nil
}

func isInfoPath(p string) bool {
	segs := splitPath(p)
	return len(segs) > 0 && segs[0] == ".info"
}
