package media

import (
	"fmt"
	"regexp"
	"strings"
)

// ID is the opaque identifier of the primary video. YouTube-style IDs are
// 11 characters of [A-Za-z0-9_-].
type ID string

var (
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	// accepts watch, short and embed URL forms and captures the ID
	urlPattern = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
)

// Parse returns a validated ID from a raw user-supplied string. The string may
// be a bare ID or any of the common video URL forms; anything that does not
// reduce to a valid ID yields ErrInvalidID.
func Parse(raw string) (ID, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidID)
	}
	if m := urlPattern.FindStringSubmatch(clean); m != nil {
		clean = m[1]
	}
	if !idPattern.MatchString(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return ID(clean), nil
}

func (id ID) String() string { return string(id) }

// WatchURL is the canonical page URL for the video.
func (id ID) WatchURL() string {
	return "https://youtube.com/watch?v=" + string(id)
}

// ThumbnailURL is the highest-resolution still the host serves without auth.
func (id ID) ThumbnailURL() string {
	return "https://img.youtube.com/vi/" + string(id) + "/maxresdefault.jpg"
}
