// Package resolver derives candidate audio URLs for a media identifier. It is
// a pure string transform: no network access, no side effects. The branches
// below encode naming-convention quirks of the archive host, where item names
// cannot begin with "_" or "-".
package resolver

import (
	"strings"

	"github.com/Minh20812/audio-sync-player/internal/media"
)

// DefaultBaseURL is the download root of the audio host.
const DefaultBaseURL = "https://archive.org/download"

const (
	MimeOgg  = "audio/ogg"
	MimeMpeg = "audio/mpeg"
)

// truncLen is how many characters of a "-"-leading identifier survive the
// reformatting. An 11-character ID has exactly this many after the dash.
const truncLen = 10

// Candidate is one playable audio source. Candidates are handed to the audio
// element in preference order; the media layer picks the first it can play.
type Candidate struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

// ArchiveItem returns the archive item name for id.
func ArchiveItem(id media.ID) string {
	s := string(id)
	switch {
	case strings.HasPrefix(s, "_"):
		return "a" + s
	case strings.HasPrefix(s, "-"):
		return "__" + truncate(s)
	default:
		return s
	}
}

// Filenames returns the audio filenames inside the item, ogg before mp3.
func Filenames(id media.ID) []string {
	base := string(id)
	switch {
	case strings.HasPrefix(base, "_"):
		base = "a" + base
	case strings.HasPrefix(base, "-"):
		base = truncate(base)
	}
	return []string{base + ".ogg", base + ".mp3"}
}

// Candidates returns the ordered source list for id under baseURL. Ordering
// encodes codec preference only; playability is the consumer's problem.
func Candidates(id media.ID, baseURL string) []Candidate {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	item := ArchiveItem(id)

	names := Filenames(id)
	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		mime := MimeMpeg
		if strings.HasSuffix(name, ".ogg") {
			mime = MimeOgg
		}
		out = append(out, Candidate{
			URL:      baseURL + "/" + item + "/" + name,
			MimeType: mime,
		})
	}
	return out
}

func truncate(s string) string {
	rest := s[1:]
	if len(rest) > truncLen {
		rest = rest[:truncLen]
	}
	return rest
}
