package ytplayer

import (
	"fmt"

	"github.com/Minh20812/audio-sync-player/internal/media"
)

// Host SDK numeric error codes.
const (
	codeInvalidParam     = 2
	codeHTML5            = 5
	codeNotFound         = 100
	codeNotEmbeddable    = 101
	codeNotEmbeddableAlt = 150
)

// MapErrorCode converts a host-reported numeric error code into the session
// error taxonomy. Codes outside the documented set map to the generic
// playback error so callers never see a raw code.
func MapErrorCode(code int, id media.ID) error {
	switch code {
	case codeInvalidParam:
		return fmt.Errorf("%w: %q", media.ErrInvalidID, id)
	case codeHTML5:
		return fmt.Errorf("%w: html5 player failure", media.ErrPlayback)
	case codeNotFound:
		return fmt.Errorf("%w: %q", media.ErrContentUnavailable, id)
	case codeNotEmbeddable, codeNotEmbeddableAlt:
		return fmt.Errorf("%w: %q", media.ErrPlaybackRestricted, id)
	default:
		return fmt.Errorf("%w: host code %d", media.ErrPlayback, code)
	}
}
