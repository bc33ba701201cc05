package media

import "errors"

// Error taxonomy for a playback session. Adapter- and resolver-level failures
// are converted to one of these before they reach the transport controller;
// raw host error codes never cross that boundary.
var (
	ErrInvalidID          = errors.New("invalid media identifier")
	ErrSDKLoad            = errors.New("player sdk failed to load")
	ErrPlayerConstruction = errors.New("player construction failed")
	ErrPlaybackRestricted = errors.New("playback restricted by content owner")
	ErrContentUnavailable = errors.New("content removed or unavailable")
	ErrPlayback           = errors.New("playback error")
)

// Category returns the short machine-readable name of the taxonomy value err
// wraps, or "unknown" for anything outside the taxonomy.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrInvalidID):
		return "invalid_id"
	case errors.Is(err, ErrSDKLoad):
		return "sdk_load"
	case errors.Is(err, ErrPlayerConstruction):
		return "player_construction"
	case errors.Is(err, ErrPlaybackRestricted):
		return "restricted"
	case errors.Is(err, ErrContentUnavailable):
		return "unavailable"
	case errors.Is(err, ErrPlayback):
		return "playback"
	default:
		return "unknown"
	}
}
