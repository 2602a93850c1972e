package call

import "errors"

// Error taxonomy for call handling. Errors raised while processing an inbound
// offer are translated into outbound decline/failure replies; errors from
// local user actions surface as alerts only for the curated subset below.
var (
	// ErrLineBusy: another call already occupies the line.
	ErrLineBusy = errors.New("call: line is busy")

	// ErrInvalidCallID: a signaling message carried an unusable correlation id.
	ErrInvalidCallID = errors.New("call: invalid call id")

	// ErrInvalidSessionDescription: an offer/answer payload failed to decode.
	ErrInvalidSessionDescription = errors.New("call: invalid session description")

	// ErrUnknownPeer: the remote party is not in the user directory.
	ErrUnknownPeer = errors.New("call: unknown peer")

	// ErrNetworkUnavailable: the messaging transport is down.
	ErrNetworkUnavailable = errors.New("call: network unavailable")

	// ErrPermissionDenied: microphone permission refused.
	ErrPermissionDenied = errors.New("call: microphone permission denied")

	// ErrInvalidHandle: a telephony action referenced an unusable handle.
	ErrInvalidHandle = errors.New("call: invalid telephony handle")

	// ErrMediaSession: the media session failed.
	ErrMediaSession = errors.New("call: media session failure")
)

// Alertable reports whether err warrants a user-visible alert. Everything else
// goes to diagnostics without interrupting the user.
func Alertable(err error) bool {
	return errors.Is(err, ErrLineBusy) ||
		errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrPermissionDenied)
}
