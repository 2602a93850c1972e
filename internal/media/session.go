// Package media defines the capability boundary to the voice media transport.
//
// The engine never inspects session descriptions or candidates; they are
// negotiated blobs relayed between the remote peer and whatever media stack
// backs Session (WebRTC or otherwise).
package media

import (
	"context"
	"encoding/json"
)

// SessionDescription is an opaque negotiated-media descriptor exchanged via
// offer/answer. Stored as raw JSON so the engine can relay it untouched.
type SessionDescription struct {
	Raw json.RawMessage
}

func (d SessionDescription) IsZero() bool { return len(d.Raw) == 0 }

// Candidate is one opaque ICE candidate.
type Candidate struct {
	Raw json.RawMessage
}

// Session is the media transport for a single voice call.
//
// All methods may block on network or device work; the engine calls them off
// its serialized loop and re-validates call identity when results come back.
type Session interface {
	// CreateOffer produces the local session description for an outgoing call.
	CreateOffer(ctx context.Context) (SessionDescription, error)

	// CreateAnswer produces the local session description answering a remote offer.
	// Valid only after SetRemoteDescription succeeded.
	CreateAnswer(ctx context.Context) (SessionDescription, error)

	// SetRemoteDescription applies the peer's offer or answer.
	SetRemoteDescription(ctx context.Context, desc SessionDescription) error

	// AddCandidates feeds remote ICE candidates. Safe to call repeatedly.
	AddCandidates(candidates []Candidate)

	SetMuted(muted bool)

	// Close tears the session down and resets it for reuse. Idempotent.
	Close()
}

// Observer receives asynchronous media-session events. Implementations must
// hand events over to their own execution context; the media stack may invoke
// them from arbitrary goroutines.
type Observer interface {
	// OnLocalCandidates reports locally gathered ICE candidates for relay.
	OnLocalCandidates(candidates []Candidate)

	// OnConnected fires once media is flowing.
	OnConnected()

	// OnFailed fires when the session is beyond recovery.
	OnFailed(err error)
}
