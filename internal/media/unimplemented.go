package media

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Unimplemented for every negotiation step.
var ErrUnavailable = errors.New("media: no media backend configured")

// Unimplemented is a Session for deployments that run the signaling and
// lifecycle machinery without a media backend. Negotiation fails with
// ErrUnavailable, which the engine surfaces through its normal local-failure
// path; the remaining methods are no-ops.
type Unimplemented struct{}

func (Unimplemented) CreateOffer(context.Context) (SessionDescription, error) {
	return SessionDescription{}, ErrUnavailable
}

func (Unimplemented) CreateAnswer(context.Context) (SessionDescription, error) {
	return SessionDescription{}, ErrUnavailable
}

func (Unimplemented) SetRemoteDescription(context.Context, SessionDescription) error {
	return ErrUnavailable
}

func (Unimplemented) AddCandidates([]Candidate) {}

func (Unimplemented) SetMuted(bool) {}

func (Unimplemented) Close() {}
