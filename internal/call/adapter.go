package call

import (
	"context"

	"github.com/google/uuid"
)

// Adapter mediates call UX with the platform: starting, answering, ending and
// muting on behalf of the user, and reporting engine-driven state outward.
// Two variants exist (platform-integrated and self-managed, see
// internal/telephony); the engine is oblivious to which one is active.
type Adapter interface {
	// RequestStartCall validates preconditions (connectivity, line idle,
	// permission) and drives the engine's start-outgoing transition.
	RequestStartCall(ctx context.Context, id uuid.UUID, peerID string) error

	// RequestEndCall always terminates local state, even if platform-level
	// reporting fails.
	RequestEndCall(ctx context.Context, id uuid.UUID) error

	// RequestSetMute toggles the media mute. No-op for a non-active id.
	RequestSetMute(ctx context.Context, id uuid.UUID, muted bool) error

	// ReportNewIncomingCall asks the platform to present ringing for a queued
	// offer. Must gate on microphone permission: denial surfaces as
	// ErrPermissionDenied so the engine replies DECLINE rather than FAILED.
	ReportNewIncomingCall(ctx context.Context, id uuid.UUID, peerID, displayName string) error

	// One-way notifications; fire-and-forget from the engine's perspective.
	ReportCallEnded(id uuid.UUID, reason EndedReason)
	ReportOutgoingConnecting(id uuid.UUID)
	ReportOutgoingConnected(id uuid.UUID)
	ReportIncomingConnected(id uuid.UUID)
}

// AdapterProvider returns the adapter variant currently in effect. Selection
// depends on runtime permission state, so it is re-evaluated per use.
type AdapterProvider func() Adapter

// Alerter surfaces curated errors to the user. Permission denial routes to a
// settings-remediation prompt instead of a plain alert.
type Alerter interface {
	Alert(err error)
	AlertSettings(err error)
}

// Ringer controls the in-app ringtone.
type Ringer interface {
	Play()
	Stop()
}

// Haptics is poked when a call becomes active.
type Haptics interface {
	CallConnected()
}

type nopAlerter struct{}

func (nopAlerter) Alert(error)         {}
func (nopAlerter) AlertSettings(error) {}

type nopRinger struct{}

func (nopRinger) Play() {}
func (nopRinger) Stop() {}

type nopHaptics struct{}

func (nopHaptics) CallConnected() {}
