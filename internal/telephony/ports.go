// Package telephony integrates the call engine with the device's calling UX.
//
// Two adapter variants exist: SystemAdapter delegates presentation and user
// actions to the OS call controller through a Bridge, NativeAdapter manages
// everything in-app. Both implement call.Adapter; Select picks the variant.
//
// Rules:
//   - No engine state transitions outside the engine; adapters only request
//     them and relay completions.
//   - Adapters own presentation concerns (ringing UI, notifications) and the
//     permission gate, nothing else.
package telephony

import (
	"context"

	"voicecall-engine/internal/call"
	"voicecall-engine/internal/directory"

	"github.com/google/uuid"
)

// PermissionStatus is the microphone recording permission state.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Permission exposes the platform's microphone permission.
type Permission interface {
	// Status returns the current state without prompting.
	Status() PermissionStatus

	// Request prompts the user when the state is undetermined and returns the
	// resulting state.
	Request(ctx context.Context) (PermissionStatus, error)
}

// Notifier posts and clears incoming-call notifications for the native
// adapter when the UI is in the background.
type Notifier interface {
	ShowIncomingCall(id uuid.UUID, displayName string)
	Dismiss(id uuid.UUID)
}

// Presence reports whether the user-facing UI is in the foreground; it decides
// between in-app ringing and a notification.
type Presence interface {
	InForeground() bool
}

// AlwaysForeground is the Presence for headless deployments.
type AlwaysForeground struct{}

func (AlwaysForeground) InForeground() bool { return true }

// NopNotifier drops notifications; headless deployments.
type NopNotifier struct{}

func (NopNotifier) ShowIncomingCall(uuid.UUID, string) {}
func (NopNotifier) Dismiss(uuid.UUID)                  {}

// NopRinger is a silent call.Ringer; headless deployments.
type NopRinger struct{}

func (NopRinger) Play() {}
func (NopRinger) Stop() {}

// StaticPermission is a fixed-state Permission for environments without an
// interactive prompt.
type StaticPermission PermissionStatus

func (p StaticPermission) Status() PermissionStatus { return PermissionStatus(p) }

func (p StaticPermission) Request(ctx context.Context) (PermissionStatus, error) {
	return PermissionStatus(p), nil
}

// Bridge is the OS call-controller boundary used by SystemAdapter. The
// platform implementation translates these into controller actions and
// provider reports; user actions come back through the adapter's Perform*
// callbacks.
type Bridge interface {
	// RequestStart submits a start-call action; the controller calls
	// PerformStart back when the action executes.
	RequestStart(ctx context.Context, id uuid.UUID, handle string) error

	// RequestEnd submits an end-call action.
	RequestEnd(ctx context.Context, id uuid.UUID) error

	// RequestMute submits a mute action.
	RequestMute(ctx context.Context, id uuid.UUID, muted bool) error

	// ReportIncoming presents system ringing for an inbound call.
	ReportIncoming(ctx context.Context, id uuid.UUID, displayName string) error

	ReportConnecting(id uuid.UUID)
	ReportConnected(id uuid.UUID)
	ReportEnded(id uuid.UUID, reason call.EndedReason)
}

// Engine is what the adapters need from the call engine. Implemented by
// *call.Engine; declared here so adapters can be tested against a stub.
type Engine interface {
	StartCall(id uuid.UUID, peerID string, done func(ok bool))
	AnswerCall(id uuid.UUID, done func(ok bool))
	EndCall(id uuid.UUID)
	SetMute(id uuid.UUID, muted bool)
	Clean()
	LineIdle() bool
	PendingPeer(id uuid.UUID) (directory.User, bool)
}
