package telephony

import (
	"context"
	"log/slog"
	"sync"

	"voicecall-engine/internal/call"
	"voicecall-engine/internal/signaling"

	"github.com/google/uuid"
)

// NativeAdapter is the self-managed call interface: it gates user actions on
// connectivity, line idleness and microphone permission itself, and presents
// incoming calls with the in-app ringer or a notification.
type NativeAdapter struct {
	engine       Engine
	connectivity signaling.Connectivity
	permission   Permission
	ringer       call.Ringer
	notifier     Notifier
	presence     Presence
	log          *slog.Logger

	mu        sync.Mutex
	presented map[uuid.UUID]struct{}
}

func NewNativeAdapter(
	engine Engine,
	connectivity signaling.Connectivity,
	permission Permission,
	ringer call.Ringer,
	notifier Notifier,
	presence Presence,
	log *slog.Logger,
) *NativeAdapter {
	if presence == nil {
		presence = AlwaysForeground{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &NativeAdapter{
		engine:       engine,
		connectivity: connectivity,
		permission:   permission,
		ringer:       ringer,
		notifier:     notifier,
		presence:     presence,
		log:          log,
		presented:    map[uuid.UUID]struct{}{},
	}
}

func (a *NativeAdapter) RequestStartCall(ctx context.Context, id uuid.UUID, peerID string) error {
	if !a.engine.LineIdle() {
		return call.ErrLineBusy
	}
	if !a.connectivity.IsConnected() {
		return call.ErrNetworkUnavailable
	}
	status, err := a.permission.Request(ctx)
	if err != nil {
		return err
	}
	if status != PermissionGranted {
		return call.ErrPermissionDenied
	}
	a.engine.StartCall(id, peerID, func(ok bool) {
		if !ok {
			a.log.Warn("outgoing call did not start", "call_id", id)
		}
	})
	return nil
}

func (a *NativeAdapter) RequestEndCall(ctx context.Context, id uuid.UUID) error {
	a.clearIncoming(id)
	a.engine.EndCall(id)
	return nil
}

func (a *NativeAdapter) RequestSetMute(ctx context.Context, id uuid.UUID, muted bool) error {
	a.engine.SetMute(id, muted)
	return nil
}

func (a *NativeAdapter) ReportNewIncomingCall(ctx context.Context, id uuid.UUID, peerID, displayName string) error {
	if !a.engine.LineIdle() {
		return call.ErrLineBusy
	}
	status := a.permission.Status()
	if status == PermissionUndetermined {
		var err error
		status, err = a.permission.Request(ctx)
		if err != nil {
			return err
		}
	}
	if status != PermissionGranted {
		return call.ErrPermissionDenied
	}

	a.mu.Lock()
	a.presented[id] = struct{}{}
	a.mu.Unlock()

	if a.presence.InForeground() {
		a.ringer.Play()
	} else {
		a.notifier.ShowIncomingCall(id, displayName)
	}
	return nil
}

func (a *NativeAdapter) ReportCallEnded(id uuid.UUID, reason call.EndedReason) {
	a.clearIncoming(id)
	a.log.Info("call ended", "call_id", id, "reason", reason)
}

func (a *NativeAdapter) ReportOutgoingConnecting(id uuid.UUID) {
	a.log.Info("outgoing call connecting", "call_id", id)
}

func (a *NativeAdapter) ReportOutgoingConnected(id uuid.UUID) {
	a.log.Info("outgoing call connected", "call_id", id)
}

func (a *NativeAdapter) ReportIncomingConnected(id uuid.UUID) {
	a.clearIncoming(id)
	a.log.Info("incoming call connected", "call_id", id)
}

// clearIncoming dismisses id's presentation. Each presented offer is tracked
// individually; the ringer stops only when no presented offer remains.
func (a *NativeAdapter) clearIncoming(id uuid.UUID) {
	a.mu.Lock()
	_, match := a.presented[id]
	if match {
		delete(a.presented, id)
	}
	last := len(a.presented) == 0
	a.mu.Unlock()
	if !match {
		return
	}
	a.notifier.Dismiss(id)
	if last {
		a.ringer.Stop()
	}
}
