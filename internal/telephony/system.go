package telephony

import (
	"context"
	"log/slog"
	"sync"

	"voicecall-engine/internal/call"

	"github.com/google/uuid"
)

// SystemAdapter is the platform-integrated call interface: the OS call
// controller owns presentation and user actions, reached through a Bridge.
// User actions arrive back via the Perform* callbacks; the answer action's
// completion is held until the engine reports the incoming call connected,
// so the system UI shows "connecting" until media actually flows.
type SystemAdapter struct {
	engine Engine
	bridge Bridge
	log    *slog.Logger

	mu             sync.Mutex
	pendingAnswers map[uuid.UUID]func(ok bool)
}

func NewSystemAdapter(engine Engine, bridge Bridge, log *slog.Logger) *SystemAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &SystemAdapter{
		engine:         engine,
		bridge:         bridge,
		log:            log,
		pendingAnswers: map[uuid.UUID]func(bool){},
	}
}

func (a *SystemAdapter) RequestStartCall(ctx context.Context, id uuid.UUID, peerID string) error {
	return a.bridge.RequestStart(ctx, id, peerID)
}

// RequestEndCall returns the bridge error unhandled; the engine falls back to
// terminating local state directly when the controller refuses.
func (a *SystemAdapter) RequestEndCall(ctx context.Context, id uuid.UUID) error {
	return a.bridge.RequestEnd(ctx, id)
}

func (a *SystemAdapter) RequestSetMute(ctx context.Context, id uuid.UUID, muted bool) error {
	return a.bridge.RequestMute(ctx, id, muted)
}

func (a *SystemAdapter) ReportNewIncomingCall(ctx context.Context, id uuid.UUID, peerID, displayName string) error {
	return a.bridge.ReportIncoming(ctx, id, displayName)
}

func (a *SystemAdapter) ReportCallEnded(id uuid.UUID, reason call.EndedReason) {
	if done := a.takeAnswer(id); done != nil {
		done(false)
	}
	a.bridge.ReportEnded(id, reason)
}

func (a *SystemAdapter) ReportOutgoingConnecting(id uuid.UUID) {
	a.bridge.ReportConnecting(id)
}

func (a *SystemAdapter) ReportOutgoingConnected(id uuid.UUID) {
	a.bridge.ReportConnected(id)
}

func (a *SystemAdapter) ReportIncomingConnected(id uuid.UUID) {
	if done := a.takeAnswer(id); done != nil {
		done(true)
	}
	a.bridge.ReportConnected(id)
}

/* ---- controller action callbacks (invoked by the Bridge implementation) ---- */

// PerformStart executes a start action; done fulfills or fails the action.
func (a *SystemAdapter) PerformStart(id uuid.UUID, peerID string, done func(ok bool)) {
	a.engine.StartCall(id, peerID, done)
}

// PerformAnswer executes an answer action. done is parked until the engine
// reports the call connected; an answer failure releases it immediately.
func (a *SystemAdapter) PerformAnswer(id uuid.UUID, done func(ok bool)) {
	if done != nil {
		a.mu.Lock()
		a.pendingAnswers[id] = done
		a.mu.Unlock()
	}
	a.engine.AnswerCall(id, func(ok bool) {
		if ok {
			return
		}
		if parked := a.takeAnswer(id); parked != nil {
			parked(false)
		}
	})
}

// PerformEnd executes an end action.
func (a *SystemAdapter) PerformEnd(id uuid.UUID, done func(ok bool)) {
	a.engine.EndCall(id)
	if done != nil {
		done(true)
	}
}

// PerformMute executes a mute action.
func (a *SystemAdapter) PerformMute(id uuid.UUID, muted bool, done func(ok bool)) {
	a.engine.SetMute(id, muted)
	if done != nil {
		done(true)
	}
}

// Reset handles a controller restart: every parked action fails and the
// engine drops all call state.
func (a *SystemAdapter) Reset() {
	a.mu.Lock()
	parked := a.pendingAnswers
	a.pendingAnswers = map[uuid.UUID]func(bool){}
	a.mu.Unlock()
	for _, done := range parked {
		done(false)
	}
	a.log.Warn("call controller reset, dropping call state")
	a.engine.Clean()
}

func (a *SystemAdapter) takeAnswer(id uuid.UUID) func(bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	done, ok := a.pendingAnswers[id]
	if !ok {
		return nil
	}
	delete(a.pendingAnswers, id)
	return done
}
