package telephony

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"voicecall-engine/internal/call"
	"voicecall-engine/internal/directory"

	"github.com/google/uuid"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubEngine struct {
	mu       sync.Mutex
	idle     bool
	started  []uuid.UUID
	answered []uuid.UUID
	ended    []uuid.UUID
	muted    []bool
	cleans   int

	startOK  bool
	answerOK bool
}

func newStubEngine() *stubEngine {
	return &stubEngine{idle: true, startOK: true, answerOK: true}
}

func (e *stubEngine) StartCall(id uuid.UUID, peerID string, done func(bool)) {
	e.mu.Lock()
	e.started = append(e.started, id)
	ok := e.startOK
	e.mu.Unlock()
	if done != nil {
		done(ok)
	}
}

func (e *stubEngine) AnswerCall(id uuid.UUID, done func(bool)) {
	e.mu.Lock()
	e.answered = append(e.answered, id)
	ok := e.answerOK
	e.mu.Unlock()
	if done != nil {
		done(ok)
	}
}

func (e *stubEngine) EndCall(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended = append(e.ended, id)
}

func (e *stubEngine) SetMute(id uuid.UUID, muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = append(e.muted, muted)
}

func (e *stubEngine) Clean() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleans++
}

func (e *stubEngine) LineIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idle
}

func (e *stubEngine) PendingPeer(id uuid.UUID) (directory.User, bool) {
	return directory.User{}, false
}

func (e *stubEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.started)
}

type stubPermission struct {
	status    PermissionStatus
	requested PermissionStatus
	asks      int
}

func (p *stubPermission) Status() PermissionStatus { return p.status }

func (p *stubPermission) Request(ctx context.Context) (PermissionStatus, error) {
	p.asks++
	return p.requested, nil
}

type stubConn struct{ connected bool }

func (c *stubConn) IsConnected() bool { return c.connected }

type stubRinger struct {
	mu    sync.Mutex
	plays int
	stops int
}

func (r *stubRinger) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays++
}

func (r *stubRinger) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

type stubNotifier struct {
	mu        sync.Mutex
	shown     []uuid.UUID
	dismissed []uuid.UUID
}

func (n *stubNotifier) ShowIncomingCall(id uuid.UUID, displayName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, id)
}

func (n *stubNotifier) Dismiss(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dismissed = append(n.dismissed, id)
}

type backgroundPresence struct{}

func (backgroundPresence) InForeground() bool { return false }

type stubBridge struct {
	startErr error
	endErr   error

	mu         sync.Mutex
	starts     []uuid.UUID
	ends       []uuid.UUID
	incomings  []uuid.UUID
	connecting []uuid.UUID
	connected  []uuid.UUID
	endReasons []call.EndedReason
}

func (b *stubBridge) RequestStart(ctx context.Context, id uuid.UUID, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return b.startErr
	}
	b.starts = append(b.starts, id)
	return nil
}

func (b *stubBridge) RequestEnd(ctx context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.endErr != nil {
		return b.endErr
	}
	b.ends = append(b.ends, id)
	return nil
}

func (b *stubBridge) RequestMute(ctx context.Context, id uuid.UUID, muted bool) error {
	return nil
}

func (b *stubBridge) ReportIncoming(ctx context.Context, id uuid.UUID, displayName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.incomings = append(b.incomings, id)
	return nil
}

func (b *stubBridge) ReportConnecting(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connecting = append(b.connecting, id)
}

func (b *stubBridge) ReportConnected(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = append(b.connected, id)
}

func (b *stubBridge) ReportEnded(id uuid.UUID, reason call.EndedReason) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endReasons = append(b.endReasons, reason)
}

func newNative(engine Engine, conn *stubConn, perm *stubPermission, ringer *stubRinger, notifier *stubNotifier, presence Presence) *NativeAdapter {
	return NewNativeAdapter(engine, conn, perm, ringer, notifier, presence, discardLog)
}

/* ---------- NativeAdapter ---------- */

func TestNativeAdapter_StartGatesOnPreconditions(t *testing.T) {
	engine := newStubEngine()
	perm := &stubPermission{status: PermissionGranted, requested: PermissionGranted}
	conn := &stubConn{connected: true}
	a := newNative(engine, conn, perm, &stubRinger{}, &stubNotifier{}, nil)
	ctx := context.Background()

	engine.idle = false
	if err := a.RequestStartCall(ctx, uuid.New(), "peer"); !errors.Is(err, call.ErrLineBusy) {
		t.Fatalf("busy line: got %v, want ErrLineBusy", err)
	}

	engine.idle = true
	conn.connected = false
	if err := a.RequestStartCall(ctx, uuid.New(), "peer"); !errors.Is(err, call.ErrNetworkUnavailable) {
		t.Fatalf("no connectivity: got %v, want ErrNetworkUnavailable", err)
	}

	conn.connected = true
	perm.requested = PermissionDenied
	if err := a.RequestStartCall(ctx, uuid.New(), "peer"); !errors.Is(err, call.ErrPermissionDenied) {
		t.Fatalf("denied permission: got %v, want ErrPermissionDenied", err)
	}
	if engine.startCount() != 0 {
		t.Fatalf("engine started despite failed preconditions")
	}

	perm.requested = PermissionGranted
	id := uuid.New()
	if err := a.RequestStartCall(ctx, id, "peer"); err != nil {
		t.Fatalf("RequestStartCall: %v", err)
	}
	if engine.startCount() != 1 || engine.started[0] != id {
		t.Fatalf("engine not asked to start %v", id)
	}
}

func TestNativeAdapter_IncomingReportGatesAndPresents(t *testing.T) {
	engine := newStubEngine()
	perm := &stubPermission{status: PermissionGranted}
	ringer := &stubRinger{}
	notifier := &stubNotifier{}
	a := newNative(engine, &stubConn{connected: true}, perm, ringer, notifier, nil)
	ctx := context.Background()

	engine.idle = false
	if err := a.ReportNewIncomingCall(ctx, uuid.New(), "peer", "Ada"); !errors.Is(err, call.ErrLineBusy) {
		t.Fatalf("busy line: got %v, want ErrLineBusy", err)
	}

	engine.idle = true
	perm.status = PermissionDenied
	if err := a.ReportNewIncomingCall(ctx, uuid.New(), "peer", "Ada"); !errors.Is(err, call.ErrPermissionDenied) {
		t.Fatalf("denied permission: got %v, want ErrPermissionDenied", err)
	}

	// Undetermined permission prompts once and proceeds when granted.
	perm.status = PermissionUndetermined
	perm.requested = PermissionGranted
	id := uuid.New()
	if err := a.ReportNewIncomingCall(ctx, id, "peer", "Ada"); err != nil {
		t.Fatalf("ReportNewIncomingCall: %v", err)
	}
	if perm.asks != 1 {
		t.Fatalf("permission prompted %d times, want 1", perm.asks)
	}
	if ringer.plays != 1 {
		t.Fatalf("foreground incoming call must ring in-app")
	}

	a.ReportCallEnded(id, call.EndedReasonRemoteEnded)
	if ringer.stops != 1 || len(notifier.dismissed) != 1 {
		t.Fatalf("ended presented call must stop ringing and dismiss")
	}
}

func TestNativeAdapter_BackgroundIncomingNotifies(t *testing.T) {
	engine := newStubEngine()
	ringer := &stubRinger{}
	notifier := &stubNotifier{}
	a := newNative(engine, &stubConn{connected: true}, &stubPermission{status: PermissionGranted}, ringer, notifier, backgroundPresence{})

	id := uuid.New()
	if err := a.ReportNewIncomingCall(context.Background(), id, "peer", "Ada"); err != nil {
		t.Fatalf("ReportNewIncomingCall: %v", err)
	}
	if ringer.plays != 0 {
		t.Fatalf("background incoming call must not ring in-app")
	}
	if len(notifier.shown) != 1 || notifier.shown[0] != id {
		t.Fatalf("background incoming call must post a notification")
	}
}

func TestNativeAdapter_EndedForOtherCallKeepsPresentation(t *testing.T) {
	engine := newStubEngine()
	ringer := &stubRinger{}
	notifier := &stubNotifier{}
	a := newNative(engine, &stubConn{connected: true}, &stubPermission{status: PermissionGranted}, ringer, notifier, nil)

	id := uuid.New()
	if err := a.ReportNewIncomingCall(context.Background(), id, "peer", "Ada"); err != nil {
		t.Fatalf("ReportNewIncomingCall: %v", err)
	}
	a.ReportCallEnded(uuid.New(), call.EndedReasonFailed)
	if ringer.stops != 0 || len(notifier.dismissed) != 0 {
		t.Fatalf("ending an unrelated call must not dismiss the presented one")
	}
}

func TestNativeAdapter_QueuedOffersPresentedIndependently(t *testing.T) {
	engine := newStubEngine()
	ringer := &stubRinger{}
	notifier := &stubNotifier{}
	a := newNative(engine, &stubConn{connected: true}, &stubPermission{status: PermissionGranted}, ringer, notifier, nil)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	if err := a.ReportNewIncomingCall(ctx, first, "peer-1", "Ada"); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if err := a.ReportNewIncomingCall(ctx, second, "peer-2", "Grace"); err != nil {
		t.Fatalf("second offer: %v", err)
	}

	a.ReportCallEnded(first, call.EndedReasonRemoteEnded)
	if len(notifier.dismissed) != 1 || notifier.dismissed[0] != first {
		t.Fatalf("first offer's presentation not dismissed: %v", notifier.dismissed)
	}
	if ringer.stops != 0 {
		t.Fatalf("ringer stopped while an offer is still presented")
	}

	a.ReportCallEnded(second, call.EndedReasonRemoteEnded)
	if len(notifier.dismissed) != 2 || notifier.dismissed[1] != second {
		t.Fatalf("second offer's presentation not dismissed: %v", notifier.dismissed)
	}
	if ringer.stops != 1 {
		t.Fatalf("ringer must stop once the last presented offer clears")
	}
}

/* ---------- SystemAdapter ---------- */

func TestSystemAdapter_AnswerActionHeldUntilConnected(t *testing.T) {
	engine := newStubEngine()
	bridge := &stubBridge{}
	a := NewSystemAdapter(engine, bridge, discardLog)

	id := uuid.New()
	results := make(chan bool, 1)
	a.PerformAnswer(id, func(ok bool) { results <- ok })

	select {
	case <-results:
		t.Fatalf("answer action completed before the connected report")
	default:
	}

	a.ReportIncomingConnected(id)
	select {
	case ok := <-results:
		if !ok {
			t.Fatalf("connected report must fulfill the answer action")
		}
	default:
		t.Fatalf("connected report did not release the answer action")
	}
	if len(bridge.connected) != 1 {
		t.Fatalf("connected report must reach the bridge")
	}

	// A second connected report finds nothing parked.
	a.ReportIncomingConnected(id)
}

func TestSystemAdapter_AnswerFailureReleasesAction(t *testing.T) {
	engine := newStubEngine()
	engine.answerOK = false
	a := NewSystemAdapter(engine, &stubBridge{}, discardLog)

	results := make(chan bool, 1)
	a.PerformAnswer(uuid.New(), func(ok bool) { results <- ok })
	select {
	case ok := <-results:
		if ok {
			t.Fatalf("failed answer must fail the action")
		}
	default:
		t.Fatalf("failed answer left the action parked")
	}
}

func TestSystemAdapter_EndedReportFailsParkedAnswer(t *testing.T) {
	engine := newStubEngine()
	engine.answerOK = true
	bridge := &stubBridge{}
	a := NewSystemAdapter(engine, bridge, discardLog)

	id := uuid.New()
	results := make(chan bool, 1)
	a.PerformAnswer(id, func(ok bool) { results <- ok })

	a.ReportCallEnded(id, call.EndedReasonFailed)
	select {
	case ok := <-results:
		if ok {
			t.Fatalf("ended report must fail the parked answer")
		}
	default:
		t.Fatalf("ended report left the answer parked")
	}
	if len(bridge.endReasons) != 1 || bridge.endReasons[0] != call.EndedReasonFailed {
		t.Fatalf("ended reason not relayed to the bridge")
	}
}

func TestSystemAdapter_ResetFailsActionsAndCleansEngine(t *testing.T) {
	engine := newStubEngine()
	a := NewSystemAdapter(engine, &stubBridge{}, discardLog)

	results := make(chan bool, 1)
	a.PerformAnswer(uuid.New(), func(ok bool) { results <- ok })
	a.Reset()

	select {
	case ok := <-results:
		if ok {
			t.Fatalf("reset must fail parked actions")
		}
	default:
		t.Fatalf("reset left actions parked")
	}
	if engine.cleans != 1 {
		t.Fatalf("reset must clean engine state")
	}
}

func TestSystemAdapter_RequestsDelegateToBridge(t *testing.T) {
	engine := newStubEngine()
	bridge := &stubBridge{}
	a := NewSystemAdapter(engine, bridge, discardLog)
	ctx := context.Background()

	id := uuid.New()
	if err := a.RequestStartCall(ctx, id, "peer"); err != nil {
		t.Fatalf("RequestStartCall: %v", err)
	}
	if len(bridge.starts) != 1 {
		t.Fatalf("start not delegated to bridge")
	}

	bridge.endErr = errors.New("controller unavailable")
	if err := a.RequestEndCall(ctx, id); err == nil {
		t.Fatalf("bridge end failure must propagate so the engine can fall back")
	}
	if len(engine.ended) != 0 {
		t.Fatalf("adapter must not end engine state itself; the engine owns the fallback")
	}
}

/* ---------- Select ---------- */

func TestSelect_PrefersSystemWithBridgeAndPermission(t *testing.T) {
	engine := newStubEngine()
	system := NewSystemAdapter(engine, &stubBridge{}, discardLog)
	native := newNative(engine, &stubConn{connected: true}, &stubPermission{}, &stubRinger{}, &stubNotifier{}, nil)

	if got := Select(system, native, PermissionGranted, true); got != call.Adapter(system) {
		t.Fatalf("granted+bridge must select the system adapter")
	}
	if got := Select(system, native, PermissionUndetermined, true); got != call.Adapter(system) {
		t.Fatalf("undetermined+bridge must select the system adapter")
	}
	if got := Select(system, native, PermissionDenied, true); got != call.Adapter(native) {
		t.Fatalf("denied permission must fall back to the native adapter")
	}
	if got := Select(system, native, PermissionGranted, false); got != call.Adapter(native) {
		t.Fatalf("no bridge must fall back to the native adapter")
	}
	if got := Select(nil, native, PermissionGranted, true); got != call.Adapter(native) {
		t.Fatalf("nil system adapter must fall back to the native adapter")
	}
}
