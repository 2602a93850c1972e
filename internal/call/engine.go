package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicecall-engine/internal/diagnostics"
	"voicecall-engine/internal/directory"
	"voicecall-engine/internal/history"
	"voicecall-engine/internal/media"
	"voicecall-engine/internal/signaling"

	"github.com/google/uuid"
)

// Config tunes the engine.
type Config struct {
	// SelfID is the local account's user id.
	SelfID string

	// UnansweredTimeout is how long an outgoing call rings before cancel.
	UnansweredTimeout time.Duration

	// DependencyTimeout bounds directory lookups and history writes.
	DependencyTimeout time.Duration

	// ReportTimeout bounds the incoming-call telephony report.
	ReportTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.UnansweredTimeout <= 0 {
		out.UnansweredTimeout = 60 * time.Second
	}
	if out.DependencyTimeout <= 0 {
		out.DependencyTimeout = 5 * time.Second
	}
	if out.ReportTimeout <= 0 {
		out.ReportTimeout = 10 * time.Second
	}
	return out
}

// Deps are the engine's collaborators. Media, Adapter, Directory, Sender,
// Connectivity and History are required; the rest default to no-ops.
type Deps struct {
	Registry     *Registry
	Media        media.Session
	Adapter      AdapterProvider
	Directory    directory.Directory
	Sender       signaling.Sender
	Connectivity signaling.Connectivity
	History      history.Recorder
	Diagnostics  *diagnostics.Service
	Alerter      Alerter
	Ringer       Ringer
	Haptics      Haptics
	Logger       *slog.Logger
}

// Engine drives calls through their lifecycle. One goroutine (Run) owns the
// registry and the media session; every inbound event (signaling messages,
// telephony callbacks, media callbacks, timer fires) is posted onto a single
// event channel, so handling of one event completes before the next begins.
// Asynchronous completions are re-posted with a stale-completion guard: the
// call in question must still be the active one before effects apply.
type Engine struct {
	cfg Config
	log *slog.Logger

	registry     *Registry
	media        media.Session
	adapter      AdapterProvider
	directory    directory.Directory
	sender       signaling.Sender
	connectivity signaling.Connectivity
	history      history.Recorder
	diag         *diagnostics.Service
	alerter      Alerter
	ringer       Ringer
	haptics      Haptics

	events chan func()
	done   chan struct{}
	clock  func() time.Time

	// unansweredTimer is armed on start-outgoing and disarmed on answer or any
	// terminal transition. timerGen invalidates fires that were already posted
	// when the disarm happened; both are touched only from the loop.
	unansweredTimer *time.Timer
	timerGen        uint64
}

func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if cfg.SelfID == "" {
		return nil, errors.New("call: self id is required")
	}
	if deps.Media == nil || deps.Adapter == nil || deps.Directory == nil ||
		deps.Sender == nil || deps.Connectivity == nil || deps.History == nil {
		return nil, errors.New("call: media, adapter, directory, sender, connectivity and history are required")
	}
	if deps.Registry == nil {
		deps.Registry = NewRegistry(0)
	}
	if deps.Alerter == nil {
		deps.Alerter = nopAlerter{}
	}
	if deps.Ringer == nil {
		deps.Ringer = nopRinger{}
	}
	if deps.Haptics == nil {
		deps.Haptics = nopHaptics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Engine{
		cfg:          cfg.withDefaults(),
		log:          deps.Logger,
		registry:     deps.Registry,
		media:        deps.Media,
		adapter:      deps.Adapter,
		directory:    deps.Directory,
		sender:       deps.Sender,
		connectivity: deps.Connectivity,
		history:      deps.History,
		diag:         deps.Diagnostics,
		alerter:      deps.Alerter,
		ringer:       deps.Ringer,
		haptics:      deps.Haptics,
		events:       make(chan func(), 128),
		done:         make(chan struct{}),
		clock:        time.Now,
	}, nil
}

// Run owns the serialized loop until ctx is canceled, then tears all call
// state down.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	e.log.Info("call engine started", "self_id", e.cfg.SelfID)
	for {
		select {
		case <-ctx.Done():
			e.clean()
			e.log.Info("call engine stopped")
			return
		case fn := <-e.events:
			fn()
		}
	}
}

func (e *Engine) post(fn func()) {
	select {
	case e.events <- fn:
	case <-e.done:
	}
}

/* ===================== USER INTENTS ===================== */

// RequestStartCall places an outgoing call to peerID through the telephony
// adapter, which validates connectivity, line idleness and permission.
func (e *Engine) RequestStartCall(ctx context.Context, peerID string) error {
	if strings.TrimSpace(peerID) == "" {
		return ErrInvalidHandle
	}
	id := uuid.New()
	if err := e.adapter().RequestStartCall(ctx, id, peerID); err != nil {
		e.alertOrReport(err)
		return err
	}
	return nil
}

// RequestAnswerCall answers the oldest pending offer.
func (e *Engine) RequestAnswerCall(ctx context.Context) error {
	id, ok := e.registry.FirstPending()
	if !ok {
		return ErrInvalidCallID
	}
	e.AnswerCall(id, nil)
	return nil
}

// RequestEndCall ends the active call, or declines the oldest pending offer
// when no call is active. Local state always terminates, even if the adapter
// reports an error.
func (e *Engine) RequestEndCall(ctx context.Context) error {
	var id uuid.UUID
	if active := e.registry.Active(); active != nil {
		id = active.ID
	} else if pending, ok := e.registry.FirstPending(); ok {
		id = pending
	} else {
		return ErrInvalidCallID
	}
	if err := e.adapter().RequestEndCall(ctx, id); err != nil {
		e.reportDiag("request_end_call", id, err.Error())
		e.EndCall(id)
	}
	return nil
}

// RequestSetMute toggles the active call's mute.
func (e *Engine) RequestSetMute(ctx context.Context, muted bool) error {
	active := e.registry.Active()
	if active == nil {
		return ErrInvalidCallID
	}
	if err := e.adapter().RequestSetMute(ctx, active.ID, muted); err != nil {
		e.reportDiag("request_set_mute", active.ID, err.Error())
		return err
	}
	return nil
}

/* ===================== ADAPTER CALLBACKS ===================== */

// StartCall performs the start-outgoing transition. Called by the telephony
// adapter after its preconditions passed; done reports whether the offer went
// out (the platform-integrated adapter uses it to fulfill or fail its action).
func (e *Engine) StartCall(id uuid.UUID, peerID string, done func(ok bool)) {
	e.post(func() { e.startCall(id, peerID, done) })
}

// AnswerCall promotes a pending offer to the active call.
func (e *Engine) AnswerCall(id uuid.UUID, done func(ok bool)) {
	e.post(func() { e.answerCall(id, done) })
}

// EndCall terminates the active call or declines a pending offer. A stale id
// degrades to best-effort local cleanup.
func (e *Engine) EndCall(id uuid.UUID) {
	e.post(func() { e.endCall(id) })
}

// SetMute toggles media mute if id is the active call.
func (e *Engine) SetMute(id uuid.UUID, muted bool) {
	e.post(func() {
		active := e.registry.Active()
		if active == nil || active.ID != id {
			return
		}
		e.media.SetMuted(muted)
	})
}

// Clean tears down all call state: media closed, registry cleared, timer
// disarmed. Used by adapters on platform resets.
func (e *Engine) Clean() {
	e.post(func() { e.clean() })
}

// LineIdle reports whether no call is active.
func (e *Engine) LineIdle() bool { return e.registry.LineIdle() }

// PendingPeer returns the peer of a queued offer.
func (e *Engine) PendingPeer(id uuid.UUID) (directory.User, bool) {
	offer, ok := e.registry.Pending(id)
	if !ok {
		return directory.User{}, false
	}
	return offer.Call.Peer, true
}

/* ===================== SIGNALING HANDLERS ===================== */

// HandleOffer implements signaling.Handler.
func (e *Engine) HandleOffer(msg signaling.Message) {
	e.post(func() { e.handleOffer(msg) })
}

// HandleCandidate implements signaling.Handler. Candidates are applied only
// when they correlate to the active call; late and duplicate candidates for
// finished calls are silently ignored.
func (e *Engine) HandleCandidate(msg signaling.Message) {
	e.post(func() {
		active := e.registry.Active()
		if active == nil || msg.QuoteMessageID != active.MessageID() {
			return
		}
		candidates, err := signaling.DecodeCandidates(msg.Data)
		if err != nil {
			return
		}
		e.media.AddCandidates(candidates)
	})
}

// HandleStatus implements signaling.Handler: answers and remote terminations.
func (e *Engine) HandleStatus(msg signaling.Message) {
	e.post(func() { e.handleStatus(msg) })
}

/* ===================== MEDIA OBSERVER ===================== */

// OnLocalCandidates implements media.Observer.
func (e *Engine) OnLocalCandidates(candidates []media.Candidate) {
	e.post(func() {
		active := e.registry.Active()
		if active == nil {
			return
		}
		payload, err := signaling.EncodeCandidates(candidates)
		if err != nil {
			e.reportDiag("candidate_serialization", active.ID, err.Error())
			return
		}
		e.sender.Send(signaling.Message{
			MessageID:      uuid.NewString(),
			QuoteMessageID: active.MessageID(),
			SenderID:       e.cfg.SelfID,
			RecipientID:    active.Peer.UserID,
			Category:       signaling.CategoryICECandidate,
			Data:           payload,
		}, active.Peer.UserID)
	})
}

// OnConnected implements media.Observer.
func (e *Engine) OnConnected() {
	e.post(func() {
		active := e.registry.Active()
		if active == nil {
			return
		}
		if !active.markConnected(e.clock()) {
			return
		}
		e.setState(active, StateConnected)
		if active.IsOutgoing() {
			e.adapter().ReportOutgoingConnected(active.ID)
		} else {
			e.adapter().ReportIncomingConnected(active.ID)
		}
		e.haptics.CallConnected()
		e.log.Info("call connected", "call_id", active.MessageID(), "peer_id", active.Peer.UserID)
	})
}

// OnFailed implements media.Observer.
func (e *Engine) OnFailed(err error) {
	e.post(func() {
		active := e.registry.Active()
		if active == nil {
			return
		}
		id := active.ID
		cause := error(ErrMediaSession)
		if err != nil {
			cause = fmt.Errorf("%w: %v", ErrMediaSession, err)
		}
		e.failActiveCall(true, "media_session", cause)
		e.adapter().ReportCallEnded(id, EndedReasonFailed)
	})
}

/* ===================== SNAPSHOT ===================== */

// Snapshot describes the engine's observable state for read surfaces.
type Snapshot struct {
	CallID        string     `json:"call_id"`
	PeerID        string     `json:"peer_id"`
	PeerName      string     `json:"peer_name"`
	Direction     Direction  `json:"direction"`
	State         State      `json:"state"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
	PendingOffers int        `json:"pending_offers"`
}

// ActiveSnapshot reads the active call on the serialized loop. ok is false
// when the line is idle or ctx expires before the loop gets to the read.
func (e *Engine) ActiveSnapshot(ctx context.Context) (Snapshot, bool) {
	type result struct {
		snap Snapshot
		ok   bool
	}
	ch := make(chan result, 1)
	e.post(func() {
		active := e.registry.Active()
		if active == nil {
			ch <- result{Snapshot{PendingOffers: e.registry.PendingCount()}, false}
			return
		}
		ch <- result{Snapshot{
			CallID:        active.MessageID(),
			PeerID:        active.Peer.UserID,
			PeerName:      active.Peer.FullName,
			Direction:     active.Direction,
			State:         active.State(),
			ConnectedAt:   active.ConnectedAt,
			PendingOffers: e.registry.PendingCount(),
		}, true}
	})
	select {
	case r := <-ch:
		return r.snap, r.ok
	case <-ctx.Done():
		return Snapshot{}, false
	}
}

/* ===================== LOOP-SIDE TRANSITIONS ===================== */

func (e *Engine) startCall(id uuid.UUID, peerID string, done func(bool)) {
	finish := func(ok bool) {
		if done != nil {
			done(ok)
		}
	}

	if !e.connectivity.IsConnected() {
		e.alertOrReport(ErrNetworkUnavailable)
		finish(false)
		return
	}

	lookupCtx, cancel := context.WithTimeout(context.Background(), e.cfg.DependencyTimeout)
	peer, err := e.directory.GetUser(lookupCtx, peerID)
	cancel()
	if err != nil {
		e.alertOrReport(fmt.Errorf("%w: %s", ErrInvalidHandle, peerID))
		finish(false)
		return
	}

	c := NewCall(id, e.cfg.SelfID, peer, DirectionOutgoing)
	if err := e.registry.SetActive(c); err != nil {
		e.alertOrReport(err)
		finish(false)
		return
	}
	e.armUnansweredTimer(id)

	go func() {
		desc, err := e.media.CreateOffer(context.Background())
		e.post(func() {
			if e.stale(id) {
				finish(false)
				return
			}
			if err != nil {
				// Remote never received a valid offer; fail locally only.
				e.failActiveCall(false, "sdp_construction", fmt.Errorf("%w: %v", ErrMediaSession, err))
				finish(false)
				return
			}
			payload, err := signaling.EncodeSessionDescription(desc)
			if err != nil {
				e.failActiveCall(false, "sdp_serialization", err)
				finish(false)
				return
			}
			e.sender.Send(signaling.Message{
				MessageID:   c.MessageID(),
				SenderID:    e.cfg.SelfID,
				RecipientID: peer.UserID,
				Category:    signaling.CategoryOffer,
				Data:        payload,
			}, peer.UserID)
			e.log.Info("outgoing call started", "call_id", c.MessageID(), "peer_id", peer.UserID)
			finish(true)
		})
	}()
}

func (e *Engine) handleOffer(msg signaling.Message) {
	c, desc, err := e.parseOffer(msg)
	if err != nil {
		e.reportDiag("inbound_offer", uuid.Nil, err.Error())
		e.refuseOffer(msg, signaling.CategoryFailed)
		return
	}
	id := c.ID
	if err := e.registry.AddPending(PendingOffer{Call: c, RemoteDescription: desc}); err != nil {
		if errors.Is(err, ErrLineBusy) {
			e.refuseOffer(msg, signaling.CategoryBusy)
		}
		// Duplicate call id: the offer is already tracked, drop silently.
		return
	}
	e.log.Info("incoming call offer", "call_id", c.MessageID(), "peer_id", c.Peer.UserID)

	// The adapter report (ringing UI, permission prompt) can take a while;
	// continuation-passed so the loop never blocks on it.
	go func() {
		reportCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ReportTimeout)
		reportErr := e.adapter().ReportNewIncomingCall(reportCtx, id, c.Peer.UserID, c.Peer.FullName)
		cancel()
		e.post(func() {
			if _, ok := e.registry.Pending(id); !ok {
				// Answered or terminated while the report was in flight.
				return
			}
			if reportErr == nil {
				return
			}
			e.registry.TakePending(id)
			switch {
			case errors.Is(reportErr, ErrLineBusy):
				e.refuseOffer(msg, signaling.CategoryBusy)
			case errors.Is(reportErr, ErrPermissionDenied):
				e.refuseOffer(msg, signaling.CategoryDecline)
				e.alerter.AlertSettings(ErrPermissionDenied)
			default:
				e.reportDiag("report_incoming_call", id, reportErr.Error())
				e.refuseOffer(msg, signaling.CategoryFailed)
			}
		})
	}()
}

// parseOffer validates an inbound OFFER into a call plus its remote
// description. Failures wrap the taxonomy sentinel naming what was wrong, so
// diagnostics and callers can classify them with errors.Is.
func (e *Engine) parseOffer(msg signaling.Message) (*Call, media.SessionDescription, error) {
	id, err := uuid.Parse(msg.MessageID)
	if err != nil {
		return nil, media.SessionDescription{}, fmt.Errorf("%w: %q", ErrInvalidCallID, msg.MessageID)
	}
	desc, err := signaling.DecodeSessionDescription(msg.Data)
	if err != nil {
		return nil, media.SessionDescription{}, fmt.Errorf("%w: %v", ErrInvalidSessionDescription, err)
	}

	lookupCtx, cancel := context.WithTimeout(context.Background(), e.cfg.DependencyTimeout)
	peer, err := e.directory.GetUser(lookupCtx, msg.SenderID)
	cancel()
	if err != nil {
		return nil, media.SessionDescription{}, fmt.Errorf("%w: %s", ErrUnknownPeer, msg.SenderID)
	}
	return NewCall(id, e.cfg.SelfID, peer, DirectionIncoming), desc, nil
}

func (e *Engine) answerCall(id uuid.UUID, done func(bool)) {
	finish := func(ok bool) {
		if done != nil {
			done(ok)
		}
	}

	// Answering while another call is active is a line-busy condition the
	// adapter should have caught; never disturb the established call.
	if active := e.registry.Active(); active != nil {
		finish(false)
		return
	}
	offer, err := e.registry.Promote(id)
	if err != nil {
		finish(false)
		return
	}
	c := offer.Call
	e.ringer.Stop()
	e.log.Info("answering call", "call_id", c.MessageID(), "peer_id", c.Peer.UserID)

	go func() {
		applyErr := e.media.SetRemoteDescription(context.Background(), offer.RemoteDescription)
		e.post(func() {
			if e.stale(id) {
				finish(false)
				return
			}
			if applyErr != nil {
				e.failActiveCall(true, "set_remote_offer", fmt.Errorf("%w: %v", ErrMediaSession, applyErr))
				finish(false)
				return
			}
			go func() {
				desc, answerErr := e.media.CreateAnswer(context.Background())
				e.post(func() {
					if e.stale(id) {
						finish(false)
						return
					}
					if answerErr != nil {
						e.failActiveCall(true, "answer_construction", fmt.Errorf("%w: %v", ErrMediaSession, answerErr))
						finish(false)
						return
					}
					payload, encErr := signaling.EncodeSessionDescription(desc)
					if encErr != nil {
						e.failActiveCall(true, "answer_serialization", encErr)
						finish(false)
						return
					}
					e.sender.Send(signaling.Message{
						MessageID:      uuid.NewString(),
						QuoteMessageID: c.MessageID(),
						SenderID:       e.cfg.SelfID,
						RecipientID:    c.Peer.UserID,
						Category:       signaling.CategoryAnswer,
						Data:           payload,
					}, c.Peer.UserID)
					e.setState(c, StateConnecting)
					finish(true)
				})
			}()
		})
	}()
}

func (e *Engine) handleStatus(msg signaling.Message) {
	id, err := uuid.Parse(msg.QuoteMessageID)
	if err != nil {
		return
	}

	active := e.registry.Active()
	if active != nil && active.ID == id &&
		active.IsOutgoing() && active.ConnectedAt == nil &&
		msg.Category == signaling.CategoryAnswer {
		e.handleAnswer(active, msg)
		return
	}

	if !msg.Category.IsTermination() {
		return
	}

	if active != nil && active.ID == id {
		e.setState(active, StateTerminating)
		e.recordTerminal(active, msg.Category, false)
		e.adapter().ReportCallEnded(id, EndedReasonRemoteEnded)
		e.log.Info("call ended by remote", "call_id", active.MessageID(), "category", msg.Category)
		e.clean()
		return
	}
	if offer, ok := e.registry.TakePending(id); ok {
		e.recordTerminal(offer.Call, msg.Category, false)
		e.adapter().ReportCallEnded(id, EndedReasonRemoteEnded)
		if e.registry.PendingCount() == 0 {
			e.ringer.Stop()
		}
		e.log.Info("pending offer ended by remote", "call_id", offer.Call.MessageID(), "category", msg.Category)
	}
	// A termination for a call that is neither active nor pending is a
	// duplicate or long-gone call: no-op.
}

func (e *Engine) handleAnswer(active *Call, msg signaling.Message) {
	desc, err := signaling.DecodeSessionDescription(msg.Data)
	if err != nil {
		id := active.ID
		e.failActiveCall(true, "answer_decode", fmt.Errorf("%w: %v", ErrInvalidSessionDescription, err))
		e.adapter().ReportCallEnded(id, EndedReasonFailed)
		return
	}

	e.disarmUnansweredTimer()
	e.adapter().ReportOutgoingConnecting(active.ID)
	e.ringer.Stop()
	e.setState(active, StateConnecting)

	id := active.ID
	go func() {
		applyErr := e.media.SetRemoteDescription(context.Background(), desc)
		e.post(func() {
			if e.stale(id) {
				return
			}
			if applyErr != nil {
				e.failActiveCall(true, "set_remote_answer", fmt.Errorf("%w: %v", ErrMediaSession, applyErr))
				e.adapter().ReportCallEnded(id, EndedReasonFailed)
			}
		})
	}()
}

func (e *Engine) endCall(id uuid.UUID) {
	if active := e.registry.Active(); active != nil && active.ID == id {
		e.disarmUnansweredTimer()
		e.setState(active, StateTerminating)
		e.ringer.Stop()
		e.media.Close()

		// Classify the outbound message by connection history.
		category := signaling.CategoryDecline
		if active.ConnectedAt != nil {
			category = signaling.CategoryEnd
		} else if active.IsOutgoing() {
			category = signaling.CategoryCancel
		}
		e.sendTermination(active, category)
		e.recordTerminal(active, category, true)
		e.registry.ClearActive(id)
		e.media.SetMuted(false)
		e.log.Info("call ended locally", "call_id", active.MessageID(), "category", category)
		return
	}

	if offer, ok := e.registry.TakePending(id); ok {
		e.sendTermination(offer.Call, signaling.CategoryDecline)
		e.recordTerminal(offer.Call, signaling.CategoryDecline, true)
		if e.registry.PendingCount() == 0 && e.registry.LineIdle() {
			e.ringer.Stop()
		}
		e.log.Info("pending offer declined", "call_id", offer.Call.MessageID())
		return
	}

	// Stale id: best-effort local cleanup only.
	e.media.SetMuted(false)
}

func (e *Engine) unansweredTimeout(gen uint64, id uuid.UUID) {
	if gen != e.timerGen {
		return
	}
	e.unansweredTimer = nil

	active := e.registry.Active()
	if active == nil || active.ID != id || active.ConnectedAt != nil || !active.IsOutgoing() {
		return
	}
	e.setState(active, StateTerminating)
	e.ringer.Stop()
	e.media.Close()
	e.media.SetMuted(false)
	e.sendTermination(active, signaling.CategoryCancel)
	e.recordTerminal(active, signaling.CategoryCancel, false)
	e.registry.ClearActive(id)
	e.adapter().ReportCallEnded(id, EndedReasonUnanswered)
	e.log.Info("outgoing call unanswered", "call_id", active.MessageID())
}

/* ===================== HELPERS ===================== */

// stale reports whether id no longer occupies the active slot. Every posted
// completion of an asynchronous operation checks this before applying effects.
func (e *Engine) stale(id uuid.UUID) bool {
	active := e.registry.Active()
	return active == nil || active.ID != id
}

func (e *Engine) armUnansweredTimer(id uuid.UUID) {
	e.disarmUnansweredTimer()
	gen := e.timerGen
	e.unansweredTimer = time.AfterFunc(e.cfg.UnansweredTimeout, func() {
		e.post(func() { e.unansweredTimeout(gen, id) })
	})
}

// disarmUnansweredTimer runs on the loop, so a fire that was already posted
// is invalidated by the generation bump before it can execute.
func (e *Engine) disarmUnansweredTimer() {
	e.timerGen++
	if e.unansweredTimer != nil {
		e.unansweredTimer.Stop()
		e.unansweredTimer = nil
	}
}

// failActiveCall handles any failure after a call went active: optional FAILED
// message to the remote, terminal record, diagnostics, full cleanup.
func (e *Engine) failActiveCall(notifyRemote bool, action string, cause error) {
	active := e.registry.Active()
	if active == nil {
		return
	}
	e.setState(active, StateTerminating)
	if notifyRemote {
		e.sendTermination(active, signaling.CategoryFailed)
	}
	e.recordTerminal(active, signaling.CategoryFailed, false)
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	e.reportDiag(action, active.ID, detail)
	e.log.Warn("call failed", "call_id", active.MessageID(), "action", action, "err", cause)
	e.clean()
}

// clean tears down all call state. Partial cleanup is not an acceptable end
// state, so everything resets here regardless of what triggered it.
func (e *Engine) clean() {
	e.media.Close()
	e.media.SetMuted(false)
	e.registry.Clear()
	e.ringer.Stop()
	e.disarmUnansweredTimer()
}

// refuseOffer replies to an inbound offer with a termination category and
// records the refusal, so the conversation shows the missed/declined call.
func (e *Engine) refuseOffer(msg signaling.Message, category signaling.Category) {
	e.sender.Send(signaling.Message{
		MessageID:      uuid.NewString(),
		QuoteMessageID: msg.MessageID,
		SenderID:       e.cfg.SelfID,
		RecipientID:    msg.SenderID,
		Category:       category,
	}, msg.SenderID)

	if msg.SenderID == "" {
		return
	}
	rec := history.BuildRecord(history.BuildInput{
		CallID:         msg.MessageID,
		ConversationID: ConversationID(e.cfg.SelfID, msg.SenderID),
		RaisedBy:       msg.SenderID,
		IsOutgoing:     false,
		Category:       category,
	}, e.clock())
	e.insertRecord(rec)
	e.log.Info("incoming offer refused", "call_id", msg.MessageID, "category", category)
}

func (e *Engine) sendTermination(c *Call, category signaling.Category) {
	e.sender.Send(signaling.Message{
		MessageID:      uuid.NewString(),
		QuoteMessageID: c.MessageID(),
		SenderID:       e.cfg.SelfID,
		RecipientID:    c.Peer.UserID,
		Category:       category,
	}, c.Peer.UserID)
}

func (e *Engine) recordTerminal(c *Call, category signaling.Category, userInitiated bool) {
	rec := history.BuildRecord(history.BuildInput{
		CallID:         c.MessageID(),
		ConversationID: c.ConversationID,
		RaisedBy:       c.RaisedBy,
		IsOutgoing:     c.IsOutgoing(),
		ConnectedAt:    c.ConnectedAt,
		Category:       category,
		UserInitiated:  userInitiated,
	}, e.clock())
	e.insertRecord(rec)
}

func (e *Engine) insertRecord(rec history.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DependencyTimeout)
	defer cancel()
	if err := e.history.InsertTerminalRecord(ctx, rec); err != nil {
		e.log.Error("terminal record insert failed", "err", err, "call_id", rec.CallID)
	}
}

func (e *Engine) setState(c *Call, next State) {
	if !c.state.CanTransition(next) {
		e.log.Warn("unexpected state transition", "call_id", c.MessageID(), "from", c.state, "to", next)
	}
	c.state = next
}

// alertOrReport surfaces curated errors to the user and sends the rest to
// diagnostics.
func (e *Engine) alertOrReport(err error) {
	if err == nil {
		return
	}
	if !Alertable(err) {
		e.reportDiag("call_action", uuid.Nil, err.Error())
		return
	}
	if errors.Is(err, ErrPermissionDenied) {
		e.alerter.AlertSettings(err)
		return
	}
	e.alerter.Alert(err)
}

func (e *Engine) reportDiag(action string, id uuid.UUID, detail string) {
	if e.diag == nil {
		return
	}
	callID := ""
	if id != uuid.Nil {
		callID = strings.ToLower(id.String())
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DependencyTimeout)
	defer cancel()
	if err := e.diag.ReportError(ctx, action, callID, detail); err != nil {
		e.log.Warn("diagnostics report failed", "err", err, "action", action)
	}
}
