package signaling

import (
	"context"
	"log/slog"
)

// Handler consumes classified inbound signaling messages. The call engine is
// the only production implementation.
type Handler interface {
	// HandleOffer processes a new inbound call proposal.
	HandleOffer(msg Message)

	// HandleCandidate processes remote ICE candidates for the active call.
	HandleCandidate(msg Message)

	// HandleStatus processes answers and remote terminations.
	HandleStatus(msg Message)
}

// Sender dispatches outbound signaling messages. Fire-and-forget; retry and
// queueing belong to the transport layer, not the engine.
type Sender interface {
	Send(msg Message, recipientID string)
}

// Connectivity probes whether the messaging transport is currently usable.
type Connectivity interface {
	IsConnected() bool
}

// Router classifies inbound transport messages and dispatches them to the
// handler. Messages whose id was already claimed by the deduper are dropped:
// the transport may redeliver.
type Router struct {
	handler Handler
	dedup   Deduper
	log     *slog.Logger
}

func NewRouter(handler Handler, dedup Deduper, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	if dedup == nil {
		dedup = NopDeduper{}
	}
	return &Router{handler: handler, dedup: dedup, log: log}
}

// Dispatch routes one inbound message. Unknown categories fall through to the
// status handler, which ignores what it does not recognize.
func (r *Router) Dispatch(ctx context.Context, msg Message) {
	if msg.MessageID == "" {
		r.log.Warn("signaling message without id dropped", "category", msg.Category)
		return
	}
	fresh, err := r.dedup.Claim(ctx, msg.MessageID)
	if err != nil {
		// Dedup is an optimization; on backend failure, deliver anyway.
		r.log.Warn("signaling dedup claim failed", "err", err, "message_id", msg.MessageID)
	} else if !fresh {
		r.log.Debug("duplicate signaling message dropped", "message_id", msg.MessageID, "category", msg.Category)
		return
	}

	switch msg.Category {
	case CategoryOffer:
		r.handler.HandleOffer(msg)
	case CategoryICECandidate:
		r.handler.HandleCandidate(msg)
	default:
		r.handler.HandleStatus(msg)
	}
}
