// Package call implements the single-active-call state machine: it reconciles
// inbound signaling, user-driven telephony actions, and media-session events
// into one authoritative call state.
package call

import (
	"strings"
	"time"

	"voicecall-engine/internal/directory"

	"github.com/google/uuid"
)

// Direction of a call, immutable after creation.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// EndedReason is what the telephony layer is told when a call ends. It is
// coarser than the signaling termination categories.
type EndedReason string

const (
	EndedReasonFailed      EndedReason = "failed"
	EndedReasonRemoteEnded EndedReason = "remote_ended"
	EndedReasonUnanswered  EndedReason = "unanswered"
)

// Call is one logical voice session. Owned by the engine's serialized loop;
// nothing outside the package mutates it.
type Call struct {
	ID        uuid.UUID
	Peer      directory.User
	Direction Direction

	// ConnectedAt is set exactly once, when media connects.
	ConnectedAt *time.Time

	// ConversationID and RaisedBy are derived at creation.
	ConversationID string
	RaisedBy       string

	state State
}

// NewCall derives the conversation identity from the local account and peer.
func NewCall(id uuid.UUID, selfID string, peer directory.User, direction Direction) *Call {
	raisedBy := peer.UserID
	initial := StateIncomingPending
	if direction == DirectionOutgoing {
		raisedBy = selfID
		initial = StateRinging
	}
	return &Call{
		ID:             id,
		Peer:           peer,
		Direction:      direction,
		ConversationID: ConversationID(selfID, peer.UserID),
		RaisedBy:       raisedBy,
		state:          initial,
	}
}

// MessageID is the signaling correlation id for this call: the lowercased
// call id, which is also the message id of the originating OFFER.
func (c *Call) MessageID() string { return strings.ToLower(c.ID.String()) }

func (c *Call) State() State { return c.state }

func (c *Call) IsOutgoing() bool { return c.Direction == DirectionOutgoing }

// markConnected records the connect instant. First call wins.
func (c *Call) markConnected(now time.Time) bool {
	if c.ConnectedAt != nil {
		return false
	}
	t := now
	c.ConnectedAt = &t
	return true
}

// ConversationID is a pure function of the two participants: the name-based
// uuid of the sorted pair, so both sides derive the same value.
func ConversationID(userID, peerID string) string {
	lo, hi := userID, peerID
	if lo > hi {
		lo, hi = hi, lo
	}
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(lo+hi)).String()
}
