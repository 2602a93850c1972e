package call

import (
	"sync"

	"voicecall-engine/internal/media"

	"github.com/google/uuid"
)

// PendingOffer pairs an incoming, not-yet-accepted call with the remote
// session description that proposed it.
type PendingOffer struct {
	Call              *Call
	RemoteDescription media.SessionDescription
}

// Registry holds at most one active call plus a bounded map of pending
// inbound offers.
//
// Invariants:
//   - at most one call occupies the active slot;
//   - a call id appears in at most one of {active slot, pending map}, never both.
//
// All mutation happens on the engine's serialized loop; the mutex exists so
// boundary code (telephony line-idle checks, HTTP snapshots) can read safely.
type Registry struct {
	mu         sync.RWMutex
	maxPending int
	active     *Call
	pending    map[uuid.UUID]PendingOffer
	order      []uuid.UUID
}

func NewRegistry(maxPending int) *Registry {
	if maxPending <= 0 {
		maxPending = 4
	}
	return &Registry{maxPending: maxPending, pending: map[uuid.UUID]PendingOffer{}}
}

// Active returns the call in the active slot, or nil.
func (r *Registry) Active() *Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// LineIdle reports whether no call is active.
func (r *Registry) LineIdle() bool { return r.Active() == nil }

// SetActive places c in the active slot. Fails with ErrLineBusy if the slot is
// occupied, and with ErrInvalidCallID if the id is already pending.
func (r *Registry) SetActive(c *Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrLineBusy
	}
	if _, ok := r.pending[c.ID]; ok {
		return ErrInvalidCallID
	}
	r.active = c
	return nil
}

// ClearActive empties the active slot if it holds id.
func (r *Registry) ClearActive(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.ID == id {
		r.active = nil
	}
}

// AddPending queues an inbound offer. ErrLineBusy when the queue is full;
// ErrInvalidCallID when the id is already tracked.
func (r *Registry) AddPending(offer PendingOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := offer.Call.ID
	if r.active != nil && r.active.ID == id {
		return ErrInvalidCallID
	}
	if _, ok := r.pending[id]; ok {
		return ErrInvalidCallID
	}
	if len(r.pending) >= r.maxPending {
		return ErrLineBusy
	}
	r.pending[id] = offer
	r.order = append(r.order, id)
	return nil
}

// Pending returns the queued offer for id without removing it.
func (r *Registry) Pending(id uuid.UUID) (PendingOffer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offer, ok := r.pending[id]
	return offer, ok
}

// TakePending removes and returns the queued offer for id.
func (r *Registry) TakePending(id uuid.UUID) (PendingOffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offer, ok := r.pending[id]
	if !ok {
		return PendingOffer{}, false
	}
	delete(r.pending, id)
	r.dropOrderLocked(id)
	return offer, true
}

// FirstPending returns the oldest queued offer id.
func (r *Registry) FirstPending() (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return uuid.UUID{}, false
	}
	return r.order[0], true
}

// PendingCount returns how many offers are queued.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending)
}

// Promote moves a pending offer into the active slot.
func (r *Registry) Promote(id uuid.UUID) (PendingOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offer, ok := r.pending[id]
	if !ok {
		return PendingOffer{}, ErrInvalidCallID
	}
	if r.active != nil {
		return PendingOffer{}, ErrLineBusy
	}
	delete(r.pending, id)
	r.dropOrderLocked(id)
	r.active = offer.Call
	return offer, nil
}

// Clear empties the whole registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
	r.pending = map[uuid.UUID]PendingOffer{}
	r.order = nil
}

func (r *Registry) dropOrderLocked(id uuid.UUID) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
