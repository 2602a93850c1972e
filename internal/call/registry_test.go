package call

import (
	"errors"
	"sync"
	"testing"

	"voicecall-engine/internal/directory"

	"github.com/google/uuid"
)

func newTestCall(direction Direction) *Call {
	return NewCall(uuid.New(), "self", directory.User{UserID: "peer"}, direction)
}

func TestRegistry_SingleActiveSlot(t *testing.T) {
	r := NewRegistry(4)
	first := newTestCall(DirectionOutgoing)
	if err := r.SetActive(first); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := r.SetActive(newTestCall(DirectionOutgoing)); !errors.Is(err, ErrLineBusy) {
		t.Fatalf("second SetActive: got %v, want ErrLineBusy", err)
	}
	if r.Active() != first {
		t.Fatalf("active call replaced")
	}
	if r.LineIdle() {
		t.Fatalf("line should not be idle with an active call")
	}
}

func TestRegistry_SingleActiveSlotUnderConcurrency(t *testing.T) {
	r := NewRegistry(4)
	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.SetActive(newTestCall(DirectionOutgoing))
		}()
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
		} else if !errors.Is(err, ErrLineBusy) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d SetActive calls won, want exactly 1", won)
	}
}

func TestRegistry_IDNeverActiveAndPending(t *testing.T) {
	r := NewRegistry(4)
	c := newTestCall(DirectionIncoming)
	if err := r.AddPending(PendingOffer{Call: c}); err != nil {
		t.Fatalf("AddPending: %v", err)
	}
	if err := r.SetActive(c); !errors.Is(err, ErrInvalidCallID) {
		t.Fatalf("SetActive with pending id: got %v, want ErrInvalidCallID", err)
	}

	if _, err := r.Promote(c.ID); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if err := r.AddPending(PendingOffer{Call: c}); !errors.Is(err, ErrInvalidCallID) {
		t.Fatalf("AddPending with active id: got %v, want ErrInvalidCallID", err)
	}
	if _, ok := r.Pending(c.ID); ok {
		t.Fatalf("promoted id still pending")
	}
}

func TestRegistry_AddPendingDuplicateRejected(t *testing.T) {
	r := NewRegistry(4)
	c := newTestCall(DirectionIncoming)
	if err := r.AddPending(PendingOffer{Call: c}); err != nil {
		t.Fatalf("AddPending: %v", err)
	}
	if err := r.AddPending(PendingOffer{Call: c}); !errors.Is(err, ErrInvalidCallID) {
		t.Fatalf("duplicate AddPending: got %v, want ErrInvalidCallID", err)
	}
	if r.PendingCount() != 1 {
		t.Fatalf("pending count %d, want 1", r.PendingCount())
	}
}

func TestRegistry_PendingCapOverflowsAsBusy(t *testing.T) {
	r := NewRegistry(2)
	for i := 0; i < 2; i++ {
		if err := r.AddPending(PendingOffer{Call: newTestCall(DirectionIncoming)}); err != nil {
			t.Fatalf("AddPending %d: %v", i, err)
		}
	}
	if err := r.AddPending(PendingOffer{Call: newTestCall(DirectionIncoming)}); !errors.Is(err, ErrLineBusy) {
		t.Fatalf("overflow AddPending: got %v, want ErrLineBusy", err)
	}
}

func TestRegistry_FirstPendingIsOldest(t *testing.T) {
	r := NewRegistry(4)
	a := newTestCall(DirectionIncoming)
	b := newTestCall(DirectionIncoming)
	if err := r.AddPending(PendingOffer{Call: a}); err != nil {
		t.Fatalf("AddPending a: %v", err)
	}
	if err := r.AddPending(PendingOffer{Call: b}); err != nil {
		t.Fatalf("AddPending b: %v", err)
	}

	id, ok := r.FirstPending()
	if !ok || id != a.ID {
		t.Fatalf("FirstPending = %v, %v; want %v", id, ok, a.ID)
	}
	if _, ok := r.TakePending(a.ID); !ok {
		t.Fatalf("TakePending a failed")
	}
	id, ok = r.FirstPending()
	if !ok || id != b.ID {
		t.Fatalf("FirstPending after take = %v, %v; want %v", id, ok, b.ID)
	}
}

func TestRegistry_PromoteRequiresIdleLine(t *testing.T) {
	r := NewRegistry(4)
	if err := r.SetActive(newTestCall(DirectionOutgoing)); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	c := newTestCall(DirectionIncoming)
	if err := r.AddPending(PendingOffer{Call: c}); err != nil {
		t.Fatalf("AddPending: %v", err)
	}
	if _, err := r.Promote(c.ID); !errors.Is(err, ErrLineBusy) {
		t.Fatalf("Promote with busy line: got %v, want ErrLineBusy", err)
	}
	if _, ok := r.Pending(c.ID); !ok {
		t.Fatalf("failed promote must leave the offer pending")
	}
}

func TestRegistry_ClearEmptiesEverything(t *testing.T) {
	r := NewRegistry(4)
	if err := r.SetActive(newTestCall(DirectionOutgoing)); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := r.AddPending(PendingOffer{Call: newTestCall(DirectionIncoming)}); err != nil {
		t.Fatalf("AddPending: %v", err)
	}
	r.Clear()
	if !r.LineIdle() || r.PendingCount() != 0 {
		t.Fatalf("Clear left state behind")
	}
	if _, ok := r.FirstPending(); ok {
		t.Fatalf("Clear left pending order behind")
	}
}

func TestRegistry_ClearActiveIgnoresStaleID(t *testing.T) {
	r := NewRegistry(4)
	c := newTestCall(DirectionOutgoing)
	if err := r.SetActive(c); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	r.ClearActive(uuid.New())
	if r.Active() != c {
		t.Fatalf("ClearActive with stale id cleared the active call")
	}
	r.ClearActive(c.ID)
	if !r.LineIdle() {
		t.Fatalf("ClearActive with matching id did not clear")
	}
}
