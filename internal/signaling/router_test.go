package signaling

import (
	"context"
	"testing"
	"time"
)

type recordingHandler struct {
	offers, candidates, statuses []Message
}

func (h *recordingHandler) HandleOffer(msg Message)     { h.offers = append(h.offers, msg) }
func (h *recordingHandler) HandleCandidate(msg Message) { h.candidates = append(h.candidates, msg) }
func (h *recordingHandler) HandleStatus(msg Message)    { h.statuses = append(h.statuses, msg) }

func TestRouter_ClassifiesByCategory(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h, nil, nil)
	ctx := context.Background()

	r.Dispatch(ctx, Message{MessageID: "1", Category: CategoryOffer})
	r.Dispatch(ctx, Message{MessageID: "2", Category: CategoryICECandidate})
	r.Dispatch(ctx, Message{MessageID: "3", Category: CategoryAnswer})
	r.Dispatch(ctx, Message{MessageID: "4", Category: CategoryEnd})

	if len(h.offers) != 1 || len(h.candidates) != 1 || len(h.statuses) != 2 {
		t.Fatalf("unexpected dispatch counts: offers=%d candidates=%d statuses=%d",
			len(h.offers), len(h.candidates), len(h.statuses))
	}
}

func TestRouter_DropsMessagesWithoutID(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h, nil, nil)
	r.Dispatch(context.Background(), Message{Category: CategoryOffer})
	if len(h.offers) != 0 {
		t.Fatalf("expected message without id to be dropped")
	}
}

func TestRouter_DropsDuplicates(t *testing.T) {
	h := &recordingHandler{}
	r := NewRouter(h, NewMemoryDeduper(time.Minute), nil)
	ctx := context.Background()

	msg := Message{MessageID: "dup", Category: CategoryOffer}
	r.Dispatch(ctx, msg)
	r.Dispatch(ctx, msg)

	if len(h.offers) != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d offers", len(h.offers))
	}
}

func TestMemoryDeduper_ExpiresClaims(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	base := time.Now()
	d.now = func() time.Time { return base }

	if ok, _ := d.Claim(context.Background(), "a"); !ok {
		t.Fatalf("expected first claim to succeed")
	}
	if ok, _ := d.Claim(context.Background(), "a"); ok {
		t.Fatalf("expected second claim to fail inside ttl")
	}

	d.now = func() time.Time { return base.Add(2 * time.Minute) }
	if ok, _ := d.Claim(context.Background(), "a"); !ok {
		t.Fatalf("expected claim to succeed after ttl")
	}
}
