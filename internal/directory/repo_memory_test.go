package directory

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepo_GetUser(t *testing.T) {
	r := NewMemoryRepo()
	r.Put(User{UserID: "u1", FullName: "Ada"})

	u, err := r.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.FullName != "Ada" {
		t.Fatalf("expected Ada, got %q", u.FullName)
	}

	_, err = r.GetUser(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
