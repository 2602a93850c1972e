package utils

import (
	"context"
	"testing"
)

func TestClaimOnce_ValidatesInput(t *testing.T) {
	ctx := context.Background()
	if _, err := ClaimOnce(ctx, nil, "k", 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := ClaimOnce(ctx, nil, "", 1); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestReleaseClaim_ValidatesInput(t *testing.T) {
	if err := ReleaseClaim(context.Background(), nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
