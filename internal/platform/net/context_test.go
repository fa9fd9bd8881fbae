package net

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestID(ctx); got != "req-1" {
		t.Fatalf("RequestID = %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("empty context should have no id, got %q", got)
	}
	if ctx := WithRequestID(context.Background(), ""); RequestID(ctx) != "" {
		t.Fatal("empty id must not be stored")
	}
}
