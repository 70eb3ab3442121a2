package requestctx

import (
	"context"
	"testing"
)

func TestSessionHandleRoundTrip(t *testing.T) {
	ctx := WithSessionHandle(context.Background(), "handle-1")
	if got := SessionHandleFromContext(ctx); got != "handle-1" {
		t.Fatalf("SessionHandleFromContext = %q, want %q", got, "handle-1")
	}
}

func TestSessionHandleEmpty(t *testing.T) {
	if got := SessionHandleFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNilContexts(t *testing.T) {
	if got := SessionHandleFromContext(nil); got != "" {
		t.Fatalf("expected empty handle for nil context, got %q", got)
	}
	if got := LocaleFromContext(nil); got != "" {
		t.Fatalf("expected empty locale for nil context, got %q", got)
	}
	ctx := WithLocale(WithSessionHandle(nil, "h"), "pt-BR")
	if got := SessionHandleFromContext(ctx); got != "h" {
		t.Fatalf("SessionHandleFromContext = %q, want %q", got, "h")
	}
	if got := LocaleFromContext(ctx); got != "pt-BR" {
		t.Fatalf("LocaleFromContext = %q, want %q", got, "pt-BR")
	}
}
