// Package requestctx carries per-request caller data through context.
package requestctx

import "context"

type sessionHandleContextKey struct{}

type localeContextKey struct{}

// WithSessionHandle stores the caller's session handle in context.
func WithSessionHandle(ctx context.Context, handle string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionHandleContextKey{}, handle)
}

// SessionHandleFromContext returns the session handle stored in context.
func SessionHandleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(sessionHandleContextKey{}).(string)
	return value
}

// WithLocale stores the negotiated response locale in context.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the negotiated locale, or "" when unset.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(localeContextKey{}).(string)
	return value
}
