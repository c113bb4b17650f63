// Package requestcontext carries request-scoped values through a
// context.Context without depending on net/http.
//
// HTTP middleware stores the values and the scan pipeline, handlers and
// loggers read them. The CLI runs without any of them set, so every reader
// returns a usable zero value.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	subjectKey key = iota
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// Subject is the authenticated token subject, or "" for anonymous requests.
func Subject(ctx context.Context) string { return value[string](ctx, subjectKey) }

// WithSubject records the authenticated token subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

func ClientIP(ctx context.Context) string  { return value[string](ctx, clientIPKey) }
func UserAgent(ctx context.Context) string { return value[string](ctx, userAgentKey) }

// WithClientMetadata records the caller's address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string { return value[string](ctx, requestIDKey) }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the time the request arrived, or the wall clock when unset.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
