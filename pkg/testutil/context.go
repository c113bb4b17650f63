package testutil

import (
	"net/http"

	"mrzgate/pkg/requestcontext"
)

// WithSubject adds an authenticated subject to the request context.
// This simulates what the auth middleware does for a valid token.
func WithSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithSubject(req.Context(), subject))
}

// WithRequestID adds a request id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
