package testutil

import (
	"net/http"
	"time"

	"landledger/pkg/domain"
	"landledger/pkg/requestcontext"
)

// WithCaller attaches a caller address to the request context, simulating
// what the identity middleware does for an authenticated request. Invalid
// addresses are silently ignored so tests can exercise the anonymous path.
func WithCaller(req *http.Request, address string) *http.Request {
	parsed, err := domain.ParseAddress(address)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}

// WithRequestTime pins the request context clock, as the middleware does.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
