package testutil

import (
	"net/http"

	"flighttracker/pkg/domain"
	"flighttracker/pkg/requestcontext"
)

// WithIdentity adds a caller identity to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithIdentity(req *http.Request, caller domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), caller))
}

// WithCaller is WithIdentity for the common case of a single user with a scope.
func WithCaller(req *http.Request, userID string, granted domain.Scope) *http.Request {
	return WithIdentity(req, domain.Identity{UserID: userID, Granted: granted})
}
