package rtdb

import "errors"

// Domain-specific errors for store operations.
// Use errors.Is() to check for these errors as they may be wrapped.
var (
	// ErrStoreClosed is returned by any operation after Close.
	ErrStoreClosed = errors.New("rtdb: store closed")

	// ErrReadOnlyPath is returned when writing a server-maintained path such as .info/connected.
	ErrReadOnlyPath = errors.New("rtdb: path is read-only")

	// ErrInvalidPath is returned for paths containing characters the store rejects.
	ErrInvalidPath = errors.New("rtdb: invalid path")

	// ErrUnauthorized is returned when the store rejects the credentials.
	ErrUnauthorized = errors.New("rtdb: permission denied")

	// ErrSignIn is returned when anonymous sign-in or token refresh fails.
	ErrSignIn = errors.New("rtdb: sign-in failed")

	// ErrRequestFailed is returned for non-success REST responses.
	ErrRequestFailed = errors.New("rtdb: request failed")

	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("rtdb: store unavailable")

	// ErrStreamCancelled ends a subscription when the server cancels it
	// (permission revoked on the path). It is not retried.
	ErrStreamCancelled = errors.New("rtdb: stream cancelled by server")

	// errAuthRevoked asks the stream loop to refresh the token and reconnect.
	errAuthRevoked = errors.New("rtdb: auth revoked")
)
