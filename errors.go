package libauth

import "errors"

var (
	// ErrUnauthorized is the generic failure surfaced to HTTP callers. The
	// concrete cause (credentials, signature, expiry, revocation) is logged
	// through the audit pipeline but never echoed to the client.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned by Login when the identifier does
	// not resolve or the secret does not match. Callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned by UserProvider implementations when no
	// account matches the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrTokenMalformed is returned when a token string cannot be parsed
	// into the three-segment signed form.
	ErrTokenMalformed = errors.New("malformed token")

	// ErrTokenSignature is returned when a token parses but its signature
	// does not verify against the process signing key.
	ErrTokenSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when a structurally valid token is past
	// its expiry instant.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned when a token id has a live revocation
	// entry in the store.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrSessionSuperseded is returned by Refresh when the presented token
	// is no longer the subject's current refresh token: a later rotation
	// replaced it, the session was logged out, or it never existed.
	ErrSessionSuperseded = errors.New("session superseded")

	// ErrStoreUnavailable is returned when the revocation/pointer store
	// cannot be reached within the configured operation timeout.
	ErrStoreUnavailable = errors.New("revocation store unavailable")

	// ErrRoleInvalid is returned when a stored or token-carried role string
	// is outside the closed role set.
	ErrRoleInvalid = errors.New("invalid role")

	// ErrEngineNotReady is returned by Engine methods on a nil or
	// incompletely built engine.
	ErrEngineNotReady = errors.New("engine not ready")
)
