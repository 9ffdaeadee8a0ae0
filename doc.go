// Package libauth implements the authentication and session-lifecycle
// subsystem of a library-catalogue backend: credential verification, signed
// access/refresh token issuance, refresh-token rotation, and Redis-backed
// token revocation.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], the error taxonomy, and the value types callers exchange with
// it. Token encoding lives in the jwt subpackage; the Redis revocation and
// refresh-pointer store lives in the session subpackage. Neither is needed
// directly for normal use.
//
// Engine methods are safe to call from multiple goroutines after
// construction through [Builder.Build]. The only in-process shared state is
// the signing key, which is read-only after startup; everything mutable
// (revocation entries, refresh pointers) lives in Redis behind TTLs, so no
// background sweeper is required.
//
// # Rotation guarantee
//
// Refresh rotation is a single Lua script on the Redis side: the presented
// token id is compared against the subject's current refresh pointer, and
// only if it is still current is the pointer overwritten and the old id
// blacklisted. Two concurrent refreshes with the same token therefore have
// exactly one winner; the loser observes [ErrSessionSuperseded].
package libauth
