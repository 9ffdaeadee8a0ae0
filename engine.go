package libauth

import (
	"context"
	"errors"
	"time"

	"github.com/cataloghq/libauth/jwt"
	"github.com/cataloghq/libauth/session"
)

// Engine coordinates the session lifecycle: login, refresh with rotation,
// logout, and access-token validation. It holds no mutable in-process
// state; all shared mutable state lives in Redis.
type Engine struct {
	config     Config
	jwtManager *jwt.Manager
	store      *session.Store
	verifier   *credentialVerifier
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close releases engine resources. Currently that is the audit dispatcher,
// which is drained before Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies the identifier/secret pair, issues an access and a
// refresh token for the resolved subject, and records the refresh token id
// as the subject's current pointer. A failed verification leaves no state
// behind and returns [ErrInvalidCredentials] without revealing which part
// failed.
//
// The pointer overwrite means a second login replaces any earlier refresh
// session for the same subject: single session per subject, by the
// narrowest consistent reading of the pointer model.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.verifier.Verify(ctx, identifier, secret)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.audit.emit(ctx, AuditLoginFailure, "", "", false, err)
		return nil, ErrInvalidCredentials
	}

	role := user.Role.String()

	access, _, err := e.jwtManager.Issue(user.Subject, role, jwt.TypeAccess)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.audit.emit(ctx, AuditLoginFailure, user.Subject, "", false, err)
		return nil, err
	}
	refresh, refreshClaims, err := e.jwtManager.Issue(user.Subject, role, jwt.TypeRefresh)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.audit.emit(ctx, AuditLoginFailure, user.Subject, "", false, err)
		return nil, err
	}

	if err := e.store.SavePointer(ctx, user.Subject, refreshClaims.ID, e.jwtManager.RefreshTTL()); err != nil {
		e.metricInc(MetricStoreFailure)
		e.audit.emit(ctx, AuditStoreFailure, user.Subject, refreshClaims.ID, false, err)
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricLoginSuccess)
	e.audit.emit(ctx, AuditLoginSuccess, user.Subject, refreshClaims.ID, true, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         user.Role,
	}, nil
}

// Refresh rotates a refresh session. The presented token must parse and
// verify, must not be blacklisted, and must still be the subject's current
// refresh token. The pointer comparison, pointer overwrite, and revocation
// of the presented token execute as one conditional store operation, so a
// token can win at most one rotation; a concurrent second call observes
// [ErrSessionSuperseded].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(refreshToken)
	if err != nil {
		mapped := mapTokenError(err)
		e.metricInc(MetricRefreshFailure)
		e.audit.emit(ctx, AuditRefreshFailure, "", "", false, mapped)
		return nil, mapped
	}
	if claims.TokenType != jwt.TypeRefresh {
		e.metricInc(MetricRefreshFailure)
		e.audit.emit(ctx, AuditRefreshFailure, claims.Subject, claims.ID, false, ErrTokenMalformed)
		return nil, ErrTokenMalformed
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.audit.emit(ctx, AuditRefreshFailure, claims.Subject, claims.ID, false, err)
		return nil, ErrTokenMalformed
	}

	if err := e.checkRevoked(ctx, claims.ID); err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			e.metricInc(MetricRefreshRevoked)
			e.audit.emit(ctx, AuditRefreshRevoked, claims.Subject, claims.ID, false, err)
		}
		return nil, err
	}

	access, _, err := e.jwtManager.Issue(claims.Subject, claims.Role, jwt.TypeAccess)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	refresh, nextClaims, err := e.jwtManager.Issue(claims.Subject, claims.Role, jwt.TypeRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	err = e.store.Rotate(ctx,
		claims.Subject,
		claims.ID,
		nextClaims.ID,
		e.jwtManager.RefreshTTL(),
		claims.Remaining(time.Now()),
	)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrPointerMismatch), errors.Is(err, session.ErrPointerNotFound):
		e.metricInc(MetricRefreshSuperseded)
		e.audit.emit(ctx, AuditRefreshSuperseded, claims.Subject, claims.ID, false, err)
		return nil, ErrSessionSuperseded
	default:
		// Rotation is a write; it always fails closed regardless of the
		// revocation-check policy.
		e.metricInc(MetricStoreFailure)
		e.audit.emit(ctx, AuditStoreFailure, claims.Subject, claims.ID, false, err)
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricRefreshSuccess)
	e.audit.emit(ctx, AuditRefreshSuccess, claims.Subject, nextClaims.ID, true, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         role,
	}, nil
}

// Logout revokes whichever of the two tokens are present, each for its own
// remaining lifetime, and deletes the subject's refresh pointer when the
// refresh token identifies one. Logout always succeeds from the caller's
// perspective: unparseable or already expired tokens are skipped, and a
// second logout of the same session is harmless. Store failures are
// recorded through audit/metrics but not surfaced.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	now := time.Now()

	var (
		subject    string
		accessID   string
		accessTTL  time.Duration
		refreshID  string
		refreshTTL time.Duration
	)

	if accessToken != "" {
		if claims, err := e.jwtManager.Parse(accessToken); err == nil && claims.TokenType == jwt.TypeAccess {
			accessID = claims.ID
			accessTTL = claims.Remaining(now)
			subject = claims.Subject
		}
	}
	if refreshToken != "" {
		if claims, err := e.jwtManager.Parse(refreshToken); err == nil && claims.TokenType == jwt.TypeRefresh {
			refreshID = claims.ID
			refreshTTL = claims.Remaining(now)
			subject = claims.Subject
		}
	}

	if accessID == "" && refreshID == "" {
		return nil
	}

	if err := e.store.Clear(ctx, subject, accessID, accessTTL, refreshID, refreshTTL); err != nil {
		e.metricInc(MetricStoreFailure)
		e.audit.emit(ctx, AuditStoreFailure, subject, refreshID, false, err)
		return nil
	}

	e.metricInc(MetricLogout)
	e.audit.emit(ctx, AuditLogout, subject, refreshID, true, nil)
	return nil
}

// ValidateAccess checks an access token for use on a protected route:
// signature, expiry, token type, role claim, and the revocation blacklist.
// The blacklist consultation honours the configured fail-open/fail-closed
// policy.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, mapTokenError(err)
	}
	if claims.TokenType != jwt.TypeAccess {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenMalformed
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenMalformed
	}

	if err := e.checkRevoked(ctx, claims.ID); err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{Subject: claims.Subject, Role: role}, nil
}

// checkRevoked consults the blacklist and applies the configured policy
// when the store is unreachable: fail-open treats the token as not
// revoked, fail-closed rejects with ErrStoreUnavailable. Either way the
// failure is audited.
func (e *Engine) checkRevoked(ctx context.Context, tokenID string) error {
	revoked, err := e.store.IsBlacklisted(ctx, tokenID)
	if err != nil {
		e.metricInc(MetricStoreFailure)
		e.audit.emit(ctx, AuditStoreFailure, "", tokenID, false, err)
		if e.config.Security.RevocationFailOpen {
			return nil
		}
		return ErrStoreUnavailable
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrSignature):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}
