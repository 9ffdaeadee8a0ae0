package libauth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// credentialVerifier resolves a login identifier to a user record and
// checks the supplied secret against the stored hash. Both steps either
// pass together or the whole call fails with ErrInvalidCredentials; the
// caller never learns which part failed.
type credentialVerifier struct {
	provider UserProvider
}

// Verify resolves the identifier (exact username first, then email when
// it contains "@", then phone when it is all digits) and compares the
// secret against the stored bcrypt hash. bcrypt's comparison is constant
// time over the digest, so a mismatch costs the same as a match.
func (v *credentialVerifier) Verify(ctx context.Context, identifier, secret string) (UserRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return UserRecord{}, ErrInvalidCredentials
	}

	user, err := v.resolve(ctx, identifier)
	if err != nil {
		return UserRecord{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)); err != nil {
		return UserRecord{}, ErrInvalidCredentials
	}

	return user, nil
}

func (v *credentialVerifier) resolve(ctx context.Context, identifier string) (UserRecord, error) {
	user, err := v.provider.LookupByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, err
	}

	switch {
	case strings.Contains(identifier, "@"):
		return v.provider.LookupByEmail(ctx, identifier)
	case allDigits(identifier):
		return v.provider.LookupByPhone(ctx, identifier)
	default:
		return UserRecord{}, ErrUserNotFound
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
