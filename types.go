package libauth

import (
	"context"
	"strings"
)

// Role is the closed set of authorization roles the catalogue backend
// recognises. Authorization decisions switch on this tagged value; role
// strings only exist at the storage and token-claim boundaries.
type Role uint8

const (
	// RoleUser is a regular catalogue member.
	RoleUser Role = iota
	// RoleAdmin has full administrative access.
	RoleAdmin
	// RoleLibrarian manages books and transactions.
	RoleLibrarian
)

// String returns the canonical upper-case form stored in token claims and
// the user table.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleLibrarian:
		return "LIBRARIAN"
	default:
		return "USER"
	}
}

// ParseRole maps a stored role string onto the closed set. Matching is
// case-insensitive. Unknown strings fail with [ErrRoleInvalid] rather than
// degrading to a default.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "LIBRARIAN":
		return RoleLibrarian, nil
	default:
		return RoleUser, ErrRoleInvalid
	}
}

// UserRecord is the read-only credential record resolved from the user
// store. Subject is the stable identifier carried in token claims; the
// login identifier (username, email, or phone) is only used to find it.
type UserRecord struct {
	Subject      string
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
}

// UserProvider is the interface callers implement to connect libauth to
// their user database. All three lookups return [ErrUserNotFound] (possibly
// wrapped) when no account matches; any other error is treated as a backend
// failure and surfaces as a login failure without detail.
type UserProvider interface {
	LookupByUsername(ctx context.Context, username string) (UserRecord, error)
	LookupByEmail(ctx context.Context, email string) (UserRecord, error)
	LookupByPhone(ctx context.Context, phone string) (UserRecord, error)
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh].
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Role         Role
}

// AuthResult is returned by [Engine.ValidateAccess] and attached to request
// contexts by the middleware package.
type AuthResult struct {
	Subject string
	Role    Role
}
