package libauth

import (
	"context"
	"errors"
	"testing"
)

// failingProvider simulates a user-store backend outage.
type failingProvider struct{}

func (failingProvider) LookupByUsername(context.Context, string) (UserRecord, error) {
	return UserRecord{}, errors.New("connection refused")
}

func (failingProvider) LookupByEmail(context.Context, string) (UserRecord, error) {
	return UserRecord{}, errors.New("connection refused")
}

func (failingProvider) LookupByPhone(context.Context, string) (UserRecord, error) {
	return UserRecord{}, errors.New("connection refused")
}

func TestVerifyResolvesIdentifierKinds(t *testing.T) {
	ctx := context.Background()
	v := &credentialVerifier{provider: testProvider(t)}

	cases := []struct {
		name       string
		identifier string
		secret     string
		wantSub    string
	}{
		{"username", "alice", "alice-pass", "alice"},
		{"email", "alice@example.com", "alice-pass", "alice"},
		{"phone", "5551234567", "alice-pass", "alice"},
		{"trimmed", "\tbob\n", "bob-pass", "bob"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := v.Verify(ctx, tc.identifier, tc.secret)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if user.Subject != tc.wantSub {
				t.Errorf("subject = %q, want %q", user.Subject, tc.wantSub)
			}
		})
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	v := &credentialVerifier{provider: testProvider(t)}

	cases := []struct {
		name       string
		identifier string
		secret     string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown username", "mallory", "alice-pass"},
		{"unknown email", "mallory@example.com", "alice-pass"},
		{"unknown phone", "5559999999", "alice-pass"},
		{"digits-and-letters falls nowhere", "555abc", "alice-pass"},
		{"empty identifier", "", "alice-pass"},
		{"empty secret", "alice", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(ctx, tc.identifier, tc.secret); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestVerifyBackendFailureIsOpaque(t *testing.T) {
	ctx := context.Background()
	v := &credentialVerifier{provider: failingProvider{}}

	if _, err := v.Verify(ctx, "alice", "alice-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
