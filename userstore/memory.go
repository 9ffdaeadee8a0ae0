package userstore

import (
	"context"
	"sync"

	libauth "github.com/cataloghq/libauth"
)

// MemoryProvider is an in-memory UserProvider for tests and examples.
type MemoryProvider struct {
	mu    sync.RWMutex
	users []libauth.UserRecord
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Put adds or replaces a user record, keyed by subject.
func (p *MemoryProvider) Put(record libauth.UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.users {
		if p.users[i].Subject == record.Subject {
			p.users[i] = record
			return
		}
	}
	p.users = append(p.users, record)
}

// LookupByUsername implements libauth.UserProvider.
func (p *MemoryProvider) LookupByUsername(_ context.Context, username string) (libauth.UserRecord, error) {
	return p.find(func(u libauth.UserRecord) bool { return u.Username == username })
}

// LookupByEmail implements libauth.UserProvider.
func (p *MemoryProvider) LookupByEmail(_ context.Context, email string) (libauth.UserRecord, error) {
	return p.find(func(u libauth.UserRecord) bool { return u.Email != "" && u.Email == email })
}

// LookupByPhone implements libauth.UserProvider.
func (p *MemoryProvider) LookupByPhone(_ context.Context, phone string) (libauth.UserRecord, error) {
	return p.find(func(u libauth.UserRecord) bool { return u.Phone != "" && u.Phone == phone })
}

func (p *MemoryProvider) find(match func(libauth.UserRecord) bool) (libauth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, u := range p.users {
		if match(u) {
			return u, nil
		}
	}
	return libauth.UserRecord{}, libauth.ErrUserNotFound
}
