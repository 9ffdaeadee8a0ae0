//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	libauth "github.com/cataloghq/libauth"
	"github.com/cataloghq/libauth/session"
	"github.com/cataloghq/libauth/userstore"
)

var integrationKey = []byte("integration-key-0123456789abcdef")

func newIntegrationStore(t *testing.T) (*session.Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewStore(rdb, "auth", 0)

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func newIntegrationEngine(t *testing.T) (*libauth.Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider := userstore.NewMemoryProvider()
	hash, err := bcrypt.GenerateFromPassword([]byte("alice-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	provider.Put(libauth.UserRecord{
		Subject:      "alice",
		Username:     "alice",
		Email:        "alice@example.com",
		Phone:        "5551234567",
		PasswordHash: string(hash),
		Role:         libauth.RoleAdmin,
	})

	engine, err := libauth.New().
		WithSigningKey(integrationKey).
		WithRedis(rdb).
		WithUserProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func mustLogin(t *testing.T, engine *libauth.Engine) *libauth.TokenPair {
	t.Helper()

	pair, err := engine.Login(context.Background(), "alice", "alice-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return pair
}
