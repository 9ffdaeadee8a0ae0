package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	libauth "github.com/cataloghq/libauth"
	"github.com/cataloghq/libauth/userstore"
)

func newTestRouter(t *testing.T) (*gin.Engine, *libauth.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("alice-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	provider := userstore.NewMemoryProvider()
	provider.Put(libauth.UserRecord{
		Subject:      "alice",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         libauth.RoleLibrarian,
	})

	engine, err := libauth.New().
		WithSigningKey([]byte("0123456789abcdef0123456789abcdef")).
		WithRedis(rdb).
		WithUserProvider(provider).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	router := gin.New()
	NewHandler(engine, nil, CookieConfig{MaxAge: 7 * 24 * time.Hour}).Register(router)
	return router, engine
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == refreshCookieName {
			return ck
		}
	}
	return nil
}

func TestLoginSetsCookieAndReturnsPair(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/login", gin.H{
		"identifier": "alice",
		"password":   "alice-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "LIBRARIAN", resp.Role)

	ck := refreshCookie(t, rec)
	require.NotNil(t, ck, "refresh cookie not set")
	assert.Equal(t, resp.RefreshToken, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/api/auth", ck.Path)
}

func TestLoginRejections(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"wrong password", gin.H{"identifier": "alice", "password": "wrong"}},
		{"unknown user", gin.H{"identifier": "mallory", "password": "x"}},
		{"missing password", gin.H{"identifier": "alice"}},
		{"empty body", gin.H{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/auth/login", tc.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			assert.Nil(t, refreshCookie(t, rec))
		})
	}
}

func TestRefreshViaCookie(t *testing.T) {
	router, _ := newTestRouter(t)

	login := postJSON(t, router, "/api/auth/login", gin.H{
		"identifier": "alice",
		"password":   "alice-pass",
	})
	require.Equal(t, http.StatusOK, login.Code)
	ck := refreshCookie(t, login)
	require.NotNil(t, ck)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(ck)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, ck.Value, resp.RefreshToken)

	rotated := refreshCookie(t, rec)
	require.NotNil(t, rotated)
	assert.Equal(t, resp.RefreshToken, rotated.Value)

	// Replaying the rotated-out cookie fails.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(ck)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshViaQueryParam(t *testing.T) {
	router, _ := newTestRouter(t)

	login := postJSON(t, router, "/api/auth/login", gin.H{
		"identifier": "alice",
		"password":   "alice-pass",
	})
	require.Equal(t, http.StatusOK, login.Code)

	var loginResp tokenResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh?refreshToken="+loginResp.RefreshToken, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookieAndRevokes(t *testing.T) {
	router, engine := newTestRouter(t)

	login := postJSON(t, router, "/api/auth/login", gin.H{
		"identifier": "alice",
		"password":   "alice-pass",
	})
	require.Equal(t, http.StatusOK, login.Code)

	var loginResp tokenResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))
	ck := refreshCookie(t, login)
	require.NotNil(t, ck)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.AccessToken)
	req.AddCookie(ck)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := refreshCookie(t, rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	_, err := engine.ValidateAccess(req.Context(), loginResp.AccessToken)
	assert.ErrorIs(t, err, libauth.ErrTokenRevoked)
}

func TestLogoutWithoutSession(t *testing.T) {
	router, _ := newTestRouter(t)

	// Logout is idempotent and tolerant; no tokens is still a 200.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, refreshCookie(t, rec))
}
