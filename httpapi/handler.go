// Package httpapi exposes the auth subsystem over HTTP: login, refresh,
// and logout under /api/auth. The layer is deliberately thin; every
// decision lives in the engine, and every failure collapses to a generic
// 401 so the response never reveals whether the identifier, the secret, or
// the token was at fault.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	libauth "github.com/cataloghq/libauth"
)

const refreshCookieName = "refreshToken"

// CookieConfig controls the refresh-token cookie. Path confines the cookie
// to the auth endpoints so the browser never sends the refresh token to
// catalogue routes.
type CookieConfig struct {
	Path   string
	Secure bool
	MaxAge time.Duration
}

// Handler binds the auth endpoints to an engine.
type Handler struct {
	engine *libauth.Engine
	log    *zap.Logger
	cookie CookieConfig
}

// NewHandler creates a Handler. A nil logger is replaced with a no-op one.
func NewHandler(engine *libauth.Engine, log *zap.Logger, cookie CookieConfig) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if cookie.Path == "" {
		cookie.Path = "/api/auth"
	}
	return &Handler{engine: engine, log: log, cookie: cookie}
}

// Register mounts the auth routes on the router.
func (h *Handler) Register(r gin.IRouter) {
	grp := r.Group("/api/auth")
	grp.POST("/login", h.login)
	grp.POST("/refresh", h.refresh)
	grp.POST("/logout", h.logout)
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Role         string `json:"role,omitempty"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := libauth.WithClientIP(c.Request.Context(), c.ClientIP())
	pair, err := h.engine.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		h.log.Info("login rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Role:         pair.Role.String(),
	})
}

func (h *Handler) refresh(c *gin.Context) {
	token := h.refreshTokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := libauth.WithClientIP(c.Request.Context(), c.ClientIP())
	pair, err := h.engine.Refresh(ctx, token)
	if err != nil {
		h.log.Info("refresh rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) logout(c *gin.Context) {
	accessToken := bearerToken(c.GetHeader("Authorization"))
	refreshToken := h.refreshTokenFromRequest(c)

	ctx := libauth.WithClientIP(c.Request.Context(), c.ClientIP())
	if err := h.engine.Logout(ctx, accessToken, refreshToken); err != nil {
		h.log.Warn("logout error", zap.Error(err))
	}

	h.clearRefreshCookie(c)
	c.Status(http.StatusOK)
}

// refreshTokenFromRequest prefers the HttpOnly cookie and falls back to an
// explicit request parameter for non-browser clients.
func (h *Handler) refreshTokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookieName); err == nil && token != "" {
		return token
	}
	if token := c.PostForm(refreshCookieName); token != "" {
		return token
	}
	return c.Query(refreshCookieName)
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(refreshCookieName, token, int(h.cookie.MaxAge.Seconds()), h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
}

func bearerToken(value string) string {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return ""
	}
	return value[len(bearer):]
}
