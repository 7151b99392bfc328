package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/internal/store"
	"github.com/judyrop/storefront-api/models"
)

const (
	MessageUnauthorized = "Unauthorized Access"
	MessageForbidden    = "Forbidden Access"

	MethodSession = "session"
	MethodBearer  = "bearer"
)

// Middleware guards routes by session state.
type Middleware struct {
	sessions *Sessions
	store    *store.Store
	verifier *oidc.IDTokenVerifier
	log      *zap.Logger
}

// NewMiddleware builds the guards. verifier may be nil, in which case bearer
// tokens are ignored.
func NewMiddleware(sessions *Sessions, st *store.Store, verifier *oidc.IDTokenVerifier, log *zap.Logger) *Middleware {
	return &Middleware{sessions: sessions, store: st, verifier: verifier, log: log}
}

// RequireLogin resolves the caller to a user and stores the identity in the
// request context. Missing and stale sessions get the same response; a stale
// session cookie is also cleared.
func (m *Middleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, reason, err := m.resolve(c)
		if err != nil {
			m.log.Error("session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "internal server error",
			})
			return
		}
		if id == nil {
			if reason == "invalid_token" || reason == "stale" {
				m.sessions.Clear(c)
			}
			m.log.Debug("rejected unauthenticated request",
				zap.String("reason", reason),
				zap.String("path", c.FullPath()),
			)
			abort(c, MessageUnauthorized)
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireAnonymous rejects callers that already hold a valid session.
func (m *Middleware) RequireAnonymous() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := m.sessions.UserID(c); err == nil {
			abort(c, MessageForbidden)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": message,
	})
}

// resolve returns the caller's identity, or nil and the reason it could not
// be established. A non-nil error means the lookup itself failed.
func (m *Middleware) resolve(c *gin.Context) (*Identity, string, error) {
	ctx := c.Request.Context()

	if token, ok := bearerToken(c); ok && m.verifier != nil {
		return m.resolveBearer(ctx, token)
	}

	userID, err := m.sessions.UserID(c)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil, "missing", nil
	case err != nil:
		return nil, "invalid_token", nil
	}

	var user models.User
	err = m.store.Read(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "stale", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &Identity{User: &user, Method: MethodSession}, "", nil
}

func (m *Middleware) resolveBearer(ctx context.Context, raw string) (*Identity, string, error) {
	token, err := m.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, "invalid_bearer", nil
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := token.Claims(&claims); err != nil || claims.Email == "" {
		return nil, "invalid_bearer", nil
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, "unverified_email", nil
	}

	var user models.User
	err = m.store.Read(ctx).Where("email = ?", claims.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "unknown_bearer_user", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &Identity{User: &user, Method: MethodBearer}, "", nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
