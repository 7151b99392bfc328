package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/judyrop/storefront-api/config"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

const sessionIssuer = "storefront-api"

// Sessions keeps the user id in a signed, HttpOnly cookie.
type Sessions struct {
	secret []byte
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(cfg config.SessionConfig) *Sessions {
	name := cfg.CookieName
	if name == "" {
		name = "session"
	}
	return &Sessions{
		secret: []byte(cfg.Secret),
		cookie: name,
		ttl:    cfg.TTL,
		secure: cfg.Secure,
		now:    time.Now,
	}
}

// Issue signs a token for userID and sets it on the response.
func (s *Sessions) Issue(c *gin.Context, userID uint) error {
	token, err := s.Sign(userID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookie, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	return nil
}

func (s *Sessions) Sign(userID uint) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookie, "", -1, "/", "", s.secure, true)
}

// UserID returns the user id held by the request's session cookie.
func (s *Sessions) UserID(c *gin.Context) (uint, error) {
	value, err := c.Cookie(s.cookie)
	if err != nil || value == "" {
		return 0, ErrNoSession
	}
	return s.Parse(value)
}

func (s *Sessions) Parse(token string) (uint, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return uint(id), nil
}
