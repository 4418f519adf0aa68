// Package auth provides password hashing and the signed cookies that carry
// the per-client session and single-use flash notices.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "kakeibo_session"
	FlashCookieName   = "kakeibo_flash"

	issuer          = "kakeibo"
	sessionAudience = "session"
	flashAudience   = "flash"
	flashTTL        = 5 * time.Minute
)

var ErrInvalidSession = errors.New("invalid session")

// Session is the authenticated identity of one client. It is created at
// login, cleared at logout and read-only in between.
type Session struct {
	UserID  int64
	Name    string
	IsAdmin bool
}

type sessionClaims struct {
	UserID  int64  `json:"uid"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"adm"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session and flash cookies with HMAC-SHA256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCodec(secret []byte, ttl time.Duration, secure bool) *Codec {
	return &Codec{
		secret: secret,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Encode returns the signed token for s.
func (c *Codec) Encode(s Session) (string, error) {
	now := c.now()
	claims := sessionClaims{
		UserID:  s.UserID,
		Name:    s.Name,
		IsAdmin: s.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(s.UserID, 10),
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns the session it carries.
func (c *Codec) Decode(token string) (Session, error) {
	var claims sessionClaims
	if err := c.parse(token, &claims, sessionAudience); err != nil {
		return Session{}, err
	}
	if claims.UserID <= 0 {
		return Session{}, ErrInvalidSession
	}
	return Session{UserID: claims.UserID, Name: claims.Name, IsAdmin: claims.IsAdmin}, nil
}

func (c *Codec) parse(token string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}

// SetSession writes the signed session cookie.
func (c *Codec) SetSession(w http.ResponseWriter, s Session) error {
	token, err := c.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(SessionCookieName, token, int(c.ttl/time.Second)))
	return nil
}

// ReadSession returns the session carried by r, if any and valid.
func (c *Codec) ReadSession(r *http.Request) (Session, bool) {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil || ck.Value == "" {
		return Session{}, false
	}
	s, err := c.Decode(ck.Value)
	if err != nil {
		return Session{}, false
	}
	return s, true
}

// ClearSession expires the session cookie.
func (c *Codec) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(SessionCookieName, "", -1))
}

func (c *Codec) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
