package auth

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// FlashCategory tags a notice for styling.
type FlashCategory string

const (
	FlashSuccess FlashCategory = "success"
	FlashDanger  FlashCategory = "danger"
	FlashWarning FlashCategory = "warning"
)

// Flash is a transient notice shown once after a redirect.
type Flash struct {
	Category FlashCategory `json:"c"`
	Message  string        `json:"m"`
}

type flashClaims struct {
	Messages []Flash `json:"msgs"`
	jwt.RegisteredClaims
}

// AddFlash queues f for the next rendered page, keeping any notices still
// pending on r.
func (c *Codec) AddFlash(w http.ResponseWriter, r *http.Request, f Flash) error {
	pending := c.readFlashes(r)
	pending = append(pending, f)

	now := c.now()
	claims := flashClaims{
		Messages: pending,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{flashAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign flash: %w", err)
	}
	http.SetCookie(w, c.cookie(FlashCookieName, signed, int(flashTTL.Seconds())))
	return nil
}

// PopFlashes returns pending notices and clears them.
func (c *Codec) PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := c.PendingFlashes(r)
	c.ClearFlashes(w, r)
	return flashes
}

// PendingFlashes returns the notices queued on r without consuming them.
func (c *Codec) PendingFlashes(r *http.Request) []Flash {
	return c.readFlashes(r)
}

// ClearFlashes expires the flash cookie when r carries one.
func (c *Codec) ClearFlashes(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(FlashCookieName); err != nil {
		return
	}
	http.SetCookie(w, c.cookie(FlashCookieName, "", -1))
}

func (c *Codec) readFlashes(r *http.Request) []Flash {
	ck, err := r.Cookie(FlashCookieName)
	if err != nil || ck.Value == "" {
		return nil
	}
	var claims flashClaims
	if err := c.parse(ck.Value, &claims, flashAudience); err != nil {
		return nil
	}
	return claims.Messages
}
