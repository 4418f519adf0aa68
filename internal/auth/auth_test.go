package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "pw" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash does not look like bcrypt: %q", hash)
	}
	if !CheckPassword(hash, "pw") {
		t.Fatal("expected password to verify")
	}
	if CheckPassword(hash, "PW") {
		t.Fatal("wrong password verified")
	}
	if CheckPassword("not-a-hash", "pw") {
		t.Fatal("malformed hash verified")
	}
}

func TestHashPasswordByteLimit(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"72 ascii bytes", strings.Repeat("p", 72), false},
		{"72 bytes of kana", strings.Repeat("パ", 24), false},
		{"73 ascii bytes", strings.Repeat("p", 73), true},
		{"30 kana is 90 bytes", strings.Repeat("パ", 30), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HashPassword(tt.password)
			if got := errors.Is(err, ErrPasswordTooLong); got != tt.wantErr {
				t.Fatalf("HashPassword err = %v, want too long %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	c := NewCodec(testSecret, time.Hour, false)
	want := Session{UserID: 42, Name: "Hanako", IsAdmin: true}

	token, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSessionRejectsTamperingAndExpiry(t *testing.T) {
	c := NewCodec(testSecret, time.Hour, false)
	token, err := c.Encode(Session{UserID: 1, Name: "a"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	t.Run("other secret", func(t *testing.T) {
		other := NewCodec([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, false)
		if _, err := other.Decode(token); err == nil {
			t.Fatal("expected signature failure")
		}
	})

	t.Run("swapped payload", func(t *testing.T) {
		admin, err := c.Encode(Session{UserID: 1, Name: "a", IsAdmin: true})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		parts := strings.Split(token, ".")
		parts[1] = strings.Split(admin, ".")[1]
		if _, err := c.Decode(strings.Join(parts, ".")); err == nil {
			t.Fatal("expected failure for modified token")
		}
	})

	t.Run("expired", func(t *testing.T) {
		late := NewCodec(testSecret, time.Hour, false)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := late.Decode(token); err == nil {
			t.Fatal("expected expiry failure")
		}
	})

	t.Run("flash token is not a session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if err := c.AddFlash(rr, req, Flash{Category: FlashSuccess, Message: "hi"}); err != nil {
			t.Fatalf("AddFlash: %v", err)
		}
		flash := rr.Result().Cookies()[0].Value
		if _, err := c.Decode(flash); err == nil {
			t.Fatal("flash token accepted as session")
		}
	})
}

func TestSetReadClearSessionCookie(t *testing.T) {
	c := NewCodec(testSecret, time.Hour, true)
	rr := httptest.NewRecorder()
	if err := c.SetSession(rr, Session{UserID: 7, Name: "Taro"}); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Errorf("cookie flags not set: %+v", cookies[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	s, ok := c.ReadSession(req)
	if !ok || s.UserID != 7 || s.Name != "Taro" || s.IsAdmin {
		t.Fatalf("ReadSession = %+v, %v", s, ok)
	}

	rr = httptest.NewRecorder()
	c.ClearSession(rr)
	cleared := rr.Result().Cookies()[0]
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("session cookie not cleared: %+v", cleared)
	}

	if _, ok := c.ReadSession(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Fatal("request without cookie has a session")
	}
}

func TestFlashesAreSingleUse(t *testing.T) {
	c := NewCodec(testSecret, time.Hour, false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := c.AddFlash(rr, req, Flash{Category: FlashWarning, Message: "first"}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	first := rr.Result().Cookies()[0]

	// A second notice on the next request keeps the first one.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(first)
	if err := c.AddFlash(rr, req, Flash{Category: FlashSuccess, Message: "second"}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	both := rr.Result().Cookies()[0]

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(both)
	got := c.PopFlashes(rr, req)
	if len(got) != 2 || got[0].Message != "first" || got[1].Category != FlashSuccess {
		t.Fatalf("PopFlashes = %+v", got)
	}
	cleared := rr.Result().Cookies()[0]
	if cleared.Name != FlashCookieName || cleared.MaxAge >= 0 {
		t.Fatalf("flash cookie not cleared: %+v", cleared)
	}

	rr = httptest.NewRecorder()
	if got := c.PopFlashes(rr, httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Fatalf("expected no flashes, got %+v", got)
	}
}

func TestPendingFlashesLeavesCookie(t *testing.T) {
	c := NewCodec(testSecret, time.Hour, false)

	rr := httptest.NewRecorder()
	if err := c.AddFlash(rr, httptest.NewRequest(http.MethodPost, "/x", nil), Flash{Category: FlashDanger, Message: "kept"}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	queued := rr.Result().Cookies()[0]

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(queued)
	if got := c.PendingFlashes(req); len(got) != 1 || got[0].Message != "kept" {
		t.Fatalf("PendingFlashes = %+v", got)
	}
	if n := len(rr.Result().Cookies()); n != 0 {
		t.Fatalf("PendingFlashes set %d cookies", n)
	}

	c.ClearFlashes(rr, req)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != FlashCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("ClearFlashes cookies = %+v", cookies)
	}

	rr = httptest.NewRecorder()
	c.ClearFlashes(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if n := len(rr.Result().Cookies()); n != 0 {
		t.Fatalf("ClearFlashes without a flash cookie set %d cookies", n)
	}
}

func TestSessionContext(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Fatal("empty context has a session")
	}
	ctx := WithSession(context.Background(), Session{UserID: 3})
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID != 3 {
		t.Fatalf("SessionFromContext = %+v, %v", s, ok)
	}
}
