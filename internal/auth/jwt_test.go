package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/dualmind/config"
)

func TestLoadSecret(t *testing.T) {
	if _, err := LoadSecret(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := LoadSecret(&config.Config{}); err == nil {
		t.Error("expected error for empty secret")
	}
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "s3cret"
	secret, err := LoadSecret(cfg)
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(secret) != "s3cret" {
		t.Errorf("secret = %q", secret)
	}
}

func TestMiddlewareAcceptsSignedToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := Sign("user-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	e := echo.New()
	handler := Middleware(secret)(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("subject = %q", rec.Body.String())
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	e := echo.New()
	handler := Middleware([]byte("right"))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for name, header := range map[string]string{
		"missing": "",
		"garbage": "Bearer not.a.jwt",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		err := handler(e.NewContext(req, rec))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %v", name, err)
		}
	}

	wrongKey, _ := Sign("user-1", []byte("wrong"), time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+wrongKey)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %v", err)
	}
}

func TestMiddlewareRejectsUnsignedAlgorithm(t *testing.T) {
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	e := echo.New()
	handler := Middleware([]byte("secret"))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	err = handler(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("alg=none token: expected 401, got %v", err)
	}
}

func TestMiddlewareReadsCookie(t *testing.T) {
	secret := []byte("cookie-secret")
	tok, _ := Sign("user-2", secret, time.Hour)

	e := echo.New()
	handler := Middleware(secret)(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: tok})
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Body.String() != "user-2" {
		t.Errorf("subject = %q", rec.Body.String())
	}
}
