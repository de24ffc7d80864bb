package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantToken  string
		wantSource TokenSource
	}{
		{
			name:       "bearer header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			wantToken:  "abc",
			wantSource: TokenSourceHeader,
		},
		{
			name:       "scheme is case insensitive",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer  abc ") },
			wantToken:  "abc",
			wantSource: TokenSourceHeader,
		},
		{
			name:       "basic scheme ignored",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
			wantSource: TokenSourceNone,
		},
		{
			name:       "cookie",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "from-cookie"}) },
			wantToken:  "from-cookie",
			wantSource: TokenSourceCookie,
		},
		{
			name:       "query rejected without upgrade",
			setup:      func(r *http.Request) { r.URL.RawQuery = "token=q" },
			wantSource: TokenSourceNone,
		},
		{
			name: "query accepted on websocket upgrade",
			setup: func(r *http.Request) {
				r.URL.RawQuery = "token=q"
				r.Header.Set("Upgrade", "websocket")
			},
			wantToken:  "q",
			wantSource: TokenSourceQuery,
		},
		{
			name: "header wins over cookie",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer h")
				r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "c"})
			},
			wantToken:  "h",
			wantSource: TokenSourceHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil)
			tt.setup(r)

			token, source := ExtractToken(r)
			if token != tt.wantToken || source != tt.wantSource {
				t.Errorf("ExtractToken() = (%q, %q), want (%q, %q)", token, source, tt.wantToken, tt.wantSource)
			}
		})
	}
}

func TestValidateRequestAuth(t *testing.T) {
	cfg := AuthConfig{Enabled: true, BearerToken: "secret"}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := ValidateRequestAuth(r, cfg); !errors.Is(err, ErrMissingToken) {
		t.Errorf("no token: err = %v, want ErrMissingToken", err)
	}

	r.Header.Set("Authorization", "Bearer wrong")
	if err := ValidateRequestAuth(r, cfg); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong token: err = %v, want ErrUnauthorized", err)
	}

	r.Header.Set("Authorization", "Bearer secret")
	if err := ValidateRequestAuth(r, cfg); err != nil {
		t.Errorf("valid token: err = %v", err)
	}

	if err := ValidateRequestAuth(httptest.NewRequest(http.MethodGet, "/", nil), AuthConfig{}); err != nil {
		t.Errorf("disabled auth: err = %v", err)
	}

	if MatchToken(AuthConfig{Enabled: true}, "") {
		t.Errorf("empty configured token must never match")
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := Auth(AuthConfig{Enabled: true, BearerToken: "secret"}, logger.New("error"))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("missing WWW-Authenticate header")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestWriteAuthCookie_DefaultTTL(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAuthCookie(rec, "secret", true, 0)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.MaxAge != int(DefaultSessionTTL/time.Second) || !c.HttpOnly || !c.Secure {
		t.Errorf("unexpected cookie %+v", c)
	}
}
