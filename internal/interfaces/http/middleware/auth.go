package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingToken = errors.New("missing token")
)

// DefaultSessionTTL - срок жизни cookie после login
const DefaultSessionTTL = 12 * time.Hour

const AuthCookieName = "optimizer_auth_token"

type AuthConfig struct {
	Enabled     bool
	BearerToken string
	SessionTTL  time.Duration
}

// TokenSource - откуда взят токен запроса
type TokenSource string

const (
	TokenSourceNone   TokenSource = ""
	TokenSourceHeader TokenSource = "header"
	TokenSourceCookie TokenSource = "cookie"
	TokenSourceQuery  TokenSource = "query"
)

// Auth пропускает запрос только с действующим токеном
func Auth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ValidateRequestAuth(r, cfg); err != nil {
				_, source := ExtractToken(r)
				log.Warn("Unauthorized request",
					"method", r.Method,
					"path", r.URL.Path,
					"token_source", string(source),
					"reason", err.Error(),
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="infra-optimizer"`)
				WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ValidateRequestAuth возвращает nil, если auth выключена или токен совпал
func ValidateRequestAuth(r *http.Request, cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}

	token, source := ExtractToken(r)
	if source == TokenSourceNone {
		return ErrMissingToken
	}
	if !MatchToken(cfg, token) {
		return ErrUnauthorized
	}
	return nil
}

// MatchToken сравнивает токен с настроенным за постоянное время
func MatchToken(cfg AuthConfig, token string) bool {
	expected := strings.TrimSpace(cfg.BearerToken)
	token = strings.TrimSpace(token)
	if expected == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// ExtractToken ищет токен в Authorization, затем в cookie.
// Query-параметр token принимается только для WebSocket upgrade:
// браузерный WebSocket не умеет слать заголовки.
func ExtractToken(r *http.Request) (string, TokenSource) {
	if scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " "); ok {
		if strings.EqualFold(scheme, "Bearer") {
			if token := strings.TrimSpace(value); token != "" {
				return token, TokenSourceHeader
			}
		}
	}

	if c, err := r.Cookie(AuthCookieName); err == nil {
		if token := strings.TrimSpace(c.Value); token != "" {
			return token, TokenSourceCookie
		}
	}

	if IsWebSocketUpgrade(r) {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			return token, TokenSourceQuery
		}
	}

	return "", TokenSourceNone
}

// IsWebSocketUpgrade сообщает, что запрос открывает WebSocket
func IsWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func WriteAuthCookie(w http.ResponseWriter, token string, secure bool, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
