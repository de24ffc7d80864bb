package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/middleware"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// maxLoginBody ограничивает тело login-запроса
const maxLoginBody = 4 << 10

// AuthAPIHandler выдает и снимает cookie-сессию для браузерных клиентов ленты
type AuthAPIHandler struct {
	authConfig middleware.AuthConfig
	logger     *logger.Logger
}

type authLoginRequest struct {
	Token string `json:"token"`
}

type authStatusResponse struct {
	AuthEnabled   bool   `json:"auth_enabled"`
	Authenticated bool   `json:"authenticated"`
	TokenSource   string `json:"token_source,omitempty"`
}

func NewAuthAPIHandler(authConfig middleware.AuthConfig, log *logger.Logger) *AuthAPIHandler {
	return &AuthAPIHandler{
		authConfig: authConfig,
		logger:     log,
	}
}

// Login проверяет токен и ставит HttpOnly cookie на SessionTTL
func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authConfig.Enabled {
		middleware.WriteJSON(w, http.StatusOK, authStatusResponse{AuthEnabled: false, Authenticated: true})
		return
	}

	var req authLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !middleware.MatchToken(h.authConfig, req.Token) {
		h.logger.Warn("Auth login failed", "remote_addr", r.RemoteAddr)
		middleware.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}

	middleware.WriteAuthCookie(w, h.authConfig.BearerToken, r.TLS != nil, h.authConfig.SessionTTL)
	h.logger.Info("Auth session opened", "remote_addr", r.RemoteAddr)

	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{
		AuthEnabled:   true,
		Authenticated: true,
		TokenSource:   string(middleware.TokenSourceCookie),
	})
}

func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.ClearAuthCookie(w, r.TLS != nil)
	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{AuthEnabled: h.authConfig.Enabled})
}

// Status сообщает, пройдет ли текущий запрос auth и откуда взят токен
func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, source := middleware.ExtractToken(r)
	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{
		AuthEnabled:   h.authConfig.Enabled,
		Authenticated: middleware.ValidateRequestAuth(r, h.authConfig) == nil,
		TokenSource:   string(source),
	})
}
