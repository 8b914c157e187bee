package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booker/internal/application"
)

type authService interface {
	AuthCodeURL(state string) (string, error)
	HandleCallback(ctx context.Context, code string) (application.LoginResult, error)
	Logout(ctx context.Context, principal application.Principal) error
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Callback finishes the OAuth flow. Google redirects here with ?code=; clients
// that captured the code themselves POST {"code"}.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	if consentErr := query.Get("error"); consentErr != "" {
		h.log(r.Context(), "Callback", "error_kind", "consent_denied").WarnContext(r.Context(), "consent was not granted", "reason", consentErr)
		h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeAuthRequired,
			Message:   "Google sign-in was not completed: " + consentErr,
		})
		return
	}

	code := query.Get("code")
	if r.Method == http.MethodPost {
		var req callbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Callback", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode callback request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		code = req.Code
	}

	logger := h.log(r.Context(), "Callback")
	result, err := h.service.HandleCallback(r.Context(), strings.TrimSpace(code))
	if err != nil {
		logger.ErrorContext(r.Context(), "oauth callback failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "session issued")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		User: userDTO{
			ID:     result.User.ID,
			Email:  result.User.Email,
			Name:   result.User.Name,
			Domain: result.User.Domain,
		},
	})
}

// ConsentURL returns the Google consent URL. A state is generated when the
// client does not supply one.
func (h *AuthHandler) ConsentURL(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" {
		state = uuid.NewString()
	}

	url, err := h.service.AuthCodeURL(state)
	if err != nil {
		h.log(r.Context(), "ConsentURL").ErrorContext(r.Context(), "consent url unavailable", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, consentURLResponse{URL: url, State: state})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	logger := h.log(r.Context(), "Logout")
	if err := h.service.Logout(r.Context(), principal); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
			return
		}
		logger.ErrorContext(r.Context(), "logout failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user logged out")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type callbackRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      userDTO `json:"user"`
}

type userDTO struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain"`
}

type consentURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}
