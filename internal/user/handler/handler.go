// Package handler exposes the account authentication endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aBasicDream/tc/internal/platform/device"
	transporthttp "github.com/aBasicDream/tc/internal/transport/httputil"
	"github.com/aBasicDream/tc/internal/user/models"
	"github.com/aBasicDream/tc/internal/user/service"
	dErrors "github.com/aBasicDream/tc/pkg/domain-errors"
	"github.com/aBasicDream/tc/pkg/validation"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/auth/login", h.loginHandler)
	r.Post("/api/auth/logout", h.logoutHandler)
	r.Post("/api/auth/refresh", h.refreshHandler)
	r.Get("/api/auth/validate", h.validateHandler)
}

func (h *Handler) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transporthttp.WriteError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validation.Validate(req); err != nil {
		transporthttp.WriteError(w, r, err)
		return
	}

	req.LoginIP = transporthttp.ClientIP(r)
	req.Device = device.Describe(r.UserAgent())

	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		transporthttp.WriteError(w, r, err)
		return
	}
	transporthttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logoutHandler(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := bearerToken(r)
	if !ok {
		transporthttp.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	if err := h.svc.Logout(r.Context(), tokenString); err != nil {
		transporthttp.WriteError(w, r, err)
		return
	}
	transporthttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) refreshHandler(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := bearerToken(r)
	if !ok {
		transporthttp.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	resp, err := h.svc.Refresh(r.Context(), tokenString)
	if err != nil {
		transporthttp.WriteError(w, r, err)
		return
	}
	transporthttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) validateHandler(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := bearerToken(r)
	if !ok {
		transporthttp.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	claims, err := h.svc.ValidateToken(r.Context(), tokenString)
	if err != nil {
		transporthttp.WriteError(w, r, err)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		transporthttp.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "incomplete token"))
		return
	}
	transporthttp.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"userId":   userID,
		"username": claims.Username,
	})
}

func bearerToken(r *http.Request) (string, bool) {
	t, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || t == "" {
		return "", false
	}
	return t, true
}
