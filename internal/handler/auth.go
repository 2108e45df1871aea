package handler

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/digitalstore/internal/middleware"
	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
	"github.com/mmeshcher/digitalstore/internal/service"
	"github.com/mmeshcher/digitalstore/internal/validation"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	TotalPurchases  int64   `json:"totalPurchases"`
	TotalSpent      float64 `json:"totalSpent"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		IsEmailVerified: u.IsEmailVerified,
		TotalPurchases:  u.TotalPurchases,
		TotalSpent:      centsToDollars(u.TotalSpentCents),
	}
}

// Register регистрирует нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if !validation.IsValidEmail(req.Email) {
		h.writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if !validation.IsValidPassword(req.Password) {
		h.writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user, emailSent, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.writeError(w, http.StatusConflict, "user with this email already exists")
			return
		}
		h.logger.Error("register user failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "registration successful, please verify your email",
		"emailSent": emailSent,
		"user":      newUserResponse(user),
	})
}

// VerifyEmail подтверждает адрес почты по токену из письма.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "verification token is required")
		return
	}

	user, emailSent, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationNotFound) {
			h.writeError(w, http.StatusBadRequest, "invalid or expired verification token")
			return
		}
		h.logger.Error("verify email failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":          "email verified successfully",
		"welcomeEmailSent": emailSent,
		"user":             newUserResponse(user),
	})
}

// Login аутентифицирует пользователя и выдаёт JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.auth.BuildToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("build token failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newUserResponse(user),
	})
}

// Me возвращает профиль аутентифицированного пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}
