package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blockhunt/internal/auth"
	"blockhunt/internal/db"
	"blockhunt/internal/models"
)

type AuthHandler struct {
	userRepo         *db.UserRepository
	refreshTokenRepo *db.RefreshTokenRepository
	jwtService       *auth.JWTService
}

func NewAuthHandler(
	userRepo *db.UserRepository,
	refreshTokenRepo *db.RefreshTokenRepository,
	jwtService *auth.JWTService,
) *AuthHandler {
	return &AuthHandler{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtService:       jwtService,
	}
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    string       `json:"expiresAt"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	displayName := sanitizeText(req.DisplayName)
	if displayName == "" {
		badRequest(w, "displayName is required")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		internalError(w)
		return
	}

	user, err := h.userRepo.Create(email, displayName, passwordHash, models.RoleUser)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "Account already registered")
		return
	}
	if err != nil {
		slog.Error("error creating user", "error", err)
		internalError(w)
		return
	}

	authResponse, err := h.generateAuthResponse(user)
	if err != nil {
		slog.Error("error issuing auth tokens", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.userRepo.FindByEmail(email)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid email or password")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid email or password")
		return
	}

	authResponse, err := h.generateAuthResponse(user)
	if err != nil {
		slog.Error("error issuing auth tokens", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, authResponse)
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	tokenHash := auth.HashRefreshToken(req.RefreshToken)
	refreshToken, err := h.refreshTokenRepo.FindByHash(tokenHash)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid refresh token")
		return
	}
	if err != nil {
		slog.Error("error finding refresh token", "error", err)
		internalError(w)
		return
	}

	if refreshToken.RevokedAt != nil {
		writeError(w, http.StatusUnauthorized, ErrCodeAuthFailed, "Refresh token has been revoked")
		return
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		writeError(w, http.StatusUnauthorized, ErrCodeAuthExpired, "Refresh token has expired")
		return
	}

	user, err := h.userRepo.FindByID(refreshToken.UserID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, ErrCodeAuthFailed, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	tokenPair, newRefreshHash, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		slog.Error("error generating refreshed token pair", "error", err)
		internalError(w)
		return
	}

	if err := h.refreshTokenRepo.Rotate(refreshToken.ID, user.ID, newRefreshHash, h.jwtService.RefreshTokenExpiry()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, ErrCodeAuthFailed, "Refresh token has already been used")
			return
		}
		slog.Error("error rotating refresh token", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	if err := h.refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		slog.Error("error revoking refresh tokens", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	tokenPair, refreshHash, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}

	if _, err := h.refreshTokenRepo.Create(user.ID, refreshHash, h.jwtService.RefreshTokenExpiry()); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}
