package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blockhunt/internal/db"
	"blockhunt/internal/models"
)

type UserHandler struct {
	userRepo       *db.UserRepository
	collectionRepo *db.CollectionRepository
}

func NewUserHandler(userRepo *db.UserRepository, collectionRepo *db.CollectionRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo, collectionRepo: collectionRepo}
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	user, err := h.userRepo.FindByID(userID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UpdateUserRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=2,max=64"`
}

// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	var req UpdateUserRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.DisplayName != nil {
		displayName := sanitizeText(*req.DisplayName)
		if len(displayName) < 2 {
			badRequest(w, "displayName must be at least 2 characters")
			return
		}

		if err := h.userRepo.UpdateDisplayName(userID, displayName); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				notFound(w, "User not found")
				return
			}
			slog.Error("error updating display name", "error", err)
			internalError(w)
			return
		}
	}

	user, err := h.userRepo.FindByID(userID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GET /api/v1/users  (admin)
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.FindAll()
	if err != nil {
		slog.Error("error listing users", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// PATCH /api/v1/users/{userID}/role  (admin)
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")
	if targetID == "" {
		badRequest(w, "userID is required")
		return
	}

	var req UpdateRoleRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	// Admins cannot demote themselves; another admin has to do it.
	if targetID == GetUserID(r) && req.Role != models.RoleAdmin {
		conflict(w, "Cannot change your own role")
		return
	}

	if err := h.userRepo.UpdateRole(targetID, req.Role); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "User not found")
			return
		}
		slog.Error("error updating role", "error", err, "user_id", targetID)
		internalError(w)
		return
	}

	user, err := h.userRepo.FindByID(targetID)
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GET /api/v1/users/me/blocks
func (h *UserHandler) GetMyBlocks(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	owned, err := h.collectionRepo.ListForUser(userID)
	if err != nil {
		slog.Error("error listing collection", "error", err, "user_id", userID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"blocks": owned,
		"total":  len(owned),
	})
}

// DELETE /api/v1/users/me/blocks/{blockID}
//
// The only removal path: scanning never shrinks the owned set.
func (h *UserHandler) RemoveMyBlock(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	blockID := chi.URLParam(r, "blockID")
	if blockID == "" {
		badRequest(w, "blockID is required")
		return
	}

	if err := h.collectionRepo.RemoveBlock(userID, blockID); err != nil {
		slog.Error("error removing block", "error", err, "user_id", userID, "block_id", blockID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Block removed"})
}
