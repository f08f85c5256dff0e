package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blockhunt/internal/db"
	"blockhunt/internal/models"
	"blockhunt/internal/unlock"
	"blockhunt/internal/ws"
)

type BlockHandler struct {
	blockRepo      *db.BlockRepository
	collectionRepo *db.CollectionRepository
	hub            *ws.Hub
}

func NewBlockHandler(blockRepo *db.BlockRepository, collectionRepo *db.CollectionRepository, hub *ws.Hub) *BlockHandler {
	return &BlockHandler{blockRepo: blockRepo, collectionRepo: collectionRepo, hub: hub}
}

// BlockView is a catalog entry annotated with the toolbox visibility decision
// for the requesting user.
type BlockView struct {
	*models.BlockDefinition
	Unlocked bool `json:"unlocked"`
}

// GET /api/v1/blocks
func (h *BlockHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	blocks, err := h.blockRepo.FindAll()
	if err != nil {
		slog.Error("error listing block definitions", "error", err)
		internalError(w)
		return
	}

	owned, err := h.collectionRepo.OwnedSet(userID)
	if err != nil {
		slog.Error("error loading owned set", "error", err, "user_id", userID)
		internalError(w)
		return
	}

	views := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, BlockView{
			BlockDefinition: b,
			Unlocked:        unlock.IsUnlocked(b.ID, owned, b.IsDefault),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"blocks": views})
}

type SetDefaultRequest struct {
	IsDefaultBlock *bool `json:"isDefaultBlock" validate:"required"`
}

// PATCH /api/v1/blocks/{blockID}/default  (admin)
func (h *BlockHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	if blockID == "" {
		badRequest(w, "blockID is required")
		return
	}

	var req SetDefaultRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.blockRepo.SetDefault(blockID, *req.IsDefaultBlock); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Block not found")
			return
		}
		slog.Error("error toggling block default", "error", err, "block_id", blockID)
		internalError(w)
		return
	}

	block, err := h.blockRepo.FindByID(blockID)
	if err != nil {
		slog.Error("error loading block", "error", err, "block_id", blockID)
		internalError(w)
		return
	}

	// Starter visibility changed for everyone; open editors refetch.
	h.hub.BroadcastDispatch(ws.EventCatalogUpdated, ws.CatalogUpdatedPayload{
		BlockID:        block.ID,
		IsDefaultBlock: block.IsDefault,
	})

	writeJSON(w, http.StatusOK, block)
}
