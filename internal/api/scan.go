package api

import (
	"errors"
	"log/slog"
	"net/http"

	"blockhunt/internal/db"
	"blockhunt/internal/overlay"
	"blockhunt/internal/scan"
	"blockhunt/internal/unlock"
	"blockhunt/internal/ws"
)

// ScanHandler is the server side of the scan flow: decoded (or manually
// typed) payload text comes in, a resolution result goes out, and feedback
// events fan out to the user's open connections.
type ScanHandler struct {
	resolver   *unlock.Resolver
	blockRepo  *db.BlockRepository
	overlaySvc *overlay.Service
	hub        *ws.Hub
}

func NewScanHandler(resolver *unlock.Resolver, blockRepo *db.BlockRepository, overlaySvc *overlay.Service, hub *ws.Hub) *ScanHandler {
	return &ScanHandler{
		resolver:   resolver,
		blockRepo:  blockRepo,
		overlaySvc: overlaySvc,
		hub:        hub,
	}
}

type ScanRequest struct {
	Payload string `json:"payload" validate:"required,max=4096"`
}

type ScanResponse struct {
	IsNew      bool   `json:"isNew"`
	BlockID    string `json:"blockId"`
	BlockName  string `json:"blockName,omitempty"`
	TotalOwned int    `json:"totalOwned"`
}

// POST /api/v1/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	var req ScanRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	payload, err := scan.ParsePayload(req.Payload)
	if err != nil {
		var invalid *scan.InvalidPayloadError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeInvalidPayload, invalid.Error())
			return
		}
		slog.Error("error parsing payload", "error", err)
		internalError(w)
		return
	}

	result, err := h.resolver.Resolve(userID, payload)
	if err != nil {
		h.writeResolveError(w, userID, err)
		return
	}

	resp := ScanResponse{
		IsNew:      result.IsNew,
		BlockID:    result.BlockID,
		TotalOwned: result.TotalOwned,
	}
	if block, err := h.blockRepo.FindByID(result.BlockID); err == nil {
		resp.BlockName = block.Name
	}

	if result.IsNew {
		h.hub.SendToUser(userID, ws.EventBlockUnlocked, ws.BlockUnlockedPayload{
			BlockID:    result.BlockID,
			BlockName:  resp.BlockName,
			IsNew:      true,
			TotalOwned: result.TotalOwned,
		})
		h.overlaySvc.Celebrate(userID, result.BlockID)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ScanHandler) writeResolveError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, unlock.ErrUnknownCode):
		writeError(w, http.StatusNotFound, ErrCodeUnknownCode, "This QR code is not recognized")
	case errors.Is(err, unlock.ErrInactiveCode):
		writeError(w, http.StatusConflict, ErrCodeInactiveCode, "This QR code has been disabled")
	case errors.Is(err, unlock.ErrNotYetActive):
		writeError(w, http.StatusConflict, ErrCodeCodeNotYetActive, "This QR code is not active yet")
	case errors.Is(err, unlock.ErrExpiredCode):
		writeError(w, http.StatusConflict, ErrCodeCodeExpired, "This QR code has expired")
	default:
		slog.Error("error resolving scan", "error", err, "user_id", userID)
		writeError(w, http.StatusBadGateway, ErrCodeStorage, "Could not record the unlock, please try again")
	}
}
