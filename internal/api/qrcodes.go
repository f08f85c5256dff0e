package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"blockhunt/internal/db"
	"blockhunt/internal/scan"
)

// QRCodeHandler serves the instructor-side management of scannable grants.
// All routes are admin-gated.
type QRCodeHandler struct {
	qrCodeRepo *db.QRCodeRepository
	blockRepo  *db.BlockRepository
}

func NewQRCodeHandler(qrCodeRepo *db.QRCodeRepository, blockRepo *db.BlockRepository) *QRCodeHandler {
	return &QRCodeHandler{qrCodeRepo: qrCodeRepo, blockRepo: blockRepo}
}

type CreateQRCodeRequest struct {
	Label    string     `json:"label" validate:"required,min=1,max=128"`
	BlockID  string     `json:"blockId" validate:"required,max=64"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}

// POST /api/v1/qr-codes
//
// One record per call, each granting exactly one block.
func (h *QRCodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQRCodeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	label := sanitizeText(req.Label)
	if label == "" {
		badRequest(w, "label is required")
		return
	}

	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		badRequest(w, "endsAt must not be before startsAt")
		return
	}

	if _, err := h.blockRepo.FindByID(req.BlockID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			badRequest(w, "blockId does not reference a known block")
			return
		}
		slog.Error("error checking block", "error", err, "block_id", req.BlockID)
		internalError(w)
		return
	}

	code, err := h.qrCodeRepo.Create(label, req.BlockID, req.StartsAt, req.EndsAt)
	if err != nil {
		slog.Error("error creating QR code", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, code)
}

// GET /api/v1/qr-codes
func (h *QRCodeHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	codes, err := h.qrCodeRepo.FindAll()
	if err != nil {
		slog.Error("error listing QR codes", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"qrCodes": codes})
}

// GET /api/v1/qr-codes/{codeID}
func (h *QRCodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := h.qrCodeRepo.FindByID(chi.URLParam(r, "codeID"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "QR code not found")
		return
	}
	if err != nil {
		slog.Error("error finding QR code", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

// GET /api/v1/qr-codes/{codeID}/payload
//
// Returns the JSON text to embed in the printed code.
func (h *QRCodeHandler) GetPayload(w http.ResponseWriter, r *http.Request) {
	code, err := h.qrCodeRepo.FindByID(chi.URLParam(r, "codeID"))
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "QR code not found")
		return
	}
	if err != nil {
		slog.Error("error finding QR code", "error", err)
		internalError(w)
		return
	}

	block, err := h.blockRepo.FindByID(code.BlockID)
	if err != nil {
		slog.Error("error loading block for payload", "error", err, "block_id", code.BlockID)
		internalError(w)
		return
	}

	payload, err := scan.Encode(code.ID, code.BlockID, block.Name, code.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		slog.Error("error encoding payload", "error", err, "code_id", code.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"payload": payload})
}

type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// PATCH /api/v1/qr-codes/{codeID}/active
func (h *QRCodeHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	codeID := chi.URLParam(r, "codeID")

	var req SetActiveRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.qrCodeRepo.SetActive(codeID, *req.IsActive); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "QR code not found")
			return
		}
		slog.Error("error toggling QR code", "error", err, "code_id", codeID)
		internalError(w)
		return
	}

	code, err := h.qrCodeRepo.FindByID(codeID)
	if err != nil {
		slog.Error("error loading QR code", "error", err, "code_id", codeID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

// DELETE /api/v1/qr-codes/{codeID}
func (h *QRCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	codeID := chi.URLParam(r, "codeID")

	if err := h.qrCodeRepo.Delete(codeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "QR code not found")
			return
		}
		slog.Error("error deleting QR code", "error", err, "code_id", codeID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "QR code deleted"})
}
