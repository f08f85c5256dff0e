package unlock

import (
	"errors"
	"fmt"
	"time"

	"blockhunt/internal/db"
	"blockhunt/internal/scan"
)

// Result is the outcome of resolving a valid scan. IsNew is false when the
// user already owned the referenced block, in which case nothing was written.
type Result struct {
	IsNew      bool   `json:"isNew"`
	BlockID    string `json:"blockId"`
	TotalOwned int    `json:"totalOwned"`
}

// Resolver turns validated scan payloads into collection credits. The credit
// itself is the store's atomic set-add, so the duplicate check and the write
// cannot race across concurrent sessions.
type Resolver struct {
	codes      *db.QRCodeRepository
	collection *db.CollectionRepository
	now        func() time.Time
}

func NewResolver(codes *db.QRCodeRepository, collection *db.CollectionRepository) *Resolver {
	return &Resolver{
		codes:      codes,
		collection: collection,
		now:        time.Now,
	}
}

// Resolve looks up the referenced code record, enforces its inclusive date
// window and enabled flag, and credits the block to the user exactly once.
// The window is checked first: a code outside its dates reports as expired or
// not-yet-active even when it has also been disabled. The record's referenced
// block is authoritative; the payload's block field is advisory. Exactly one
// persistence write happens on the new-unlock path and zero on the duplicate
// path.
func (r *Resolver) Resolve(userID string, payload *scan.Payload) (*Result, error) {
	code, err := r.codes.FindByID(payload.QRID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnknownCode
	}
	if err != nil {
		return nil, fmt.Errorf("looking up QR code: %w", err)
	}

	now := r.now()
	if code.StartsAt != nil && now.Before(*code.StartsAt) {
		return nil, ErrNotYetActive
	}
	if code.EndsAt != nil && now.After(*code.EndsAt) {
		return nil, ErrExpiredCode
	}

	if !code.IsActive {
		return nil, ErrInactiveCode
	}

	inserted, err := r.collection.AddBlock(userID, code.BlockID, &code.ID)
	if err != nil {
		return nil, fmt.Errorf("crediting block: %w", err)
	}

	total, err := r.collection.CountForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("counting collection: %w", err)
	}

	return &Result{
		IsNew:      inserted,
		BlockID:    code.BlockID,
		TotalOwned: total,
	}, nil
}

// IsUnlocked is the editor surface's toolbox predicate: default blocks are
// visible to everyone regardless of the owned set.
func IsUnlocked(blockID string, owned map[string]struct{}, isDefault bool) bool {
	if isDefault {
		return true
	}
	_, ok := owned[blockID]
	return ok
}
