package db

import (
	"fmt"
	"time"

	"blockhunt/internal/models"
)

// CollectionRepository manages the owned-blocks set. Both mutations are
// idempotent at the storage layer: adding a present id and removing an absent
// id are no-ops.
type CollectionRepository struct {
	db *DB
}

func NewCollectionRepository(db *DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// AddBlock merges one block into the user's owned set. The insert is the
// store's native set-add: the (user_id, block_id) primary key makes
// INSERT OR IGNORE atomic, so concurrent scans of the same code cannot credit
// twice and no read-modify-write is involved. Returns whether a row was
// actually inserted.
func (r *CollectionRepository) AddBlock(userID, blockID string, viaQRID *string) (bool, error) {
	result, err := r.db.Exec(
		`INSERT OR IGNORE INTO owned_blocks (user_id, block_id, via_qr_id, granted_at) VALUES (?, ?, ?, ?)`,
		userID, blockID, viaQRID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("adding block to collection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if err := r.touchOwner(userID); err != nil {
		return true, err
	}

	return true, nil
}

func (r *CollectionRepository) RemoveBlock(userID, blockID string) error {
	result, err := r.db.Exec(
		`DELETE FROM owned_blocks WHERE user_id = ? AND block_id = ?`,
		userID, blockID,
	)
	if err != nil {
		return fmt.Errorf("removing block from collection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil
	}

	return r.touchOwner(userID)
}

func (r *CollectionRepository) ListForUser(userID string) ([]*models.OwnedBlock, error) {
	rows, err := r.db.Query(
		`SELECT user_id, block_id, via_qr_id, granted_at FROM owned_blocks WHERE user_id = ? ORDER BY granted_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	defer rows.Close()

	var owned []*models.OwnedBlock
	for rows.Next() {
		var b models.OwnedBlock
		if err := rows.Scan(&b.UserID, &b.BlockID, &b.ViaQRID, &b.GrantedAt); err != nil {
			return nil, fmt.Errorf("scanning owned block: %w", err)
		}
		owned = append(owned, &b)
	}

	return owned, rows.Err()
}

// OwnedSet returns the user's collection as a membership set.
func (r *CollectionRepository) OwnedSet(userID string) (map[string]struct{}, error) {
	rows, err := r.db.Query(`SELECT block_id FROM owned_blocks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying owned set: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]struct{})
	for rows.Next() {
		var blockID string
		if err := rows.Scan(&blockID); err != nil {
			return nil, fmt.Errorf("scanning owned block id: %w", err)
		}
		owned[blockID] = struct{}{}
	}

	return owned, rows.Err()
}

func (r *CollectionRepository) CountForUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM owned_blocks WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting owned blocks: %w", err)
	}
	return count, nil
}

// touchOwner bumps the user's modification timestamp after a collection
// change.
func (r *CollectionRepository) touchOwner(userID string) error {
	_, err := r.db.Exec(`UPDATE users SET updated_at = ? WHERE id = ?`, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("updating owner timestamp: %w", err)
	}
	return nil
}
