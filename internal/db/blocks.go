package db

import (
	"database/sql"
	"errors"
	"fmt"

	"blockhunt/internal/models"
)

type BlockRepository struct {
	db *DB
}

func NewBlockRepository(db *DB) *BlockRepository {
	return &BlockRepository{db: db}
}

func (r *BlockRepository) FindByID(id string) (*models.BlockDefinition, error) {
	var b models.BlockDefinition

	err := r.db.QueryRow(
		`SELECT id, name, category, icon, is_default FROM block_definitions WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.Name, &b.Category, &b.Icon, &b.IsDefault)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying block definition: %w", err)
	}

	return &b, nil
}

func (r *BlockRepository) FindAll() ([]*models.BlockDefinition, error) {
	rows, err := r.db.Query(
		`SELECT id, name, category, icon, is_default FROM block_definitions ORDER BY category, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying block definitions: %w", err)
	}
	defer rows.Close()

	var blocks []*models.BlockDefinition
	for rows.Next() {
		var b models.BlockDefinition
		if err := rows.Scan(&b.ID, &b.Name, &b.Category, &b.Icon, &b.IsDefault); err != nil {
			return nil, fmt.Errorf("scanning block definition: %w", err)
		}
		blocks = append(blocks, &b)
	}

	return blocks, rows.Err()
}

// SetDefault toggles whether a block is available without scanning.
func (r *BlockRepository) SetDefault(id string, isDefault bool) error {
	result, err := r.db.Exec(
		`UPDATE block_definitions SET is_default = ? WHERE id = ?`,
		isDefault, id,
	)
	if err != nil {
		return fmt.Errorf("updating block default flag: %w", err)
	}
	return requireRow(result)
}
