package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blockhunt/internal/models"
)

type QRCodeRepository struct {
	db *DB
}

func NewQRCodeRepository(db *DB) *QRCodeRepository {
	return &QRCodeRepository{db: db}
}

// Create stores one grant record referencing exactly one block definition.
func (r *QRCodeRepository) Create(label, blockID string, startsAt, endsAt *time.Time) (*models.QRCode, error) {
	id, err := newID("qr")
	if err != nil {
		return nil, fmt.Errorf("generating QR code ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.Exec(
		`INSERT INTO qr_codes (id, label, block_id, is_active, starts_at, ends_at, created_at) VALUES (?, ?, ?, 1, ?, ?, ?)`,
		id, label, blockID, timePtrToUTC(startsAt), timePtrToUTC(endsAt), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating QR code: %w", err)
	}

	return &models.QRCode{
		ID:        id,
		Label:     label,
		BlockID:   blockID,
		IsActive:  true,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		CreatedAt: now,
	}, nil
}

func (r *QRCodeRepository) FindByID(id string) (*models.QRCode, error) {
	var code models.QRCode
	var startsAt, endsAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, label, block_id, is_active, starts_at, ends_at, created_at FROM qr_codes WHERE id = ?`,
		id,
	).Scan(&code.ID, &code.Label, &code.BlockID, &code.IsActive, &startsAt, &endsAt, &code.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying QR code: %w", err)
	}

	code.StartsAt = timeOrNil(startsAt)
	code.EndsAt = timeOrNil(endsAt)

	return &code, nil
}

func (r *QRCodeRepository) FindAll() ([]*models.QRCode, error) {
	rows, err := r.db.Query(
		`SELECT id, label, block_id, is_active, starts_at, ends_at, created_at FROM qr_codes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying QR codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.QRCode
	for rows.Next() {
		var code models.QRCode
		var startsAt, endsAt sql.NullTime

		if err := rows.Scan(&code.ID, &code.Label, &code.BlockID, &code.IsActive, &startsAt, &endsAt, &code.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning QR code: %w", err)
		}

		code.StartsAt = timeOrNil(startsAt)
		code.EndsAt = timeOrNil(endsAt)
		codes = append(codes, &code)
	}

	return codes, rows.Err()
}

func (r *QRCodeRepository) SetActive(id string, active bool) error {
	result, err := r.db.Exec(`UPDATE qr_codes SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("toggling QR code: %w", err)
	}
	return requireRow(result)
}

func (r *QRCodeRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM qr_codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting QR code: %w", err)
	}
	return requireRow(result)
}

func timePtrToUTC(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
