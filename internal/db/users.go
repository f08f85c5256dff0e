package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blockhunt/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(email, displayName, passwordHash, role string) (*models.User, error) {
	id, err := newID("usr")
	if err != nil {
		return nil, fmt.Errorf("generating user ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.Exec(
		`INSERT INTO users (id, email, display_name, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, displayName, role, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &models.User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now,
	}, nil
}

func (r *UserRepository) FindByID(id string) (*models.User, error) {
	return r.findOne(`SELECT id, email, display_name, role, password_hash, created_at, updated_at FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	return r.findOne(`SELECT id, email, display_name, role, password_hash, created_at, updated_at FROM users WHERE email = ?`, email)
}

func (r *UserRepository) FindAll() ([]*models.User, error) {
	rows, err := r.db.Query(
		`SELECT id, email, display_name, role, password_hash, created_at, updated_at FROM users ORDER BY display_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var updatedAt sql.NullTime

		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.PasswordHash, &u.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}

		u.UpdatedAt = timeOrNil(updatedAt)
		users = append(users, &u)
	}

	return users, rows.Err()
}

func (r *UserRepository) UpdateDisplayName(id, displayName string) error {
	result, err := r.db.Exec(
		`UPDATE users SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating display name: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) UpdateRole(id, role string) error {
	result, err := r.db.Exec(
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) findOne(query string, args ...any) (*models.User, error) {
	var u models.User
	var updatedAt sql.NullTime

	err := r.db.QueryRow(query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.Role,
		&u.PasswordHash,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.UpdatedAt = timeOrNil(updatedAt)

	return &u, nil
}
