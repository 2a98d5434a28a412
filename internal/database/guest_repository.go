package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staylong/rental-backend/internal/models"
)

const guestColumns = `id, full_name, email, phone, document_type, document_number, nationality, created_at, updated_at`

// GuestRepository handles guest lookups
type GuestRepository struct {
	db DB
}

// NewGuestRepository creates a new GuestRepository
func NewGuestRepository(db DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// GetGuestByID retrieves a guest by ID. Returns (nil, nil) if not found.
func (r *GuestRepository) GetGuestByID(ctx context.Context, id string) (*models.Guest, error) {
	var guest models.Guest
	err := r.db.GetContext(ctx, &guest, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// GetGuestByEmail retrieves a guest by normalized email. Returns (nil, nil) if not found.
func (r *GuestRepository) GetGuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	var guest models.Guest
	err := r.db.GetContext(ctx, &guest, `SELECT `+guestColumns+` FROM guests WHERE email = $1`, models.NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// upsertGuest inserts the guest or refreshes the contact fields of the existing
// row with the same email. Concurrent callers converge on one row.
func upsertGuest(ctx context.Context, q sqlx.QueryerContext, info models.GuestInfo) (*models.Guest, error) {
	query := `
		INSERT INTO guests (
			id, full_name, email, phone, document_type, document_number, nationality,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone,
			document_type = COALESCE(NULLIF(EXCLUDED.document_type, ''), guests.document_type),
			document_number = COALESCE(NULLIF(EXCLUDED.document_number, ''), guests.document_number),
			nationality = COALESCE(NULLIF(EXCLUDED.nationality, ''), guests.nationality),
			updated_at = NOW()
		RETURNING ` + guestColumns

	var guest models.Guest
	err := sqlx.GetContext(ctx, q, &guest, query,
		uuid.NewString(), info.FullName, models.NormalizeEmail(info.Email), info.Phone,
		info.DocumentType, info.DocumentNumber, info.Nationality,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guest: %w", err)
	}
	return &guest, nil
}
