package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/staylong/rental-backend/internal/models"
)

const roomColumns = `id, slug, name, monthly_rate, yearly_rate, capacity, amenities, images, created_at, updated_at`

// RoomRepository reads rooms. The booking core never writes them.
type RoomRepository struct {
	db DB
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetRoomByID retrieves a room by ID. Returns (nil, nil) if not found.
func (r *RoomRepository) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

// GetRoomBySlug retrieves a room by slug. Returns (nil, nil) if not found.
func (r *RoomRepository) GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE slug = $1`, slug)
}

func (r *RoomRepository) getOne(ctx context.Context, query string, arg string) (*models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}
