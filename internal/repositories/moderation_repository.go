package repositories

import (
	"context"
	"database/sql"
	"time"

	"roomfinder/internal/models"
)

type ModerationRepository struct {
	DB     *sql.DB
	Driver string
}

func (r *ModerationRepository) Record(ctx context.Context, e models.ModerationEntry) (models.ModerationEntry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	const insert = `
		INSERT INTO moderation_log (admin_id, listing_id, kind, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	args := []any{e.AdminID, e.ListingID, e.Kind, e.Action, e.Reason, e.CreatedAt}

	if r.Driver == DriverPgx {
		err := r.DB.QueryRowContext(ctx, Rebind(r.Driver, insert+" RETURNING id"), args...).Scan(&e.ID)
		return e, err
	}

	res, err := r.DB.ExecContext(ctx, insert, args...)
	if err != nil {
		return models.ModerationEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ModerationEntry{}, err
	}
	e.ID = id
	return e, nil
}

// List returns the newest entries, optionally narrowed to one listing.
func (r *ModerationRepository) List(ctx context.Context, listingID, limit int) ([]models.ModerationEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, admin_id, listing_id, kind, action, reason, created_at
		FROM moderation_log`
	var args []any
	if listingID > 0 {
		query += ` WHERE listing_id = ?`
		args = append(args, listingID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, Rebind(r.Driver, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ModerationEntry
	for rows.Next() {
		var e models.ModerationEntry
		if err := rows.Scan(&e.ID, &e.AdminID, &e.ListingID, &e.Kind, &e.Action, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
