package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"roomfinder/internal/models"
)

type DeviceTokenRepository struct {
	DB     *sql.DB
	Driver string
}

// Upsert registers token for userID. A token that moves to another
// account is reassigned.
func (r *DeviceTokenRepository) Upsert(ctx context.Context, t models.DeviceToken) error {
	t.Token = strings.TrimSpace(t.Token)
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	_, err := r.DB.ExecContext(ctx, Rebind(r.Driver, `
		INSERT INTO device_tokens (token, user_id, platform, updated_at)
		VALUES (?, ?, ?, ?)`),
		t.Token, t.UserID, t.Platform, t.UpdatedAt,
	)
	if err == nil || !isDuplicateKeyError(err) {
		return err
	}
	_, err = r.DB.ExecContext(ctx, Rebind(r.Driver, `
		UPDATE device_tokens SET user_id = ?, platform = ?, updated_at = ?
		WHERE token = ?`),
		t.UserID, t.Platform, t.UpdatedAt, t.Token,
	)
	return err
}

func (r *DeviceTokenRepository) TokensByUser(ctx context.Context, userID int) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, Rebind(r.Driver, `
		SELECT token FROM device_tokens WHERE user_id = ? ORDER BY updated_at DESC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *DeviceTokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, Rebind(r.Driver, `DELETE FROM device_tokens WHERE token = ?`), token)
	return err
}
