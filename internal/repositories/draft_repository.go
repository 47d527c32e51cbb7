package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomfinder/internal/models"
)

type ListingDraftRepository struct {
	DB     *sql.DB
	Driver string
}

// draftPayload is the JSON column holding the wizard fields.
type draftPayload struct {
	Basic      models.BasicInfo    `json:"basic"`
	Facilities models.Facilities   `json:"facilities"`
	Location   models.Point        `json:"location"`
	Images     []models.DraftImage `json:"images"`
}

func encodeDraft(d models.ListingDraft) (string, error) {
	b, err := json.Marshal(draftPayload{
		Basic:      d.Basic,
		Facilities: d.Facilities,
		Location:   d.Location,
		Images:     d.Images,
	})
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return string(b), nil
}

func decodeDraft(raw []byte, d *models.ListingDraft) error {
	var p draftPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode draft %s: %w", d.ID, err)
	}
	d.Basic = p.Basic
	d.Facilities = p.Facilities
	d.Location = p.Location
	d.Images = p.Images
	if d.Images == nil {
		d.Images = []models.DraftImage{}
	}
	return nil
}

func (r *ListingDraftRepository) q(query string) string {
	return Rebind(r.Driver, query)
}

func (r *ListingDraftRepository) Create(ctx context.Context, d models.ListingDraft) error {
	payload, err := encodeDraft(d)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.q(`
		INSERT INTO listing_drafts (id, owner_id, step, version, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		d.ID, d.OwnerID, d.Step, d.Version, payload, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *ListingDraftRepository) Get(ctx context.Context, id string, ownerID int) (models.ListingDraft, error) {
	row := r.DB.QueryRowContext(ctx, r.q(`
		SELECT id, owner_id, step, version, payload, created_at, updated_at
		FROM listing_drafts
		WHERE id = ? AND owner_id = ?`), id, ownerID)

	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ListingDraft{}, models.ErrDraftNotFound
	}
	return d, err
}

// Update writes d if the stored row still has d.Version and bumps the
// version. A row changed since d was read fails with ErrDraftConflict.
func (r *ListingDraftRepository) Update(ctx context.Context, d models.ListingDraft) error {
	payload, err := encodeDraft(d)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, r.q(`
		UPDATE listing_drafts SET step = ?, payload = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND owner_id = ? AND version = ?`),
		d.Step, payload, d.UpdatedAt, d.ID, d.OwnerID, d.Version,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = r.DB.QueryRowContext(ctx, r.q(`SELECT 1 FROM listing_drafts WHERE id = ? AND owner_id = ?`), d.ID, d.OwnerID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ErrDraftNotFound
	case err != nil:
		return err
	}
	return models.ErrDraftConflict
}

func (r *ListingDraftRepository) Delete(ctx context.Context, id string, ownerID int) error {
	res, err := r.DB.ExecContext(ctx, r.q(`DELETE FROM listing_drafts WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrDraftNotFound
	}
	return nil
}

func (r *ListingDraftRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.ListingDraft, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`
		SELECT id, owner_id, step, version, payload, created_at, updated_at
		FROM listing_drafts
		WHERE owner_id = ?
		ORDER BY updated_at DESC`), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDrafts(rows)
}

// ListExpired returns drafts not touched since before, oldest first.
func (r *ListingDraftRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]models.ListingDraft, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, r.q(`
		SELECT id, owner_id, step, version, payload, created_at, updated_at
		FROM listing_drafts
		WHERE updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?`), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDrafts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(s rowScanner) (models.ListingDraft, error) {
	var (
		d       models.ListingDraft
		payload []byte
	)
	if err := s.Scan(&d.ID, &d.OwnerID, &d.Step, &d.Version, &payload, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return models.ListingDraft{}, err
	}
	if err := decodeDraft(payload, &d); err != nil {
		return models.ListingDraft{}, err
	}
	return d, nil
}

func collectDrafts(rows *sql.Rows) ([]models.ListingDraft, error) {
	var drafts []models.ListingDraft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
