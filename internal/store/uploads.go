package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const uploadColumns = `id, station_id, uploaded_by, file_url, pump_serial,
	status, error_message, reading_ids, created_at, updated_at`

func scanUpload(row pgx.Row) (*model.Upload, error) {
	var u model.Upload
	var status string
	err := row.Scan(&u.ID, &u.StationID, &u.UploadedBy, &u.FileURL,
		&u.PumpSerial, &status, &u.ErrorMessage, &u.ReadingIDs,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan upload: %w", err)
	}
	u.Status = model.UploadStatus(status)
	return &u, nil
}

func (s *Store) Upload(ctx context.Context, id uuid.UUID) (*model.Upload, error) {
	return scanUpload(s.pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id))
}

func (s *Store) ListUploads(ctx context.Context, stationID uuid.UUID, limit int) ([]*model.Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+uploadColumns+` FROM uploads
		 WHERE station_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []*model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUploadTx(ctx context.Context, u *model.Upload, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		ids := u.ReadingIDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO uploads (id, station_id, uploaded_by, file_url,
				pump_serial, status, error_message, reading_ids, created_at,
				updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			u.ID, u.StationID, u.UploadedBy, u.FileURL, u.PumpSerial,
			string(u.Status), u.ErrorMessage, ids, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert upload: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdateUploadTx(ctx context.Context, u *model.Upload, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		ids := u.ReadingIDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		_, err := tx.Exec(ctx, `
			UPDATE uploads SET file_url = $2, pump_serial = $3, status = $4,
				error_message = $5, reading_ids = $6, updated_at = $7
			WHERE id = $1`,
			u.ID, u.FileURL, u.PumpSerial, string(u.Status), u.ErrorMessage,
			ids, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update upload: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}
