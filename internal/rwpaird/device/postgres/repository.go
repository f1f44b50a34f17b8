package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/restwell/restwell-pairing/internal/rwpaird/database"
	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	werrors "github.com/restwell/restwell-pairing/internal/rwpaird/errors"
)

// Repository persists paired devices in PostgreSQL, keyed by
// (user_id, device_id)
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Upsert(ctx context.Context, d *device.PairedDevice) error {
	const op = "PairedDeviceRepository.Upsert"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO paired_devices (
			user_id, device_id, device_type, device_name,
			paired_at, connection_state, last_active_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			device_type = EXCLUDED.device_type,
			device_name = EXCLUDED.device_name,
			connection_state = EXCLUDED.connection_state,
			last_active_at = EXCLUDED.last_active_at
	`,
		d.UserID,
		d.DeviceID,
		d.DeviceType,
		d.DeviceName,
		d.PairedAt,
		d.ConnectionState,
		d.LastActiveAt,
	)
	if err != nil {
		// Surfaces constraint violations as typed domain errors
		return database.MapError(err, op)
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, userID, deviceID string) (*device.PairedDevice, error) {
	const op = "PairedDeviceRepository.Find"

	var d device.PairedDevice
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, device_id, device_type, device_name,
		       paired_at, connection_state, last_active_at
		FROM paired_devices
		WHERE user_id = $1 AND device_id = $2
	`, userID, deviceID).Scan(
		&d.UserID,
		&d.DeviceID,
		&d.DeviceType,
		&d.DeviceName,
		&d.PairedAt,
		&d.ConnectionState,
		&d.LastActiveAt,
	)

	if err == sql.ErrNoRows {
		return nil, device.ErrNotFound
	}
	if err != nil {
		return nil, werrors.NewError("DB_ERROR", "failed to find paired device", op, err)
	}
	return &d, nil
}

func (r *Repository) List(ctx context.Context, userID string) ([]device.PairedDevice, error) {
	const op = "PairedDeviceRepository.List"

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, device_id, device_type, device_name,
		       paired_at, connection_state, last_active_at
		FROM paired_devices
		WHERE user_id = $1
		ORDER BY paired_at
	`, userID)
	if err != nil {
		return nil, werrors.NewError("DB_ERROR", "failed to list paired devices", op, err)
	}
	defer rows.Close()

	var devices []device.PairedDevice
	for rows.Next() {
		var d device.PairedDevice
		if err := rows.Scan(
			&d.UserID,
			&d.DeviceID,
			&d.DeviceType,
			&d.DeviceName,
			&d.PairedAt,
			&d.ConnectionState,
			&d.LastActiveAt,
		); err != nil {
			return nil, werrors.NewError("DB_ERROR", "failed to scan paired device", op, err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.NewError("DB_ERROR", "failed to iterate paired devices", op, err)
	}
	return devices, nil
}

func (r *Repository) Delete(ctx context.Context, userID, deviceID string) error {
	const op = "PairedDeviceRepository.Delete"

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM paired_devices
		WHERE user_id = $1 AND device_id = $2
	`, userID, deviceID)
	if err != nil {
		return werrors.NewError("DB_ERROR", "failed to delete paired device", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return werrors.NewError("DB_ERROR", "failed to get affected rows", op, err)
	}
	if rows == 0 {
		return device.ErrNotFound
	}
	return nil
}

func (r *Repository) TouchLastActive(ctx context.Context, userID, deviceID string, at time.Time) error {
	const op = "PairedDeviceRepository.TouchLastActive"

	result, err := r.db.ExecContext(ctx, `
		UPDATE paired_devices
		SET last_active_at = $3, connection_state = $4
		WHERE user_id = $1 AND device_id = $2
	`, userID, deviceID, at, device.StateConnected)
	if err != nil {
		return werrors.NewError("DB_ERROR", "failed to update device activity", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return werrors.NewError("DB_ERROR", "failed to get affected rows", op, err)
	}
	if rows == 0 {
		return device.ErrNotFound
	}
	return nil
}
