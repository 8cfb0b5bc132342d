package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/posfleet/station-gateway/internal/model"
)

type TrustedDeviceRepository interface {
	FindActiveByStation(ctx context.Context, stationID string) (*model.TrustedDevice, error)
	FindByStation(ctx context.Context, stationID string) ([]model.TrustedDevice, error)
	Create(ctx context.Context, params model.CreateTrustedDeviceParams) (*model.TrustedDevice, error)
	RevokeActiveByStation(ctx context.Context, stationID string) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TrustedDeviceRepository
}

type trustedDeviceDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type trustedDeviceRepo struct {
	db trustedDeviceDB
}

func NewTrustedDeviceRepository(db *sqlx.DB) TrustedDeviceRepository {
	return &trustedDeviceRepo{db: db}
}

func (r *trustedDeviceRepo) WithTx(tx *sqlx.Tx) TrustedDeviceRepository {
	return &trustedDeviceRepo{db: tx}
}

func (r *trustedDeviceRepo) FindActiveByStation(ctx context.Context, stationID string) (*model.TrustedDevice, error) {
	var device model.TrustedDevice
	err := r.db.GetContext(ctx, &device, `
		SELECT * FROM trusted_devices
		WHERE station_id = $1 AND status = 'active'
	`, stationID)
	return HandleNotFound(&device, err)
}

func (r *trustedDeviceRepo) FindByStation(ctx context.Context, stationID string) ([]model.TrustedDevice, error) {
	var devices []model.TrustedDevice
	err := r.db.SelectContext(ctx, &devices, `
		SELECT * FROM trusted_devices
		WHERE station_id = $1
		ORDER BY bound_at DESC
	`, stationID)
	return devices, err
}

func (r *trustedDeviceRepo) Create(ctx context.Context, params model.CreateTrustedDeviceParams) (*model.TrustedDevice, error) {
	var device model.TrustedDevice
	err := r.db.GetContext(ctx, &device, `
		INSERT INTO trusted_devices (id, station_id, device_fingerprint, status, bound_at)
		VALUES ($1, $2, $3, 'active', NOW())
		RETURNING *
	`, params.ID, params.StationID, params.DeviceFingerprint)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *trustedDeviceRepo) RevokeActiveByStation(ctx context.Context, stationID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE trusted_devices SET
			status = 'revoked',
			revoked_at = NOW()
		WHERE station_id = $1 AND status = 'active'
	`, stationID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
