package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/posfleet/station-gateway/internal/model"
)

type StationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Station, error)
	FindByCode(ctx context.Context, code string) (*model.Station, error)
	FindByActiveCode(ctx context.Context, code string) (*model.Station, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.Station, error)
	Create(ctx context.Context, params model.CreateStationParams) (*model.Station, error)
	SetPairingCode(ctx context.Context, params model.SetPairingCodeParams) (*model.Station, error)
	// RedeemCode atomically marks the code used and binds the device. The
	// WHERE clause is the concurrency guarantee: of two racing redemptions
	// exactly one matches the unused, unexpired row. Returns nil when the
	// code did not match (unknown, expired, or already used).
	RedeemCode(ctx context.Context, code, deviceFingerprint string) (*model.Station, error)
	Untrust(ctx context.Context, stationID string) (*model.Station, error)
	IsTrusted(ctx context.Context, stationID string) (bool, error)
	ClearExpiredCodes(ctx context.Context) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) StationRepository
}

// stationDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type stationDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type stationRepo struct {
	db stationDB
}

func NewStationRepository(db *sqlx.DB) StationRepository {
	return &stationRepo{db: db}
}

func (r *stationRepo) WithTx(tx *sqlx.Tx) StationRepository {
	return &stationRepo{db: tx}
}

func (r *stationRepo) FindByID(ctx context.Context, id string) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		SELECT * FROM stations WHERE id = $1
	`, id)
	return HandleNotFound(&station, err)
}

func (r *stationRepo) FindByCode(ctx context.Context, code string) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		SELECT * FROM stations WHERE pairing_code = $1
	`, code)
	return HandleNotFound(&station, err)
}

func (r *stationRepo) FindByActiveCode(ctx context.Context, code string) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		SELECT * FROM stations
		WHERE pairing_code = $1
		AND pairing_code_used_at IS NULL
		AND pairing_code_expires_at > NOW()
	`, code)
	return HandleNotFound(&station, err)
}

func (r *stationRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Station, error) {
	var stations []model.Station
	err := r.db.SelectContext(ctx, &stations, `
		SELECT * FROM stations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return stations, err
}

func (r *stationRepo) Create(ctx context.Context, params model.CreateStationParams) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		INSERT INTO stations (id, location_id, franchise_id, name, pairing_status, is_trusted)
		VALUES ($1, $2, $3, $4, 'unpaired', FALSE)
		RETURNING *
	`, params.ID, params.LocationID, params.FranchiseID, params.Name)
	if err != nil {
		return nil, err
	}
	return &station, nil
}

func (r *stationRepo) SetPairingCode(ctx context.Context, params model.SetPairingCodeParams) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		UPDATE stations SET
			pairing_code = $2,
			pairing_code_expires_at = $3,
			pairing_code_used_at = NULL,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, params.StationID, params.Code, params.ExpiresAt)
	return HandleNotFound(&station, err)
}

func (r *stationRepo) RedeemCode(ctx context.Context, code, deviceFingerprint string) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		UPDATE stations SET
			pairing_code_used_at = NOW(),
			pairing_status = 'paired',
			is_trusted = TRUE,
			paired_device_fingerprint = $2,
			paired_at = NOW(),
			updated_at = NOW()
		WHERE pairing_code = $1
		AND pairing_code_used_at IS NULL
		AND pairing_code_expires_at > NOW()
		RETURNING *
	`, code, deviceFingerprint)
	return HandleNotFound(&station, err)
}

func (r *stationRepo) Untrust(ctx context.Context, stationID string) (*model.Station, error) {
	var station model.Station
	err := r.db.GetContext(ctx, &station, `
		UPDATE stations SET
			is_trusted = FALSE,
			pairing_status = 'unpaired',
			paired_device_fingerprint = NULL,
			paired_at = NULL,
			pairing_code = NULL,
			pairing_code_expires_at = NULL,
			pairing_code_used_at = NULL,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, stationID)
	return HandleNotFound(&station, err)
}

func (r *stationRepo) IsTrusted(ctx context.Context, stationID string) (bool, error) {
	var trusted bool
	err := r.db.GetContext(ctx, &trusted, `
		SELECT is_trusted FROM stations WHERE id = $1
	`, stationID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return trusted, nil
}

func (r *stationRepo) ClearExpiredCodes(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stations SET
			pairing_code = NULL,
			pairing_code_expires_at = NULL,
			updated_at = NOW()
		WHERE pairing_code IS NOT NULL
		AND pairing_code_used_at IS NULL
		AND pairing_code_expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
