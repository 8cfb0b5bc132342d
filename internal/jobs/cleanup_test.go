package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/posfleet/station-gateway/internal/model"
	"github.com/posfleet/station-gateway/internal/repository"
)

type mockAdminSessionRepo struct {
	deleteExpiredCount int64
	calls              int
}

func (m *mockAdminSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error) {
	return nil, nil
}

func (m *mockAdminSessionRepo) Create(ctx context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error) {
	return nil, nil
}

func (m *mockAdminSessionRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockAdminSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return nil
}

func (m *mockAdminSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls++
	return m.deleteExpiredCount, nil
}

type mockCleanupStationRepo struct {
	clearedCount int64
	calls        int
}

func (m *mockCleanupStationRepo) WithTx(tx *sqlx.Tx) repository.StationRepository { return m }

func (m *mockCleanupStationRepo) FindByID(ctx context.Context, id string) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) FindByCode(ctx context.Context, code string) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) FindByActiveCode(ctx context.Context, code string) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) Create(ctx context.Context, params model.CreateStationParams) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) SetPairingCode(ctx context.Context, params model.SetPairingCodeParams) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) RedeemCode(ctx context.Context, code, deviceFingerprint string) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) Untrust(ctx context.Context, stationID string) (*model.Station, error) {
	return nil, nil
}

func (m *mockCleanupStationRepo) IsTrusted(ctx context.Context, stationID string) (bool, error) {
	return false, nil
}

func (m *mockCleanupStationRepo) ClearExpiredCodes(ctx context.Context) (int64, error) {
	m.calls++
	return m.clearedCount, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("runs once immediately on start", func(t *testing.T) {
		sessions := &mockAdminSessionRepo{deleteExpiredCount: 2}
		stations := &mockCleanupStationRepo{clearedCount: 3}
		job := NewCleanupJob(sessions, stations, time.Hour)

		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()

		assert.Equal(t, 1, sessions.calls)
		assert.Equal(t, 1, stations.calls)
	})

	t.Run("stop prevents further runs", func(t *testing.T) {
		sessions := &mockAdminSessionRepo{}
		stations := &mockCleanupStationRepo{}
		job := NewCleanupJob(sessions, stations, 20*time.Millisecond)

		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()
		callsAtStop := stations.calls
		time.Sleep(60 * time.Millisecond)

		assert.Equal(t, callsAtStop, stations.calls)
	})
}
