package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/cache"
	"github.com/posfleet/station-gateway/internal/config"
	"github.com/posfleet/station-gateway/internal/database"
	apperrors "github.com/posfleet/station-gateway/internal/errors"
	"github.com/posfleet/station-gateway/internal/model"
	"github.com/posfleet/station-gateway/internal/repository"
	"github.com/posfleet/station-gateway/internal/util"
)

// txRunner runs a function inside a database transaction. *database.DB
// satisfies it; tests substitute a pass-through.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// tokenIssuer mints station tokens. *token.Issuer satisfies it.
type tokenIssuer interface {
	Issue(stationID, locationID, franchiseID, deviceFingerprint, stationName string) (string, time.Time, error)
}

// RedeemResult is returned to the device after a successful pairing.
type RedeemResult struct {
	Token     string
	ExpiresAt time.Time
	Station   *model.Station
}

// StationService owns the pairing state machine: code issue, redemption,
// untrust and transfer.
type StationService struct {
	db          txRunner
	stationRepo repository.StationRepository
	deviceRepo  repository.TrustedDeviceRepository
	trustCache  *cache.TrustCache
	issuer      tokenIssuer
}

func NewStationService(
	db txRunner,
	stationRepo repository.StationRepository,
	deviceRepo repository.TrustedDeviceRepository,
	trustCache *cache.TrustCache,
	issuer tokenIssuer,
) *StationService {
	return &StationService{
		db:          db,
		stationRepo: stationRepo,
		deviceRepo:  deviceRepo,
		trustCache:  trustCache,
		issuer:      issuer,
	}
}

func (s *StationService) Create(ctx context.Context, locationID, franchiseID, name string) (*model.Station, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if strings.TrimSpace(locationID) == "" {
		return nil, apperrors.MissingRequired("locationId")
	}
	if strings.TrimSpace(franchiseID) == "" {
		return nil, apperrors.MissingRequired("franchiseId")
	}

	station, err := s.stationRepo.Create(ctx, model.CreateStationParams{
		ID:          uuid.New().String(),
		LocationID:  locationID,
		FranchiseID: franchiseID,
		Name:        strings.TrimSpace(name),
	})
	if err != nil {
		return nil, fmt.Errorf("create station: %w", err)
	}

	log.Info().
		Str("stationId", station.ID).
		Str("locationId", locationID).
		Msg("station provisioned")

	return station, nil
}

func (s *StationService) Get(ctx context.Context, stationID string) (*model.Station, error) {
	station, err := s.stationRepo.FindByID(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("find station: %w", err)
	}
	if station == nil {
		return nil, apperrors.NotFound("Station")
	}
	return station, nil
}

func (s *StationService) List(ctx context.Context, limit, offset int) ([]model.Station, error) {
	return s.stationRepo.FindAll(ctx, limit, offset)
}

func (s *StationService) DeviceHistory(ctx context.Context, stationID string) ([]model.TrustedDevice, error) {
	if _, err := s.Get(ctx, stationID); err != nil {
		return nil, err
	}
	return s.deviceRepo.FindByStation(ctx, stationID)
}

// IssueCode sets a fresh one-time pairing code on the station. Valid from
// both unpaired and paired states; re-issuing while paired does not break the
// current device's trust.
func (s *StationService) IssueCode(ctx context.Context, stationID string) (*model.Station, error) {
	if _, err := s.Get(ctx, stationID); err != nil {
		return nil, err
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	station, err := s.stationRepo.SetPairingCode(ctx, model.SetPairingCodeParams{
		StationID: stationID,
		Code:      code,
		ExpiresAt: time.Now().Add(config.PairingCodeTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("set pairing code: %w", err)
	}
	if station == nil {
		return nil, apperrors.NotFound("Station")
	}

	log.Info().
		Str("stationId", stationID).
		Str("code", util.MaskCode(code)).
		Time("expiresAt", *station.PairingCodeExpiresAt).
		Msg("pairing code issued")

	return station, nil
}

// uniqueCode generates a code that collides with no currently-active code.
// Exhausting the retries is an operational alarm, not a user error.
func (s *StationService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < config.PairingCodeMaxAttempts; attempt++ {
		code := generatePairingCode()
		existing, err := s.stationRepo.FindByActiveCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code uniqueness: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	log.Error().Int("attempts", config.PairingCodeMaxAttempts).Msg("pairing code generation exhausted")
	return "", apperrors.GenerationExhausted()
}

// Redeem exchanges a one-time pairing code for a signed station token. The
// repository's conditional update guarantees exactly one winner when two
// devices race on the same code; the losing request is classified after the
// fact into expired vs already-used.
func (s *StationService) Redeem(ctx context.Context, code, deviceFingerprint string) (*RedeemResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.MissingRequired("code")
	}
	if strings.TrimSpace(deviceFingerprint) == "" {
		return nil, apperrors.MissingRequired("deviceFingerprint")
	}

	var (
		station   *model.Station
		signed    string
		expiresAt time.Time
	)
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stations := s.stationRepo.WithTx(tx)
		devices := s.deviceRepo.WithTx(tx)

		redeemed, err := stations.RedeemCode(ctx, code, deviceFingerprint)
		if err != nil {
			return fmt.Errorf("redeem code: %w", err)
		}
		if redeemed == nil {
			return s.classifyRedeemFailure(ctx, code)
		}

		// At most one active binding per station: any lingering row belongs
		// to a previous pairing and is closed out first.
		if _, err := devices.RevokeActiveByStation(ctx, redeemed.ID); err != nil {
			return fmt.Errorf("revoke previous device: %w", err)
		}
		if _, err := devices.Create(ctx, model.CreateTrustedDeviceParams{
			ID:                uuid.New().String(),
			StationID:         redeemed.ID,
			DeviceFingerprint: deviceFingerprint,
		}); err != nil {
			return fmt.Errorf("create trusted device: %w", err)
		}

		// Claims come from the station row, never from the request. Minted
		// inside the transaction: a signing failure rolls the redemption
		// back so the device can retry with the same code.
		signed, expiresAt, err = s.issuer.Issue(
			redeemed.ID, redeemed.LocationID, redeemed.FranchiseID, deviceFingerprint, redeemed.Name,
		)
		if err != nil {
			return fmt.Errorf("issue station token: %w", err)
		}

		station = redeemed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.trustCache.Set(ctx, station.ID, true)

	log.Info().
		Str("stationId", station.ID).
		Str("code", util.MaskCode(code)).
		Msg("pairing code redeemed")

	return &RedeemResult{Token: signed, ExpiresAt: expiresAt, Station: station}, nil
}

// classifyRedeemFailure turns a missed conditional update into a
// distinguishable rejection. The lookup is best-effort: if the row changed
// again in between, the generic invalid-code error is still safe.
func (s *StationService) classifyRedeemFailure(ctx context.Context, code string) error {
	station, err := s.stationRepo.FindByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("classify redeem failure: %w", err)
	}
	if station == nil {
		return apperrors.PairingCodeInvalid()
	}
	if station.PairingCodeUsedAt != nil {
		return apperrors.PairingCodeAlreadyUsed()
	}
	if station.PairingCodeExpiresAt != nil && !station.PairingCodeExpiresAt.After(time.Now()) {
		return apperrors.PairingCodeExpired()
	}
	return apperrors.PairingCodeInvalid()
}

// Untrust forcibly ends the station's device trust. The station is left
// code-less: a fresh pairing requires an explicit IssueCode call.
func (s *StationService) Untrust(ctx context.Context, stationID string) (*model.Station, error) {
	var station *model.Station
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		untrusted, err := s.stationRepo.WithTx(tx).Untrust(ctx, stationID)
		if err != nil {
			return fmt.Errorf("untrust station: %w", err)
		}
		if untrusted == nil {
			return apperrors.NotFound("Station")
		}
		if _, err := s.deviceRepo.WithTx(tx).RevokeActiveByStation(ctx, stationID); err != nil {
			return fmt.Errorf("revoke trusted device: %w", err)
		}
		station = untrusted
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The cache entry must be gone before the admin caller sees success,
	// otherwise the revoked device could keep operating until cache expiry.
	if err := s.trustCache.Invalidate(ctx, stationID); err != nil {
		return nil, fmt.Errorf("invalidate trust cache: %w", err)
	}

	log.Info().Str("stationId", stationID).Msg("station untrusted")
	return station, nil
}

// Transfer untrusts the station and immediately issues a replacement code:
// one administrative action to move the slot to new hardware. Unlike plain
// Untrust, the station is left ready to pair.
func (s *StationService) Transfer(ctx context.Context, stationID string) (*model.Station, error) {
	if _, err := s.Untrust(ctx, stationID); err != nil {
		return nil, err
	}
	station, err := s.IssueCode(ctx, stationID)
	if err != nil {
		return nil, err
	}

	log.Info().Str("stationId", stationID).Msg("station transferred")
	return station, nil
}
