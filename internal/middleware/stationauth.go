package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/audit"
	"github.com/posfleet/station-gateway/internal/cache"
	apperrors "github.com/posfleet/station-gateway/internal/errors"
	"github.com/posfleet/station-gateway/internal/httputil"
	"github.com/posfleet/station-gateway/internal/token"
)

const StationTokenHeader = "X-Station-Token"

type contextKey string

const stationScopeContextKey contextKey = "stationScope"

// StationScope is the tenant scope attached to every authenticated station
// request. Fields are unexported so the only way a scope enters a request
// context is through a verified token in StationAuthMiddleware; handlers can
// read it but never substitute values from the request payload.
type StationScope struct {
	stationID         string
	locationID        string
	franchiseID       string
	stationName       string
	deviceFingerprint string
}

func (s *StationScope) StationID() string         { return s.stationID }
func (s *StationScope) LocationID() string        { return s.locationID }
func (s *StationScope) FranchiseID() string       { return s.franchiseID }
func (s *StationScope) StationName() string       { return s.stationName }
func (s *StationScope) DeviceFingerprint() string { return s.deviceFingerprint }

// GetStationScope returns the scope set by StationAuthMiddleware, or nil when
// the request did not pass through it.
func GetStationScope(ctx context.Context) *StationScope {
	if scope, ok := ctx.Value(stationScopeContextKey).(*StationScope); ok {
		return scope
	}
	return nil
}

// trustChecker is the authoritative trust lookup. StationRepository.IsTrusted
// satisfies it.
type trustChecker interface {
	IsTrusted(ctx context.Context, stationID string) (bool, error)
}

type StationAuthMiddleware struct {
	verifier   *token.Issuer
	trust      trustChecker
	trustCache *cache.TrustCache
}

func NewStationAuthMiddleware(verifier *token.Issuer, trust trustChecker, trustCache *cache.TrustCache) *StationAuthMiddleware {
	return &StationAuthMiddleware{
		verifier:   verifier,
		trust:      trust,
		trustCache: trustCache,
	}
}

// Handler authenticates a terminal request. Order matters: the token is
// verified before any lookup, and the trust flag is re-checked against the
// registry on every request so a revoked station is cut off even while its
// token is still cryptographically valid.
func (m *StationAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(StationTokenHeader)
		if raw == "" {
			m.reject(w, r, "", apperrors.TokenMissing())
			return
		}

		claims, err := m.verifier.Verify(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				m.reject(w, r, "", apperrors.TokenExpired())
				return
			}
			m.reject(w, r, "", apperrors.TokenInvalid())
			return
		}

		trusted, err := m.checkTrust(r.Context(), claims.StationID)
		if err != nil {
			log.Error().Err(err).Str("stationId", claims.StationID).Msg("station auth: trust lookup failed")
			httputil.WriteError(w, apperrors.Database(err))
			return
		}
		if !trusted {
			m.reject(w, r, claims.StationID, apperrors.StationRevoked())
			return
		}

		scope := &StationScope{
			stationID:         claims.StationID,
			locationID:        claims.LocationID,
			franchiseID:       claims.FranchiseID,
			stationName:       claims.StationName,
			deviceFingerprint: claims.DeviceFingerprint,
		}
		ctx := context.WithValue(r.Context(), stationScopeContextKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// checkTrust consults the cache first and falls back to the registry. A
// registry error propagates rather than defaulting to trusted.
func (m *StationAuthMiddleware) checkTrust(ctx context.Context, stationID string) (bool, error) {
	if trusted, ok := m.trustCache.Get(ctx, stationID); ok {
		return trusted, nil
	}
	trusted, err := m.trust.IsTrusted(ctx, stationID)
	if err != nil {
		return false, err
	}
	m.trustCache.Set(ctx, stationID, trusted)
	return trusted, nil
}

func (m *StationAuthMiddleware) reject(w http.ResponseWriter, r *http.Request, stationID string, err *apperrors.AppError) {
	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventAuthFailure,
		StationID: stationID,
		Details:   map[string]interface{}{"code": string(err.Code)},
	})
	httputil.WriteError(w, err)
}
