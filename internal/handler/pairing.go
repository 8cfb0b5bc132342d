package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/audit"
	apperrors "github.com/posfleet/station-gateway/internal/errors"
	"github.com/posfleet/station-gateway/internal/middleware"
	"github.com/posfleet/station-gateway/internal/service"
)

// PairingHandler serves the one unauthenticated device endpoint: exchanging a
// pairing code for a station token.
type PairingHandler struct {
	stationService *service.StationService
	attemptLimiter *middleware.AttemptRateLimiter
}

func NewPairingHandler(stationService *service.StationService) *PairingHandler {
	return &PairingHandler{
		stationService: stationService,
		attemptLimiter: middleware.NewAttemptRateLimiter(10, time.Minute),
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.attemptLimiter.Handler).Post("/", h.Pair)

	return r
}

// POST /pair
func (h *PairingHandler) Pair(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PairingCode       string `json:"pairingCode"`
		DeviceFingerprint string `json:"deviceFingerprint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.PairingCode) == "" {
		writeError(w, apperrors.MissingRequired("pairingCode"))
		return
	}
	if strings.TrimSpace(req.DeviceFingerprint) == "" {
		writeError(w, apperrors.MissingRequired("deviceFingerprint"))
		return
	}

	result, err := h.stationService.Redeem(r.Context(), req.PairingCode, req.DeviceFingerprint)
	if err != nil {
		code := string(apperrors.GetCode(err))
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventPairFailure,
			Details: map[string]interface{}{"code": code},
		})
		if _, ok := apperrors.AsAppError(err); !ok {
			log.Error().Err(err).Msg("pairing redemption failed")
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventPairSuccess,
		StationID: result.Station.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"station": map[string]any{
			"id":          result.Station.ID,
			"name":        result.Station.Name,
			"locationId":  result.Station.LocationID,
			"franchiseId": result.Station.FranchiseID,
		},
	})
}
