package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/posfleet/station-gateway/internal/errors"
	"github.com/posfleet/station-gateway/internal/middleware"
	"github.com/posfleet/station-gateway/internal/service"
)

// StationHandler is the authenticated terminal surface. Every route is mounted
// behind StationAuthMiddleware; all tenant identifiers come from the request
// scope, never from the payload.
type StationHandler struct {
	stationService *service.StationService
}

func NewStationHandler(stationService *service.StationService) *StationHandler {
	return &StationHandler{stationService: stationService}
}

func (h *StationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/profile", h.Profile)

	return r
}

// GET /station/profile
func (h *StationHandler) Profile(w http.ResponseWriter, r *http.Request) {
	scope := middleware.GetStationScope(r.Context())
	if scope == nil {
		writeError(w, apperrors.TokenMissing())
		return
	}

	station, err := h.stationService.Get(r.Context(), scope.StationID())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                scope.StationID(),
		"name":              station.Name,
		"locationId":        scope.LocationID(),
		"franchiseId":       scope.FranchiseID(),
		"deviceFingerprint": scope.DeviceFingerprint(),
		"pairedAt":          formatTime(station.PairedAt),
	})
}
