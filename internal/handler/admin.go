package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/audit"
	"github.com/posfleet/station-gateway/internal/middleware"
	"github.com/posfleet/station-gateway/internal/service"
)

type AdminHandler struct {
	adminService      *service.AdminService
	stationService    *service.StationService
	sessionMiddleware func(http.Handler) http.Handler
	loginRateLimiter  *middleware.AttemptRateLimiter
	isProduction      bool
}

func NewAdminHandler(
	adminService *service.AdminService,
	stationService *service.StationService,
	sessionMiddleware func(http.Handler) http.Handler,
	isProduction bool,
) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		stationService:    stationService,
		sessionMiddleware: sessionMiddleware,
		loginRateLimiter:  middleware.NewAttemptRateLimiter(5, time.Minute),
		isProduction:      isProduction,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginRateLimiter.Handler).Post("/api/login", h.Login)
	r.Post("/api/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)

		r.Get("/api/stations", h.ListStations)
		r.Post("/api/stations", h.CreateStation)
		r.Get("/api/stations/{id}", h.GetStation)
		r.Get("/api/stations/{id}/devices", h.ListDevices)
		r.Post("/api/stations/{id}/regenerate-code", h.RegenerateCode)
		r.Post("/api/stations/{id}/untrust", h.UntrustStation)
		r.Post("/api/stations/{id}/transfer", h.TransferStation)
	})

	return r
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password is required"})
		return
	}

	token, err := h.adminService.Login(r.Context(), req.Password)
	if err != nil {
		log.Error().Err(err).Msg("admin login error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Login failed"})
		return
	}

	if token == "" {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginFailure})
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess})
	middleware.SetSessionCookie(w, middleware.AdminSessionCookie, token, "/admin", h.isProduction)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.AdminSessionCookie)
	if err == nil && cookie.Value != "" {
		h.adminService.Logout(r.Context(), cookie.Value)
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLogout})
	}

	middleware.ClearSessionCookie(w, middleware.AdminSessionCookie, "/admin")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)

	stations, err := h.stationService.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list stations")
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(stations))
	for _, s := range stations {
		items = append(items, formatStation(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

func (h *AdminHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		LocationID  string `json:"locationId"`
		FranchiseID string `json:"franchiseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	station, err := h.stationService.Create(r.Context(), req.LocationID, req.FranchiseID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	h.auditAdmin(r, audit.EventStationCreate, station.ID, nil)
	writeJSON(w, http.StatusCreated, formatStation(*station))
}

func (h *AdminHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.stationService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatStation(*station))
}

func (h *AdminHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.stationService.DeviceHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": devices,
		"total": len(devices),
	})
}

// RegenerateCode issues a fresh pairing code. This is the only response that
// carries the raw code; it is shown once to the operator provisioning the
// terminal.
func (h *AdminHandler) RegenerateCode(w http.ResponseWriter, r *http.Request) {
	station, err := h.stationService.IssueCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.auditAdmin(r, audit.EventCodeRegenerate, station.ID, nil)

	resp := formatStation(*station)
	resp["pairingCode"] = station.PairingCode
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) UntrustStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.stationService.Untrust(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.auditAdmin(r, audit.EventUntrust, station.ID, nil)
	writeJSON(w, http.StatusOK, formatStation(*station))
}

// TransferStation revokes the current device and hands back a fresh code in a
// single operation, for moving a register to new hardware.
func (h *AdminHandler) TransferStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.stationService.Transfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.auditAdmin(r, audit.EventTransfer, station.ID, nil)

	resp := formatStation(*station)
	resp["pairingCode"] = station.PairingCode
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) auditAdmin(r *http.Request, event audit.EventType, stationID string, details map[string]interface{}) {
	actor := ""
	if session := middleware.GetAdminSession(r.Context()); session != nil {
		actor = session.ID
	}
	audit.LogFromRequest(r, audit.Event{
		Type:      event,
		Actor:     actor,
		StationID: stationID,
		Details:   details,
	})
}
