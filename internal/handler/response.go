package handler

import (
	"net/http"
	"time"

	"github.com/posfleet/station-gateway/internal/httputil"
	"github.com/posfleet/station-gateway/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// formatStation is the admin view of a station. The raw pairing code is
// intentionally absent from list responses; it is returned once, from the
// operation that generates it.
func formatStation(s model.Station) map[string]any {
	return map[string]any{
		"id":                   s.ID,
		"locationId":           s.LocationID,
		"franchiseId":          s.FranchiseID,
		"name":                 s.Name,
		"pairingStatus":        s.PairingStatus,
		"isTrusted":            s.IsTrusted,
		"hasActiveCode":        s.HasActivePairingCode(time.Now()),
		"pairingCodeExpiresAt": formatTime(s.PairingCodeExpiresAt),
		"pairedAt":             formatTime(s.PairedAt),
		"createdAt":            s.CreatedAt.Format(time.RFC3339),
	}
}
