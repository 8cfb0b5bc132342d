package model

import (
	"time"
)

// Station is a provisioned terminal slot at a location. It owns the pairing
// state machine for the physical device occupying that slot.
type Station struct {
	ID          string `db:"id" json:"id"`
	LocationID  string `db:"location_id" json:"locationId"`
	FranchiseID string `db:"franchise_id" json:"franchiseId"`
	Name        string `db:"name" json:"name"`

	PairingCode          *string    `db:"pairing_code" json:"-"`
	PairingCodeExpiresAt *time.Time `db:"pairing_code_expires_at" json:"pairingCodeExpiresAt,omitempty"`
	PairingCodeUsedAt    *time.Time `db:"pairing_code_used_at" json:"-"`

	PairingStatus           PairingStatus `db:"pairing_status" json:"pairingStatus"`
	IsTrusted               bool          `db:"is_trusted" json:"isTrusted"`
	PairedDeviceFingerprint *string       `db:"paired_device_fingerprint" json:"-"`
	PairedAt                *time.Time    `db:"paired_at" json:"pairedAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// HasActivePairingCode reports whether the station currently holds an
// unexpired, unredeemed code.
func (s *Station) HasActivePairingCode(now time.Time) bool {
	return s.PairingCode != nil &&
		s.PairingCodeUsedAt == nil &&
		s.PairingCodeExpiresAt != nil &&
		s.PairingCodeExpiresAt.After(now)
}

type CreateStationParams struct {
	ID          string
	LocationID  string
	FranchiseID string
	Name        string
}

type SetPairingCodeParams struct {
	StationID string
	Code      string
	ExpiresAt time.Time
}
