package model

import (
	"time"
)

// TrustedDevice is the audit record of a device binding. A station accumulates
// one row per pairing over its lifetime; at most one row is active at a time.
type TrustedDevice struct {
	ID                string              `db:"id" json:"id"`
	StationID         string              `db:"station_id" json:"stationId"`
	DeviceFingerprint string              `db:"device_fingerprint" json:"deviceFingerprint"`
	Status            TrustedDeviceStatus `db:"status" json:"status"`
	BoundAt           time.Time           `db:"bound_at" json:"boundAt"`
	RevokedAt         *time.Time          `db:"revoked_at" json:"revokedAt,omitempty"`
}

type CreateTrustedDeviceParams struct {
	ID                string
	StationID         string
	DeviceFingerprint string
}
