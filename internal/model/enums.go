package model

type PairingStatus string

const (
	PairingStatusUnpaired PairingStatus = "unpaired"
	PairingStatusPaired   PairingStatus = "paired"
)

type TrustedDeviceStatus string

const (
	TrustedDeviceActive  TrustedDeviceStatus = "active"
	TrustedDeviceRevoked TrustedDeviceStatus = "revoked"
)
