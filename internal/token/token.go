package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors; the authenticator maps them to auth failure reasons.
var (
	ErrInvalid = errors.New("invalid station token")
	ErrExpired = errors.New("station token expired")
)

// StationClaims is the signed payload binding a device to its station scope.
// Claims are immutable once signed and are the only legitimate source of
// request scope; nothing downstream may read these identifiers from request
// bodies or query parameters.
type StationClaims struct {
	jwt.RegisteredClaims
	StationID         string `json:"station_id"`
	LocationID        string `json:"location_id"`
	FranchiseID       string `json:"franchise_id"`
	DeviceFingerprint string `json:"device_fingerprint"`
	StationName       string `json:"station_name"`
}

// Issuer mints and verifies station tokens with an HMAC-SHA256 server secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue signs a station token for the given scope. Called only from the
// pairing redemption path, never from arbitrary request input.
func (i *Issuer) Issue(stationID, locationID, franchiseID, deviceFingerprint, stationName string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := StationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   stationID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		StationID:         stationID,
		LocationID:        locationID,
		FranchiseID:       franchiseID,
		DeviceFingerprint: deviceFingerprint,
		StationName:       stationName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a station token. Tokens signed with any method
// other than HS256 are rejected outright. Returns ErrExpired for an
// otherwise-valid token past its TTL, ErrInvalid for everything else.
func (i *Issuer) Verify(raw string) (*StationClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &StationClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*StationClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Issuer != i.issuer {
		return nil, ErrInvalid
	}
	if claims.StationID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
