package service

import (
	"crypto/rand"
	"math/big"

	"github.com/posfleet/station-gateway/internal/config"
)

// Alphabet for pairing codes. Visually ambiguous characters (0/O, 1/I) are
// excluded because codes are read off a screen and typed on a terminal keypad.
const pairingCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generatePairingCode() string {
	chars := []byte(pairingCodeChars)
	code := make([]byte, config.PairingCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		code[i] = chars[n.Int64()]
	}
	return string(code)
}
