package service

import (
	"context"
	"time"

	"github.com/posfleet/station-gateway/internal/config"
	"github.com/posfleet/station-gateway/internal/model"
	"github.com/posfleet/station-gateway/internal/repository"
	"github.com/posfleet/station-gateway/internal/util"
)

// AdminService handles the administrator credential flow. It is entirely
// separate from station tokens: admins authenticate with a password and a
// server-side session, never with a station token.
type AdminService struct {
	sessionRepo       repository.AdminSessionRepository
	adminPasswordHash string
	sessionSecret     string
}

func NewAdminService(
	sessionRepo repository.AdminSessionRepository,
	adminPasswordHash, sessionSecret string,
) *AdminService {
	return &AdminService{
		sessionRepo:       sessionRepo,
		adminPasswordHash: adminPasswordHash,
		sessionSecret:     sessionSecret,
	}
}

// Login validates the password against the configured bcrypt hash and creates
// a session. Returns the raw session token, or "" when the password is wrong.
func (s *AdminService) Login(ctx context.Context, password string) (string, error) {
	if s.adminPasswordHash == "" || !util.CheckPasswordHash(password, s.adminPasswordHash) {
		return "", nil
	}

	tkn, err := util.GenerateToken()
	if err != nil {
		return "", err
	}

	tokenHash := util.HmacSHA256(s.sessionSecret, tkn)
	expiresAt := time.Now().Add(config.AdminSessionTTL)

	_, err = s.sessionRepo.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", err
	}

	return tkn, nil
}

func (s *AdminService) Logout(ctx context.Context, tkn string) error {
	tokenHash := util.HmacSHA256(s.sessionSecret, tkn)
	return s.sessionRepo.DeleteByTokenHash(ctx, tokenHash)
}
