package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/posfleet/station-gateway/internal/config"
	"github.com/posfleet/station-gateway/internal/model"
	"github.com/posfleet/station-gateway/internal/repository"
	"github.com/posfleet/station-gateway/internal/util"
)

const AdminSessionCookie = "admin_session"

const adminSessionContextKey contextKey = "adminSession"

func GetAdminSession(ctx context.Context) *model.AdminSession {
	if session, ok := ctx.Value(adminSessionContextKey).(*model.AdminSession); ok {
		return session
	}
	return nil
}

type AdminSessionMiddleware struct {
	sessionRepo       repository.AdminSessionRepository
	adminPasswordHash string
	sessionSecret     string
}

func NewAdminSessionMiddleware(
	sessionRepo repository.AdminSessionRepository,
	adminPasswordHash, sessionSecret string,
) *AdminSessionMiddleware {
	return &AdminSessionMiddleware{
		sessionRepo:       sessionRepo,
		adminPasswordHash: adminPasswordHash,
		sessionSecret:     sessionSecret,
	}
}

func (m *AdminSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.adminPasswordHash == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Admin not configured",
			})
			return
		}

		cookie, err := r.Cookie(AdminSessionCookie)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}

		tokenHash := hashSessionToken(cookie.Value, m.sessionSecret)
		session, err := m.sessionRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("admin session middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Session validation failed",
			})
			return
		}

		if session == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}

		ctx := context.WithValue(r.Context(), adminSessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AdminSessionMiddleware) ValidatePassword(password string) bool {
	return util.CheckPasswordHash(password, m.adminPasswordHash)
}

func hashSessionToken(token, secret string) string {
	return util.HmacSHA256(secret, token)
}

func SetSessionCookie(w http.ResponseWriter, name, token string, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     path,
		MaxAge:   int(config.AdminSessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   path,
		MaxAge: -1,
	})
}
