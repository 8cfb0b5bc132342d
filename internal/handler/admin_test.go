package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/posfleet/station-gateway/internal/cache"
	"github.com/posfleet/station-gateway/internal/config"
	"github.com/posfleet/station-gateway/internal/middleware"
	"github.com/posfleet/station-gateway/internal/model"
	"github.com/posfleet/station-gateway/internal/service"
	"github.com/posfleet/station-gateway/internal/token"
)

type memAdminSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.AdminSession
}

func newMemAdminSessionRepo() *memAdminSessionRepo {
	return &memAdminSessionRepo{sessions: make(map[string]*model.AdminSession)}
}

func (m *memAdminSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tokenHash]; ok && s.ExpiresAt.After(time.Now()) {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memAdminSessionRepo) Create(ctx context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.AdminSession{
		ID:        uuid.New().String(),
		TokenHash: params.TokenHash,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: time.Now(),
	}
	m.sessions[s.TokenHash] = s
	cp := *s
	return &cp, nil
}

func (m *memAdminSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, hash)
		}
	}
	return nil
}

func (m *memAdminSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *memAdminSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

const adminPassword = "correct horse battery staple"

type adminFixture struct {
	router chi.Router
	svc    *service.StationService
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	sessionRepo := newMemAdminSessionRepo()
	sessionSecret := "test-session-secret"
	adminService := service.NewAdminService(sessionRepo, string(hash), sessionSecret)
	sessionMw := middleware.NewAdminSessionMiddleware(sessionRepo, string(hash), sessionSecret)

	stations := newMemStationRepo()
	devices := &memDeviceRepo{}
	trustCache := cache.NewTrustCache(newMemRedis(), config.TrustCacheTTL)
	issuer := token.NewIssuer("0123456789abcdef0123456789abcdef", "station-gateway", time.Hour)
	svc := service.NewStationService(noopTx{}, stations, devices, trustCache, issuer)

	r := chi.NewRouter()
	r.Mount("/admin", NewAdminHandler(adminService, svc, sessionMw.Handler, false).Routes())

	return &adminFixture{router: r, svc: svc}
}

func (fx *adminFixture) login(t *testing.T, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"password": password})
	req := httptest.NewRequest(http.MethodPost, "/admin/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func (fx *adminFixture) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	rec := fx.login(t, adminPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AdminSessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (fx *adminFixture) do(t *testing.T, method, path string, body []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminLogin(t *testing.T) {
	t.Run("wrong password returns 401", func(t *testing.T) {
		fx := newAdminFixture(t)
		rec := fx.login(t, "nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct password sets session cookie", func(t *testing.T) {
		fx := newAdminFixture(t)
		cookie := fx.sessionCookie(t)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("protected routes require a session", func(t *testing.T) {
		fx := newAdminFixture(t)
		rec := fx.do(t, http.MethodGet, "/admin/api/stations", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminStationOperations(t *testing.T) {
	fx := newAdminFixture(t)
	cookie := fx.sessionCookie(t)

	var stationID string

	t.Run("create station", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"name":        "Register 1",
			"locationId":  "loc-1",
			"franchiseId": "fr-1",
		})
		rec := fx.do(t, http.MethodPost, "/admin/api/stations", body, cookie)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		stationID = resp["id"].(string)
		assert.Equal(t, "unpaired", resp["pairingStatus"])
		assert.Equal(t, false, resp["isTrusted"])
	})

	t.Run("regenerate code returns the raw code once", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, "/admin/api/stations/"+stationID+"/regenerate-code", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		code, ok := resp["pairingCode"].(string)
		require.True(t, ok)
		assert.Len(t, code, config.PairingCodeLength)
		assert.Equal(t, true, resp["hasActiveCode"])
	})

	t.Run("list omits the raw code", func(t *testing.T) {
		rec := fx.do(t, http.MethodGet, "/admin/api/stations", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"pairingCode"`)
	})

	t.Run("untrust a paired station", func(t *testing.T) {
		station, err := fx.svc.Get(context.Background(), stationID)
		require.NoError(t, err)
		_, err = fx.svc.Redeem(context.Background(), *station.PairingCode, "fp-1")
		require.NoError(t, err)

		rec := fx.do(t, http.MethodPost, "/admin/api/stations/"+stationID+"/untrust", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["isTrusted"])
		assert.Equal(t, false, resp["hasActiveCode"])
	})

	t.Run("transfer hands back a fresh code", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, "/admin/api/stations/"+stationID+"/transfer", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["isTrusted"])
		code, ok := resp["pairingCode"].(string)
		require.True(t, ok)
		assert.Len(t, code, config.PairingCodeLength)
	})

	t.Run("device history lists bindings", func(t *testing.T) {
		rec := fx.do(t, http.MethodGet, "/admin/api/stations/"+stationID+"/devices", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "fp-1")
	})

	t.Run("unknown station returns 404", func(t *testing.T) {
		rec := fx.do(t, http.MethodGet, "/admin/api/stations/missing", nil, cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminLogout(t *testing.T) {
	fx := newAdminFixture(t)
	cookie := fx.sessionCookie(t)

	rec := fx.do(t, http.MethodPost, "/admin/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/admin/api/stations", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
