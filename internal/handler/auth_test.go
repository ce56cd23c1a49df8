package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

type fakeUsers struct {
	mu    sync.Mutex
	users []model.User
}

func (f *fakeUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := model.User{ID: uint64(len(f.users) + 1), Email: email, PasswordHash: hash, Role: role, IsActive: true}
	f.users = append(f.users, u)
	return u.ID, nil
}

func (f *fakeUsers) CountByRole(_ context.Context, role string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) find(match func(model.User) bool) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return f.find(func(u model.User) bool { return u.Email == strings.ToLower(email) })
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return f.find(func(u model.User) bool { return u.ID == id })
}

type fakeTokens struct {
	mu      sync.Mutex
	owner   map[string]uint64
	revoked map[string]bool
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner[hash] = userID
	return nil
}

func (f *fakeTokens) ConsumeRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.owner[hash]
	if !ok || f.revoked[hash] {
		return 0, repository.ErrRefreshInvalid
	}
	f.revoked[hash] = true
	return uid, nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, uid := range f.owner {
		if uid == userID {
			f.revoked[h] = true
		}
	}
	return nil
}

const authSecret = "auth-test-secret"

func newAuthEcho() *echo.Echo {
	cfg := config.Config{JWTSecret: authSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := handler.NewAuthHandler(cfg, &fakeUsers{}, &fakeTokens{owner: map[string]uint64{}, revoked: map[string]bool{}})
	e := echo.New()
	e.Validator = handler.NewValidator()
	e.JSONSerializer = handler.JSONSerializer{}
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)
	e.POST("/v1/auth/refresh", h.Refresh)
	e.POST("/v1/auth/logout", h.Logout)
	e.GET("/v1/me", h.Me, middleware.JWTAuth(authSecret))
	return e
}

type authOut struct {
	User struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Access *struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh *struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func post(t *testing.T, e *echo.Echo, target, body, bearer string) (int, authOut) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out authOut
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestRegisterBootstrapsAdmin(t *testing.T) {
	e := newAuthEcho()

	code, admin := post(t, e, "/v1/auth/register", `{"email":"Owner@Example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, model.RoleAdmin, admin.User.Role)
	assert.Equal(t, "owner@example.com", admin.User.Email)
	require.NotNil(t, admin.Access)

	// Later registrations need an admin token.
	code, _ = post(t, e, "/v1/auth/register", `{"email":"host@example.com","password":"s3cret-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, host := post(t, e, "/v1/auth/register", `{"email":"host@example.com","password":"s3cret-pass"}`, admin.Access.Token)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, model.RoleHost, host.User.Role)
	assert.Nil(t, host.Access)

	code, _ = post(t, e, "/v1/auth/register", `{"email":"host@example.com","password":"s3cret-pass"}`, admin.Access.Token)
	assert.Equal(t, http.StatusConflict, code)

	// A host cannot register staff.
	code, hostLogin := post(t, e, "/v1/auth/login", `{"email":"host@example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = post(t, e, "/v1/auth/register", `{"email":"other@example.com","password":"s3cret-pass"}`, hostLogin.Access.Token)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRegisterValidation(t *testing.T) {
	e := newAuthEcho()
	code, _ := post(t, e, "/v1/auth/register", `{"email":"not-an-email","password":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLoginRefreshLogout(t *testing.T) {
	e := newAuthEcho()
	code, _ := post(t, e, "/v1/auth/register", `{"email":"owner@example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusCreated, code)

	code, _ = post(t, e, "/v1/auth/login", `{"email":"owner@example.com","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = post(t, e, "/v1/auth/login", `{"email":"nobody@example.com","password":"s3cret-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, login := post(t, e, "/v1/auth/login", `{"email":"owner@example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, code)

	// Refresh rotates: the old token stops working.
	body := `{"refresh_token":"` + login.Refresh.Token + `"}`
	code, rotated := post(t, e, "/v1/auth/refresh", body, "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, login.Refresh.Token, rotated.Refresh.Token)
	code, _ = post(t, e, "/v1/auth/refresh", body, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	// Me works with the access token.
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+rotated.Access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)

	// Logout with the bearer revokes every refresh token.
	code, _ = post(t, e, "/v1/auth/logout", `{}`, rotated.Access.Token)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = post(t, e, "/v1/auth/refresh", `{"refresh_token":"`+rotated.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	// Logout with a refresh token spends only that token.
	_, again := post(t, e, "/v1/auth/login", `{"email":"owner@example.com","password":"s3cret-pass"}`, "")
	body = `{"refresh_token":"` + again.Refresh.Token + `"}`
	code, _ = post(t, e, "/v1/auth/logout", body, "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = post(t, e, "/v1/auth/logout", body, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = post(t, e, "/v1/auth/logout", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
}
