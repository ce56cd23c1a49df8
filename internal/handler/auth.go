package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

// UserStore is the staff account persistence auth needs.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	CountByRole(ctx context.Context, role string) (int, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN HOST"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart   `json:"user"`
	Access  *tokenPart `json:"access,omitempty"`
	Refresh *tokenPart `json:"refresh,omitempty"`
}

// issue signs an access token and stores a fresh refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  &tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: &tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// bearerClaims parses the Authorization header when present.
func (h *AuthHandler) bearerClaims(c echo.Context) (utils.StaffClaims, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return utils.StaffClaims{}, false
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
	return claims, err == nil
}

// Register creates a staff account. The first account ever registered
// becomes ADMIN and receives tokens; after that only an ADMIN may register
// staff, and the new account (HOST unless stated) logs in separately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := requestCtx(c)
	defer cancel()

	admins, err := h.Users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return internalError(c, "query failed", err)
	}
	bootstrap := admins == 0
	role := model.RoleAdmin
	if !bootstrap {
		claims, ok := h.bearerClaims(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "admin token required"})
		}
		if claims.Role != model.RoleAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		role = model.RoleHost
		if req.Role != "" {
			role = req.Role
		}
	}

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, utils.ErrWeakPassword):
		return badRequest(c, err.Error())
	case err != nil:
		return internalError(c, "create user failed", err)
	}

	u := userPart{ID: uid, Email: req.Email, Role: role}
	if !bootstrap {
		return c.JSON(http.StatusCreated, authResp{User: u})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return internalError(c, "issue tokens failed", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return internalError(c, "query failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}

	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return internalError(c, "issue tokens failed", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestCtx(c)
	defer cancel()

	// Rotation: the presented token is spent whether or not issuing the
	// new pair succeeds.
	userID, err := h.Tokens.ConsumeRefresh(ctx, hash)
	if errors.Is(err, repository.ErrRefreshInvalid) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return internalError(c, "consume refresh failed", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return internalError(c, "load user failed", err)
	}

	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return internalError(c, "issue tokens failed", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes every refresh token of the bearer, or only the refresh
// token in the body when one is given.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestCtx(c)
	defer cancel()

	if raw != "" {
		_, err := h.Tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(raw))
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		if err != nil {
			return internalError(c, "revoke refresh failed", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	claims, ok := h.bearerClaims(c)
	if !ok {
		return badRequest(c, "refresh_token or bearer token required")
	}
	uid, err := claims.UserID()
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return internalError(c, "revoke refresh failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated staff member.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound(c, "user")
	}
	if err != nil {
		return internalError(c, "load user failed", err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}
