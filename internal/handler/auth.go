package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/config"
	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/repository"
	"github.com/iliyamo/hall-pass/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints use.
type UserStore interface {
	CreateWithProfile(ctx context.Context, email, password string, cost int, profile *model.Profile) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore manages refresh-token sessions.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// ProfileStore resolves a credential to its profile.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error)
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Tokens   TokenStore
	Profiles ProfileStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, p ProfileStore) *AuthHandler {
	if u == nil || t == nil || p == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Profiles: p}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"` // student | teacher | administrator
	SchoolID  uint64 `json:"school_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type profilePart struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SchoolID  uint64 `json:"school_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type authResp struct {
	User    profilePart `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

// issuePair mints an access/refresh pair for the user and stores the
// refresh token's hash.
func (h *AuthHandler) issuePair(ctx context.Context, userID uint64, role model.Role) (utils.AccessToken, utils.RefreshToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, string(role), h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	return access, refresh, nil
}

// Register creates the credential and profile rows together and logs
// the new user straight in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" || req.SchoolID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password, name and school_id required"})
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		role = model.RoleStudent
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile := &model.Profile{
		SchoolID:  req.SchoolID,
		Role:      role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	uid, err := h.Users.CreateWithProfile(ctx, req.Email, req.Password, h.Cfg.BcryptCost, profile)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return writeFault(c, err)
	}

	access, refresh, err := h.issuePair(ctx, uid, role)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{
		User: profilePart{
			UserID: uid, Email: req.Email, Role: string(role),
			SchoolID: req.SchoolID, FirstName: req.FirstName, LastName: req.LastName,
		},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw goes back to the client once
	})
}

// Login verifies credentials and returns a fresh token pair with the
// caller's profile.  Bad email and bad password answer identically.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return writeFault(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication failed"})
	}
	profile, err := h.Profiles.GetByUserID(ctx, u.ID)
	if err != nil {
		return writeFault(c, err)
	}

	access, refresh, err := h.issuePair(ctx, u.ID, profile.Role)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User: profilePart{
			UserID: u.ID, Email: u.Email, Role: string(profile.Role),
			SchoolID: profile.SchoolID, FirstName: profile.FirstName, LastName: profile.LastName,
		},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh rotates a refresh token: the presented token is revoked and
// a brand new pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return writeFault(c, err)
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeFault(c, err)
	}
	profile, err := h.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		return writeFault(c, err)
	}

	access, refresh, err := h.issuePair(ctx, userID, profile.Role)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User: profilePart{
			UserID: userID, Email: u.Email, Role: string(profile.Role),
			SchoolID: profile.SchoolID, FirstName: profile.FirstName, LastName: profile.LastName,
		},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// RefreshAccess issues a new access token against an existing refresh
// token without rotating it.  Useful for clients that refresh in the
// background and do not want to re-persist the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return writeFault(c, err)
	}
	profile, err := h.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		return writeFault(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, string(profile.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes sessions.  With a Bearer token and no body it ends
// every session the user holds; with a refresh_token in the body it
// ends that single session.  The endpoint sits outside the JWT
// middleware so a client with only a refresh token can still log out.
//
// Revocation is best-effort: the client discards its tokens either
// way, so store failures and already-dead tokens are logged and the
// request still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, hasBearer := h.bearerSubject(c)

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch {
	case refreshToken != "":
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refreshToken)); err != nil {
			log.Printf("logout: revoke refresh token: %v", err)
		}
		return c.NoContent(http.StatusNoContent)
	case hasBearer:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			log.Printf("logout: revoke sessions for user %d: %v", uid, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// bearerSubject extracts and verifies the subject of a Bearer access
// token, if one is present.
func (h *AuthHandler) bearerSubject(c echo.Context) (uint64, bool) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	tok, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(h.Cfg.JWTSecret), nil
	})
	if err != nil || !tok.Valid {
		return 0, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, false
	}
	return uint64(sub), true
}

// Me returns the caller's resolved identity.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profilePart{
		UserID:    p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		SchoolID:  p.SchoolID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	})
}
