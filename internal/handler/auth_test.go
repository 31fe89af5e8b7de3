package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-pass/internal/config"
	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/utils"
)

// stubTokenStore records revocations and fails on demand.
type stubTokenStore struct {
	revokeHashErr error
	revokeAllErr  error
	revokedHashes []string
	revokedUsers  []uint64
}

func (s *stubTokenStore) StoreRefresh(context.Context, uint64, string, time.Time) error { return nil }

func (s *stubTokenStore) ValidateRefresh(context.Context, string) (uint64, error) {
	return 0, fault.ErrAuthenticationFailed
}

func (s *stubTokenStore) RevokeByHash(_ context.Context, hash string) error {
	s.revokedHashes = append(s.revokedHashes, hash)
	return s.revokeHashErr
}

func (s *stubTokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return s.revokeAllErr
}

const logoutTestSecret = "logout-test-secret"

func invokeLogout(t *testing.T, tokens *stubTokenStore, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := &AuthHandler{Cfg: config.Config{JWTSecret: logoutTestSecret}, Tokens: tokens}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.Logout(e.NewContext(req, rec)))
	return rec
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	access, err := utils.NewAccessToken(logoutTestSecret, 42, "student", 5)
	require.NoError(t, err)

	tokens := &stubTokenStore{}
	rec := invokeLogout(t, tokens, access.Token, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint64{42}, tokens.revokedUsers)
}

func TestLogoutSucceedsWhenRevokeFails(t *testing.T) {
	access, err := utils.NewAccessToken(logoutTestSecret, 42, "student", 5)
	require.NoError(t, err)

	tokens := &stubTokenStore{revokeAllErr: fault.ErrStoreUnavailable}
	rec := invokeLogout(t, tokens, access.Token, "")

	// The client discards its tokens regardless, so a store hiccup
	// must not turn logout into an error.
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogoutWithDeadRefreshTokenStillSucceeds(t *testing.T) {
	tokens := &stubTokenStore{revokeHashErr: fault.ErrAuthenticationFailed}
	rec := invokeLogout(t, tokens, "", `{"refresh_token":"already-gone"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{utils.HashRefreshRaw("already-gone")}, tokens.revokedHashes)
}

func TestLogoutWithoutCredentials(t *testing.T) {
	rec := invokeLogout(t, &stubTokenStore{}, "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
