package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
)

// ProfileSource resolves a verified user id to their directory record.
type ProfileSource interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error)
}

// UserSource resolves a verified user id to their credential record,
// used only to surface the email on the principal.
type UserSource interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

const principalKey = "principal"

// LoadPrincipal turns the verified user id left by JWTAuth into a full
// auth.Principal by re-reading the profiles table.  The fresh fetch is
// deliberate: role or school changes apply on the very next request,
// and a token for a user whose profile was removed is rejected here
// with a profile-not-found body rather than a generic forbidden.
func LoadPrincipal(profiles ProfileSource, users UserSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := c.Get("user_id").(uint64)
			if !ok || uid == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}
			ctx := c.Request().Context()

			profile, err := profiles.GetByUserID(ctx, uid)
			if err != nil {
				if errors.Is(err, fault.ErrProfileNotFound) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "profile not found"})
				}
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
			}
			p := auth.Principal{
				ID:        profile.UserID,
				Role:      profile.Role,
				SchoolID:  profile.SchoolID,
				FirstName: profile.FirstName,
				LastName:  profile.LastName,
			}
			if user, err := users.GetByID(ctx, uid); err == nil {
				p.Email = user.Email
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// Principal returns the resolved principal stored by LoadPrincipal.
// The second return is false on routes outside the authenticated
// chain.
func Principal(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}
