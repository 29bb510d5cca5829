package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/authz"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

const tokenKey = "auth.token"

type Resolver interface {
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(c echo.Context) string {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate resolves the bearer token when one is sent. It never rejects
// a request on its own; only resolver storage failures abort it.
func Authenticate(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			user, err := r.CurrentUser(ctx, raw)
			if err != nil {
				logging.FromContext(ctx).Error("authenticate_failed", "status", 500, "error", err)
				return err
			}
			if user != nil {
				c.Set(tokenKey, raw)
				l := logging.FromContext(ctx).With("user_id", user.ID)
				ctx = logging.IntoContext(authz.WithUser(ctx, user), l)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// User is the authenticated user of the request or nil.
func User(c echo.Context) *models.User {
	return authz.UserFrom(c.Request().Context())
}

// Token is the raw bearer token of an authenticated request.
func Token(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if User(c) == nil {
			return authz.Allow(nil, models.RoleUser)
		}
		return next(c)
	}
}

func RequireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authz.Allow(User(c), role); err != nil {
				logging.FromContext(c.Request().Context()).Warn("access_denied", "required_role", string(role), "error", err)
				return err
			}
			return next(c)
		}
	}
}
