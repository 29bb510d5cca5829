// Package authz decides whether a resolved user may perform an action that
// needs a given role.
package authz

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
)

// Allow returns ErrUnauthenticated for a nil user before it ever looks at
// roles, then ErrForbidden when the user's role does not satisfy required.
func Allow(user *models.User, required models.Role) error {
	if user == nil {
		return apperr.ErrUnauthenticated
	}
	if !user.Role.Satisfies(required) {
		return apperr.ErrForbidden
	}
	return nil
}

type userKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user attached by WithUser or nil.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}
