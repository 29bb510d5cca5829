package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/validation"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	EmailTaken(ctx context.Context, email string) (bool, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

type TokenStore interface {
	CreateToken(ctx context.Context, t *models.AccessToken) error
	TokenByJTI(ctx context.Context, jti string) (*models.AccessToken, error)
	TouchToken(ctx context.Context, id uint, at time.Time) error
	DeleteToken(ctx context.Context, jti string) (int64, error)
}

type AuthService struct {
	Users     UserStore
	Tokens    TokenStore
	Issuer    *tokens.Issuer
	Validator *validation.Validator
	Events    events.Publisher
	Now       func() time.Time
}

type RegisterInput struct {
	Name                 string `json:"name" form:"name" validate:"required,max=255"`
	Email                string `json:"email" form:"email" validate:"required,email,max=255"`
	Password             string `json:"password" form:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation" validate:"eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type AuthResult struct {
	User  *models.User
	Token string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	verr := apperr.NewValidation()
	if err := s.Validator.Validate(in); err != nil {
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		verr.Merge(ve)
	}
	if !verr.Has("email") {
		taken, err := s.Users.EmailTaken(ctx, in.Email)
		if err != nil {
			l.Error("register_failed", "status", 500, "reason", "cannot check email", "error", err)
			return nil, err
		}
		if taken {
			verr.Add("email", validation.Taken("email"))
		}
	}
	if err := verr.OrNil(); err != nil {
		l.Warn("register_failed", "status", 422, "reason", "invalid input", "error", err)
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if errors.Is(err, hash.ErrPasswordTooLong) {
		// max counts characters, multibyte input can still be too long
		l.Warn("register_failed", "status", 422, "reason", "password too long")
		return nil, apperr.Field("password", validation.MaxString("password", strconv.Itoa(hash.MaxPasswordBytes)))
	}
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Field("email", validation.Taken("email"))
		}
		l.Error("register_failed", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	token, err := s.issue(ctx, user.ID)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, events.New(events.UserRegistered, user.ID, user.Name))
	l.Info("register_success", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	in.Email = normalizeEmail(in.Email)
	if err := s.Validator.Validate(in); err != nil {
		l.Warn("login_failed", "status", 422, "reason", "invalid input", "error", err)
		return nil, err
	}

	user, err := s.Users.UserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, apperr.ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, in.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, apperr.ErrInvalidCredentials
	}

	token, err := s.issue(ctx, user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	l.Info("login_success", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) issue(ctx context.Context, userID uint) (string, error) {
	out, err := s.Issuer.Issue(userID)
	if err != nil {
		return "", err
	}
	row := &models.AccessToken{
		UserID:    userID,
		JTI:       out.JTI,
		TokenHash: hash.Sha256Hex(out.Raw),
		ExpiresAt: out.ExpiresAt,
	}
	if err := s.Tokens.CreateToken(ctx, row); err != nil {
		return "", err
	}
	return out.Raw, nil
}

// Logout revokes exactly the presented token. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := s.Issuer.Parse(raw)
	if err != nil {
		return nil
	}
	n, err := s.Tokens.DeleteToken(ctx, claims.ID)
	if err != nil {
		logging.FromContext(ctx).Error("logout_failed", "status", 500, "error", err)
		return err
	}
	logging.FromContext(ctx).Info("logout_success", "revoked", n)
	return nil
}

// CurrentUser resolves a bearer token to its owner. Any token that is not
// live yields (nil, nil); only storage failures are returned as errors.
func (s *AuthService) CurrentUser(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, nil
	}
	claims, err := s.Issuer.Parse(raw)
	if err != nil {
		return nil, nil
	}
	row, err := s.Tokens.TokenByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	if !hash.Equal(row.TokenHash, hash.Sha256Hex(raw)) {
		return nil, nil
	}
	if row.ExpiresAt != nil && !now.Before(*row.ExpiresAt) {
		return nil, nil
	}
	uid, err := claims.UserID()
	if err != nil || uid != row.UserID {
		return nil, nil
	}

	user, err := s.Users.UserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.Tokens.TouchToken(ctx, row.ID, now); err != nil {
		logging.FromContext(ctx).Warn("touch_token_failed", "error", err)
	}
	return user, nil
}
