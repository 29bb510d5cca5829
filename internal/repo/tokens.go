package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateToken(ctx context.Context, t *models.AccessToken) error {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create token: %w", translate(err))
	}
	return nil
}

func (r *GormRepo) TokenByJTI(ctx context.Context, jti string) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&t).Error; err != nil {
		return nil, fmt.Errorf("find token: %w", translate(err))
	}
	return &t, nil
}

func (r *GormRepo) TouchToken(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// DeleteToken removes the row for jti and reports how many rows went away.
func (r *GormRepo) DeleteToken(ctx context.Context, jti string) (int64, error) {
	res := r.DB.WithContext(ctx).Where("jti = ?", jti).Delete(&models.AccessToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete token: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&models.AccessToken{})
	return res.RowsAffected, res.Error
}
