package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
)

// CategoryWithCount is a category annotated with the number of products
// that reference it.
type CategoryWithCount struct {
	models.Category
	ProductsCount int64
}

const productsCountSelect = "categories.*, (SELECT COUNT(*) FROM products WHERE products.category_id = categories.id) AS products_count"

func (r *GormRepo) ListCategories(ctx context.Context) ([]CategoryWithCount, error) {
	out := make([]CategoryWithCount, 0)
	if err := r.DB.WithContext(ctx).
		Model(&models.Category{}).
		Select(productsCountSelect).
		Order("categories.name ASC").
		Order("categories.id ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *GormRepo) CategoryWithCount(ctx context.Context, id uint) (*CategoryWithCount, error) {
	var out []CategoryWithCount
	if err := r.DB.WithContext(ctx).
		Model(&models.Category{}).
		Select(productsCountSelect).
		Where("categories.id = ?", id).
		Limit(1).
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("get category %d: %w", id, apperr.ErrNotFound)
	}
	return &out[0], nil
}

func (r *GormRepo) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, fmt.Errorf("find category %d: %w", id, translate(err))
	}
	return &c, nil
}

func (r *GormRepo) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	return n > 0, nil
}

// SlugTaken reports whether slug belongs to a category other than exceptID.
func (r *GormRepo) SlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("count slugs: %w", err)
	}
	return n > 0, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create category: %w", translate(err))
	}
	return nil
}

func (r *GormRepo) SaveCategory(ctx context.Context, c *models.Category) error {
	if err := r.DB.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("save category %d: %w", c.ID, translate(err))
	}
	return nil
}

// DeleteCategory refuses to remove a category that still owns products.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("count products: %w", err)
		}

		res := tx.Where("id = ?", id).Limit(1).Find(&models.Category{})
		if res.Error != nil {
			return fmt.Errorf("find category %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete category %d: %w", id, apperr.ErrNotFound)
		}
		if n > 0 {
			return fmt.Errorf("delete category %d with %d products: %w", id, n, apperr.ErrConflict)
		}

		if err := tx.Delete(&models.Category{}, id).Error; err != nil {
			return fmt.Errorf("delete category %d: %w", id, translate(err))
		}
		return nil
	})
}
