package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
)

// ProductFilter narrows a product listing. Nil or empty fields do not
// filter. All set fields are combined with AND.
type ProductFilter struct {
	CategoryID *uint
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string

	Offset int
	Limit  int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("products.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("products.price <= ?", *f.MaxPrice)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clause, pattern := nameMatch(q.Dialector.Name(), s)
		q = q.Where(clause, pattern)
	}
	return q
}

// nameMatch builds a case-insensitive substring match on the product name.
// SQLite's LOWER only folds ASCII, so non-ASCII case folding is exact only
// on postgres.
func nameMatch(dialect, s string) (string, string) {
	if dialect == "postgres" {
		return `products.name ILIKE ? ESCAPE '\'`, "%" + likeEscaper.Replace(s) + "%"
	}
	return `LOWER(products.name) LIKE ? ESCAPE '\'`, "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// ListProducts returns one page of matches in insertion order together with
// the total number of matches.
func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	items := make([]models.Product, 0, f.Limit)
	if total == 0 {
		return items, 0, nil
	}
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).
		Preload("Category").
		Order("products.id ASC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return items, total, nil
}

func (r *GormRepo) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Preload("Category").First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("find product %d: %w", id, translate(err))
	}
	return &p, nil
}

// ProductsByIDs loads products keeping the order of ids. Missing ids are
// skipped.
func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []models.Product
	if err := r.DB.WithContext(ctx).Preload("Category").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", r.productWriteErr(err))
	}
	return nil
}

// SaveProduct writes every column of p. The Category association is never
// written, CategoryID is authoritative.
func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("save product %d: %w", p.ID, r.productWriteErr(err))
	}
	return nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete product %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *GormRepo) productWriteErr(err error) error {
	if errorsIsFK(err) {
		return &apperr.ReferenceError{Field: "category_id"}
	}
	return translate(err)
}
