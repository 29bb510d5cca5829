package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/internal/validation"
)

// ProductQuery holds listing parameters exactly as received. Empty strings
// mean "not set".
type ProductQuery struct {
	Category string
	MinPrice string
	MaxPrice string
	Search   string
	Page     string
	PerPage  string
}

type ProductPage struct {
	Items []models.Product
	Meta  util.Meta
}

func parsePaging(page, perPage string) (int, int) {
	return util.Normalize(util.ParseIntDefault(page, 1), util.ParseIntDefault(perPage, util.DefaultPageSize))
}

func parseFilter(q ProductQuery) (repo.ProductFilter, error) {
	var f repo.ProductFilter
	verr := apperr.NewValidation()

	if s := strings.TrimSpace(q.Category); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			verr.Add("category", validation.MustBeInteger("category"))
		} else {
			cid := uint(id)
			f.CategoryID = &cid
		}
	}
	if s := strings.TrimSpace(q.MinPrice); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			verr.Add("min_price", validation.MustBeNumber("min_price"))
		} else {
			f.MinPrice = &d
		}
	}
	if s := strings.TrimSpace(q.MaxPrice); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			verr.Add("max_price", validation.MustBeNumber("max_price"))
		} else {
			f.MaxPrice = &d
		}
	}
	f.Search = strings.TrimSpace(q.Search)
	return f, verr.OrNil()
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.list_products")

	f, err := parseFilter(q)
	if err != nil {
		l.Warn("list_products_failed", "status", 422, "reason", "invalid filter", "error", err)
		return nil, err
	}
	page, size := parsePaging(q.Page, q.PerPage)
	f.Offset, f.Limit = util.Calculate(page, size)

	items, total, err := s.Repo.ListProducts(ctx, f)
	if err != nil {
		l.Error("list_products_failed", "status", 500, "error", err)
		return nil, err
	}
	return &ProductPage{Items: items, Meta: util.NewMeta(page, size, total, len(items))}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.Repo.ProductByID(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]repo.CategoryWithCount, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*repo.CategoryWithCount, error) {
	return s.Repo.CategoryWithCount(ctx, id)
}

// SearchProducts runs a full-text query against the search index and falls
// back to the name substring listing when no index is configured or the
// index fails.
func (s *CatalogService) SearchProducts(ctx context.Context, query, pageRaw, perPageRaw string) (*ProductPage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search_products")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Field("q", validation.Required("q"))
	}
	page, size := parsePaging(pageRaw, perPageRaw)
	offset, limit := util.Calculate(page, size)

	if s.Index != nil {
		hits, err := s.Index.Search(ctx, query, offset, limit)
		if err == nil {
			items, err := s.Repo.ProductsByIDs(ctx, hits.IDs)
			if err != nil {
				l.Error("search_products_failed", "status", 500, "error", err)
				return nil, fmt.Errorf("load search hits: %w", err)
			}
			return &ProductPage{Items: items, Meta: util.NewMeta(page, size, hits.Total, len(items))}, nil
		}
		l.Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}

	items, total, err := s.Repo.ListProducts(ctx, repo.ProductFilter{Search: query, Offset: offset, Limit: limit})
	if err != nil {
		l.Error("search_products_failed", "status", 500, "error", err)
		return nil, err
	}
	return &ProductPage{Items: items, Meta: util.NewMeta(page, size, total, len(items))}, nil
}
