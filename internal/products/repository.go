// Package products stores the sellable part catalog and answers filtered
// product queries for the storefront.
package products

import (
	"context"
	"strings"

	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	"github.com/introcar/introcar-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter selects products. A non-nil empty SKUs slice matches nothing.
type Filter struct {
	Search      string
	SKUs        []string
	Category    string
	Subcategory string
	StockType   enums.StockType
	Tag         string
	ActiveOnly  bool
}

// Query is a filtered, sorted page request.
type Query struct {
	Filter
	Sort enums.ProductSort
	Page pagination.Page
}

// Facet is one value of a facet with its product count.
type Facet struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Facets summarizes the filterable dimensions of a result set.
type Facets struct {
	Categories []Facet `json:"categories"`
	StockTypes []Facet `json:"stockTypes"`
}

// Repository reads and writes the products table.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	base, err := repo.NewBase(db)
	if err != nil {
		return nil, err
	}
	return &Repository{Base: base}, nil
}

// Search returns one page of products plus the unpaged total. The tenant tag
// filter is part of the WHERE clause, so it applies before paging.
func (r *Repository) Search(ctx context.Context, q Query) ([]models.Product, int64, error) {
	if q.SKUs != nil && len(q.SKUs) == 0 {
		return nil, 0, nil
	}
	var total int64
	if err := r.filtered(ctx, q.Filter, true).Count(&total).Error; err != nil {
		return nil, 0, repo.Translate(err, "product")
	}
	if total == 0 {
		return nil, 0, nil
	}

	var rows []models.Product
	err := order(r.filtered(ctx, q.Filter, true), q).
		Limit(q.Page.Limit).
		Offset(q.Page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, repo.Translate(err, "product")
	}
	return rows, total, nil
}

// Facets counts categories and stock types across the filter. Category,
// subcategory and stock type selections are ignored so every option stays
// visible.
func (r *Repository) Facets(ctx context.Context, f Filter) (Facets, error) {
	f.Category, f.Subcategory, f.StockType = "", "", ""
	out := Facets{Categories: []Facet{}, StockTypes: []Facet{}}
	if f.SKUs != nil && len(f.SKUs) == 0 {
		return out, nil
	}
	if err := r.filtered(ctx, f, false).
		Select("category AS value, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&out.Categories).Error; err != nil {
		return Facets{}, repo.Translate(err, "product")
	}
	if err := r.filtered(ctx, f, false).
		Select("stock_type AS value, COUNT(*) AS count").
		Group("stock_type").
		Order("stock_type").
		Scan(&out.StockTypes).Error; err != nil {
		return Facets{}, repo.Translate(err, "product")
	}
	return out, nil
}

func (r *Repository) filtered(ctx context.Context, f Filter, withSelections bool) *gorm.DB {
	q := r.DB(ctx).Model(&models.Product{})
	if f.ActiveOnly {
		q = q.Where("products.is_active = ?", true)
	}
	if f.SKUs != nil {
		q = q.Where("products.sku IN ?", f.SKUs)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where(searchClause(r.DB(ctx), term))
	}
	if withSelections {
		if f.Category != "" {
			q = q.Where("LOWER(products.category) = ?", strings.ToLower(f.Category))
		}
		if f.Subcategory != "" {
			q = q.Where("LOWER(products.subcategory) = ?", strings.ToLower(f.Subcategory))
		}
		if f.StockType != "" {
			q = q.Where("products.stock_type = ?", f.StockType)
		}
	}
	if f.Tag != "" {
		q = q.Where("EXISTS (SELECT 1 FROM product_tags t WHERE t.sku = products.sku AND t.tag = ?)", f.Tag)
	}
	return q
}

// searchClause matches the SKU exactly or by prefix, or every word of the
// term against the name or description.
func searchClause(db *gorm.DB, term string) *gorm.DB {
	sku := strings.ToUpper(term)
	cond := db.Where("products.sku = ?", sku).Or("products.sku LIKE ?", escapeLike(sku)+"%")

	words := strings.Fields(strings.ToLower(term))
	text := db
	for _, w := range words {
		pattern := "%" + escapeLike(w) + "%"
		text = text.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", pattern, pattern)
	}
	return cond.Or(text)
}

// escapeLike drops the multi-character wildcard from user input.
func escapeLike(s string) string {
	return strings.ReplaceAll(s, "%", "")
}

func order(q *gorm.DB, query Query) *gorm.DB {
	switch query.Sort {
	case enums.ProductSortPopularity:
		q = q.Order("products.popularity DESC")
	case enums.ProductSortPriceAsc:
		q = q.Order("products.price ASC")
	case enums.ProductSortPriceDesc:
		q = q.Order("products.price DESC")
	case enums.ProductSortName:
		q = q.Order("LOWER(products.name) ASC")
	case enums.ProductSortSKU:
	default:
		if term := strings.ToUpper(strings.TrimSpace(query.Search)); term != "" {
			// one expression: gorm drops an OrderBy expression when columns merge into it
			return q.Clauses(clause.OrderBy{Expression: clause.Expr{
				SQL:                "CASE WHEN products.sku = ? THEN 0 WHEN products.sku LIKE ? THEN 1 ELSE 2 END, products.sku ASC",
				Vars:               []any{term, escapeLike(term) + "%"},
				WithoutParentheses: true,
			}})
		}
	}
	return q.Order("products.sku ASC")
}

// FindBySKU loads one product with its tags.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var row models.Product
	if err := r.DB(ctx).Preload("Tags").First(&row, "sku = ?", strings.ToUpper(strings.TrimSpace(sku))).Error; err != nil {
		return nil, repo.Translate(err, "product")
	}
	return &row, nil
}

// FindBySKUs loads the listed products keyed by SKU. Unknown SKUs are absent.
func (r *Repository) FindBySKUs(ctx context.Context, skus []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Where("sku IN ?", skus).Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "product")
	}
	for _, row := range rows {
		out[row.SKU] = row
	}
	return out, nil
}

// ExistingSKUs returns which candidates exist as active products, in
// candidate order.
func (r *Repository) ExistingSKUs(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var found []string
	if err := r.DB(ctx).Model(&models.Product{}).
		Where("sku IN ? AND is_active = ?", candidates, true).
		Pluck("sku", &found).Error; err != nil {
		return nil, repo.Translate(err, "product")
	}
	set := make(map[string]struct{}, len(found))
	for _, sku := range found {
		set[sku] = struct{}{}
	}
	out := make([]string, 0, len(found))
	for _, c := range candidates {
		if _, ok := set[c]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// HasTag reports whether sku carries tag.
func (r *Repository) HasTag(ctx context.Context, sku, tag string) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.ProductTag{}).
		Where("sku = ? AND tag = ?", sku, tag).
		Count(&count).Error; err != nil {
		return false, repo.Translate(err, "product tag")
	}
	return count > 0, nil
}

// Upsert inserts or replaces a product row, leaving its tags untouched.
func (r *Repository) Upsert(ctx context.Context, p *models.Product) error {
	err := r.DB(ctx).Omit("Tags").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		UpdateAll: true,
	}).Create(p).Error
	return repo.Translate(err, "product")
}

// SetTags replaces the tag set of a product.
func (r *Repository) SetTags(ctx context.Context, sku string, tags []string) error {
	err := r.Tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("sku = ?", sku).Delete(&models.ProductTag{}).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		rows := make([]models.ProductTag, 0, len(tags))
		for _, tag := range tags {
			rows = append(rows, models.ProductTag{SKU: sku, Tag: tag})
		}
		return tx.Create(&rows).Error
	})
	return repo.Translate(err, "product tag")
}

// Top returns products matching the filter in sort order. A limit of zero
// returns every match.
func (r *Repository) Top(ctx context.Context, f Filter, sort enums.ProductSort, limit int) ([]models.Product, error) {
	if f.SKUs != nil && len(f.SKUs) == 0 {
		return nil, nil
	}
	q := order(r.filtered(ctx, f, true), Query{Filter: f, Sort: sort})
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "product")
	}
	return rows, nil
}
