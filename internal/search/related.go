package search

import (
	"context"
	"sort"
	"strings"

	"github.com/introcar/introcar-backend/internal/fitment"
	"github.com/introcar/introcar-backend/internal/products"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

const (
	defaultRelatedLimit = 8
	maxRelatedLimit     = 50
)

// RelatedPart is a product sharing fitment with the requested SKU.
type RelatedPart struct {
	products.ProductDTO
	SharedVehicles int               `json:"sharedVehicles"`
	Fits           []fitment.Vehicle `json:"fits"`
}

// RelatedParts ranks products fitted to the same vehicles as sku: most
// shared vehicles first, then same category, popularity and SKU. A part
// with no fitment falls back to popular parts of its own category.
func (s *service) RelatedParts(ctx context.Context, sku string, limit int, scope Scope) ([]RelatedPart, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, pkgerrors.Invalid("sku is required", pkgerrors.FieldError{Field: "sku", Message: "is required"})
	}
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	if limit > maxRelatedLimit {
		limit = maxRelatedLimit
	}

	target := s.resolver.ResolveSupersession(sku).SKU
	base, err := s.products.FindBySKU(ctx, target)
	if err != nil {
		return nil, err
	}
	tag := scope.tag()
	if tag != "" {
		ok, err := s.products.HasTag(ctx, base.SKU, tag)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}

	shared := s.resolver.RelatedVehicleSKUs(base.SKU)
	delete(shared, base.SKU)

	var rows []models.Product
	if len(shared) > 0 {
		skus := make([]string, 0, len(shared))
		for k := range shared {
			skus = append(skus, k)
		}
		sort.Strings(skus)
		rows, err = s.products.Top(ctx, products.Filter{SKUs: skus, Tag: tag, ActiveOnly: true}, enums.ProductSortPopularity, 0)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if shared[a.SKU] != shared[b.SKU] {
				return shared[a.SKU] > shared[b.SKU]
			}
			if sa, sb := a.Category == base.Category, b.Category == base.Category; sa != sb {
				return sa
			}
			if a.Popularity != b.Popularity {
				return a.Popularity > b.Popularity
			}
			return a.SKU < b.SKU
		})
	} else {
		rows, err = s.products.Top(ctx, products.Filter{Category: base.Category, Tag: tag, ActiveOnly: true}, enums.ProductSortPopularity, limit+1)
		if err != nil {
			return nil, err
		}
	}

	out := make([]RelatedPart, 0, limit)
	for _, row := range rows {
		if row.SKU == base.SKU {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, RelatedPart{
			ProductDTO:     products.FromModel(row, !scope.HidePrices),
			SharedVehicles: shared[row.SKU],
			Fits:           s.resolver.FitsOf(row.SKU),
		})
	}
	return out, nil
}
