// Package search is the storefront query facade: it turns vehicle, chassis
// and free-text criteria into a filtered product page.
package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/introcar/introcar-backend/internal/fitment"
	"github.com/introcar/introcar-backend/internal/products"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

// Search types reported to the storefront.
const (
	TypeBrowse       = "browse"
	TypeText         = "text"
	TypeVehicle      = "vehicle"
	TypeChassis      = "chassis"
	TypeSupersession = "supersession"
	TypeVariant      = "variant"
)

type productStore interface {
	Search(ctx context.Context, q products.Query) ([]models.Product, int64, error)
	Facets(ctx context.Context, f products.Filter) (products.Facets, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	ExistingSKUs(ctx context.Context, candidates []string) ([]string, error)
	HasTag(ctx context.Context, sku, tag string) (bool, error)
	Top(ctx context.Context, f products.Filter, sort enums.ProductSort, limit int) ([]models.Product, error)
}

// Scope is the tenant context of a request. The zero value is the main
// storefront: everything visible, prices shown.
type Scope struct {
	Tenant     string
	SKUFilter  string
	HidePrices bool
}

func (s Scope) tag() string {
	return strings.ToLower(strings.TrimSpace(s.SKUFilter))
}

// Criteria is one product query.
type Criteria struct {
	Search      string
	Make        string
	Model       string
	Chassis     string
	Category    string
	Subcategory string
	StockType   enums.StockType
	Sort        enums.ProductSort
	Page        pagination.Page
	Scope       Scope
}

// VehicleData echoes the vehicle the results were resolved for.
type VehicleData struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	YearStart int    `json:"yearStart,omitempty"`
	YearEnd   int    `json:"yearEnd,omitempty"`
	Year      *int   `json:"year,omitempty"`
	Chassis   string `json:"chassis,omitempty"`
}

// SupersessionMatch is set when the search term is a replaced SKU.
type SupersessionMatch struct {
	OldSKU string   `json:"oldSku"`
	NewSKU string   `json:"newSku"`
	Chain  []string `json:"chain"`
}

// Pagination is the page block of a result.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Result is either a product page or, for an ambiguous chassis without a
// chosen vehicle, the list of candidate vehicles.
type Result struct {
	Products          []products.ProductDTO `json:"products"`
	Pagination        Pagination            `json:"pagination"`
	Categories        []products.Facet      `json:"categories"`
	StockTypes        []products.Facet      `json:"stockTypes"`
	VehicleData       *VehicleData          `json:"vehicleData"`
	SupersessionMatch *SupersessionMatch    `json:"supersessionMatch,omitempty"`
	SearchType        string                `json:"searchType,omitempty"`
	ChassisLookup     *fitment.LookupResult `json:"chassisLookup,omitempty"`
	Variants          []string              `json:"variants,omitempty"`
}

// Service is the query facade.
type Service interface {
	Search(ctx context.Context, c Criteria) (*Result, error)
	RelatedParts(ctx context.Context, sku string, limit int, scope Scope) ([]RelatedPart, error)
}

type service struct {
	resolver fitment.Resolver
	products productStore
	suffixes []string
}

// NewService wires the facade. suffixes are the variant endings tried when
// an exact SKU search finds nothing.
func NewService(resolver fitment.Resolver, store productStore, suffixes []string) (Service, error) {
	if resolver == nil {
		return nil, errors.New("fitment resolver required")
	}
	if store == nil {
		return nil, errors.New("product store required")
	}
	clean := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			clean = append(clean, s)
		}
	}
	return &service{resolver: resolver, products: store, suffixes: clean}, nil
}

func (s *service) Search(ctx context.Context, c Criteria) (*Result, error) {
	c.Page = pagination.New(c.Page.Number, c.Page.Limit)
	if c.Sort == "" {
		c.Sort = enums.ProductSortRelevance
	}
	res := &Result{
		Products:   []products.ProductDTO{},
		Categories: []products.Facet{},
		StockTypes: []products.Facet{},
		Pagination: Pagination{Page: c.Page.Number, Limit: c.Page.Limit},
		SearchType: TypeBrowse,
	}

	filter := products.Filter{
		Category:    strings.TrimSpace(c.Category),
		Subcategory: strings.TrimSpace(c.Subcategory),
		StockType:   c.StockType,
		Tag:         c.Scope.tag(),
		ActiveOnly:  true,
	}
	var fitted map[string]fitment.ResolvedSKU

	mk, model := strings.TrimSpace(c.Make), strings.TrimSpace(c.Model)
	chassisCode := ""
	if code := strings.TrimSpace(c.Chassis); code != "" {
		lookup := s.resolver.LookupChassis(ctx, fitment.LookupRequest{Chassis: code, Make: mk, Model: model})
		switch lookup.Kind {
		case fitment.LookupFailed:
			return nil, pkgerrors.New(pkgerrors.CodeLookupFailed, "chassis lookup failed")
		case fitment.LookupAmbiguous:
			res.SearchType = TypeChassis
			res.ChassisLookup = &lookup
			return res, nil
		case fitment.LookupNotFound:
			res.SearchType = TypeChassis
			res.ChassisLookup = &lookup
			return res, nil
		}
		mk, model, chassisCode = lookup.Match.Make, lookup.Match.Model, lookup.Chassis
		res.SearchType = TypeChassis
		res.ChassisLookup = &lookup
		res.VehicleData = &VehicleData{
			Make:      lookup.Match.Make,
			Model:     lookup.Match.Model,
			YearStart: lookup.Match.YearStart,
			YearEnd:   lookup.Match.YearEnd,
			Year:      lookup.Match.Year,
			Chassis:   lookup.Chassis,
		}
	}

	if mk != "" {
		resolved, vehicle, err := s.vehicleSKUs(ctx, mk, model, chassisCode)
		if err != nil {
			return nil, err
		}
		fitted = resolved
		filter.SKUs = make([]string, 0, len(resolved))
		for sku := range resolved {
			filter.SKUs = append(filter.SKUs, sku)
		}
		sort.Strings(filter.SKUs)
		if res.VehicleData == nil {
			res.VehicleData = vehicle
			res.SearchType = TypeVehicle
		}
	}

	term := strings.TrimSpace(c.Search)
	if term != "" {
		if res.SearchType == TypeBrowse {
			res.SearchType = TypeText
		}
		if r := s.resolver.ResolveSupersession(term); r.Superseded() {
			res.SupersessionMatch = &SupersessionMatch{OldSKU: r.From(), NewSKU: r.SKU, Chain: r.Chain}
			res.SearchType = TypeSupersession
			term = r.SKU
		}
	}
	filter.Search = term

	query := products.Query{Filter: filter, Sort: c.Sort, Page: c.Page}
	rows, total, err := s.products.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if term != "" && res.SupersessionMatch == nil {
		variants, err := s.variantSKUs(ctx, term, filter.SKUs)
		if err != nil {
			return nil, err
		}
		if len(variants) > 0 {
			res.Variants = variants
			res.SearchType = TypeVariant
			if total == 0 {
				filter.Search = ""
				filter.SKUs = variants
				query.Filter = filter
				if rows, total, err = s.products.Search(ctx, query); err != nil {
					return nil, err
				}
			}
		}
	}

	facets, err := s.products.Facets(ctx, filter)
	if err != nil {
		return nil, err
	}
	res.Categories, res.StockTypes = facets.Categories, facets.StockTypes

	for _, row := range rows {
		dto := products.FromModel(row, !c.Scope.HidePrices)
		if f, ok := fitted[row.SKU]; ok {
			dto.SupersededFrom = f.SupersededFrom
			dto.FitmentNotes = f.Notes
		}
		if res.SupersessionMatch != nil && row.SKU == res.SupersessionMatch.NewSKU {
			dto.SupersededFrom = res.SupersessionMatch.OldSKU
		}
		res.Products = append(res.Products, dto)
	}
	meta := pagination.MetaFor(c.Page, total)
	res.Pagination = Pagination{Page: meta.Page, Limit: meta.Limit, Total: meta.Total, TotalPages: meta.TotalPages}
	return res, nil
}

// vehicleSKUs resolves the fitted SKUs for a make, optionally narrowed to a
// model and chassis. A make alone unions every model of that make with
// fitment, whether or not the catalog lists it.
func (s *service) vehicleSKUs(ctx context.Context, mk, model, chassisCode string) (map[string]fitment.ResolvedSKU, *VehicleData, error) {
	catalog := s.resolver.Catalog()
	names := []string{model}
	if model == "" {
		names = s.resolver.FittedModels(mk)
	}

	out := make(map[string]fitment.ResolvedSKU)
	for _, m := range names {
		res, err := s.resolver.ResolveSKUs(ctx, fitment.SKURequest{Make: mk, Model: m, Chassis: chassisCode})
		if err != nil {
			return nil, nil, err
		}
		for _, r := range res.SKUs {
			if _, ok := out[r.SKU]; !ok {
				out[r.SKU] = r
			}
		}
	}

	vehicle := &VehicleData{Make: mk, Model: model}
	if canon, ok := catalog.Canonical(mk, model); ok {
		vehicle.Make, vehicle.Model = canon.Make, canon.Model
	}
	if model != "" {
		if start, end, ok := catalog.YearRange(mk, model); ok {
			vehicle.YearStart, vehicle.YearEnd = start, end
		}
	}
	return out, vehicle, nil
}

// variantSKUs lists the suffix variants of a bare SKU that has no product
// of its own, restricted to the vehicle's fitted SKUs when one is selected.
func (s *service) variantSKUs(ctx context.Context, term string, within []string) ([]string, error) {
	base := strings.ToUpper(term)
	if strings.ContainsAny(base, " \t") || len(s.suffixes) == 0 {
		return nil, nil
	}
	candidates := make([]string, 0, len(s.suffixes))
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(base, suffix) {
			return nil, nil
		}
		candidates = append(candidates, base+suffix)
	}
	if within != nil {
		allowed := make(map[string]struct{}, len(within))
		for _, sku := range within {
			allowed[sku] = struct{}{}
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if _, ok := allowed[c]; ok {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			return nil, nil
		}
		candidates = filtered
	}

	exact, err := s.products.ExistingSKUs(ctx, []string{base})
	if err != nil || len(exact) > 0 {
		return nil, err
	}
	return s.products.ExistingSKUs(ctx, candidates)
}
