package fitment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/chassis"
)

// SKURequest selects a vehicle. Chassis is optional.
type SKURequest struct {
	Make    string
	Model   string
	Chassis string
}

// ResolvedSKU is a current SKU that fits the vehicle.
type ResolvedSKU struct {
	SKU            string   `json:"sku"`
	SupersededFrom string   `json:"supersededFrom,omitempty"`
	Notes          []string `json:"notes,omitempty"`
}

// SKUResolution is the ordered, de-duplicated result of a fitment query.
type SKUResolution struct {
	SKUs   []ResolvedSKU `json:"skus"`
	Issues []Issue       `json:"-"`
}

// Set returns the SKUs as a lookup set.
func (r SKUResolution) Set() map[string]ResolvedSKU {
	out := make(map[string]ResolvedSKU, len(r.SKUs))
	for _, s := range r.SKUs {
		out[s.SKU] = s
	}
	return out
}

// List returns the bare SKU strings in order.
func (r SKUResolution) List() []string {
	out := make([]string, 0, len(r.SKUs))
	for _, s := range r.SKUs {
		out = append(out, s.SKU)
	}
	return out
}

// ResolveSKUs returns the current SKUs fitted to the vehicle. With a chassis
// code only entries containing it, plus chassis-agnostic entries, apply.
// Superseded SKUs are replaced by the end of their chain; broken chains
// resolve to the last SKU before the break and are reported as issues.
func (idx *Index) ResolveSKUs(ctx context.Context, req SKURequest) (SKUResolution, error) {
	if err := ctx.Err(); err != nil {
		return SKUResolution{}, lookupFailed(err)
	}
	mi, ok := idx.models[vehicles.KeyOf(req.Make, req.Model)]
	if !ok {
		return SKUResolution{SKUs: []ResolvedSKU{}}, nil
	}

	var entries []entry
	if code := chassis.Normalize(req.Chassis); code != "" {
		entries = append(entries, mi.containing(code)...)
		entries = append(entries, mi.universal...)
	} else {
		entries = append(entries, mi.bounded...)
		entries = append(entries, mi.universal...)
	}

	notes := make(map[string]map[string]struct{})
	raw := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := notes[e.sku]; !ok {
			notes[e.sku] = make(map[string]struct{})
			raw = append(raw, e.sku)
		}
		if e.info != "" {
			notes[e.sku][e.info] = struct{}{}
		}
	}
	sort.Strings(raw)

	if err := ctx.Err(); err != nil {
		return SKUResolution{}, lookupFailed(err)
	}
	out, issues := idx.supersede(raw, notes)
	return SKUResolution{SKUs: out, Issues: issues}, nil
}

func (idx *Index) supersede(raw []string, notes map[string]map[string]struct{}) ([]ResolvedSKU, []Issue) {
	direct := make(map[string]struct{}, len(raw))
	for _, sku := range raw {
		direct[sku] = struct{}{}
	}

	byFinal := make(map[string]*ResolvedSKU, len(raw))
	var order []string
	var issues []Issue
	for _, sku := range raw {
		res := idx.graph.Resolve(sku)
		if res.Broken() {
			issues = append(issues, chainIssue(res))
		}
		current, exists := byFinal[res.SKU]
		if !exists {
			current = &ResolvedSKU{SKU: res.SKU}
			byFinal[res.SKU] = current
			order = append(order, res.SKU)
		}
		// a SKU fitted directly never carries a replaced-from notice
		if _, isDirect := direct[res.SKU]; !isDirect && current.SupersededFrom == "" {
			current.SupersededFrom = res.From()
		}
		for note := range notes[sku] {
			current.Notes = append(current.Notes, note)
		}
	}

	sort.Strings(order)
	out := make([]ResolvedSKU, 0, len(order))
	for _, sku := range order {
		r := byFinal[sku]
		r.Notes = dedupeSorted(r.Notes)
		out = append(out, *r)
	}
	return out, issues
}

func chainIssue(res supersession.Resolution) Issue {
	kind := IssueSupersessionCycle
	detail := "supersession chain revisits a SKU"
	if res.Truncated {
		kind = IssueSupersessionDepth
		detail = fmt.Sprintf("supersession chain longer than %d links", len(res.Chain)-1)
	}
	return Issue{Kind: kind, SKU: res.Chain[0], Detail: detail + ": " + strings.Join(res.Chain, " > ")}
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// ResolveSupersession resolves one SKU through the supersession graph.
func (idx *Index) ResolveSupersession(sku string) supersession.Resolution {
	return idx.graph.Resolve(sku)
}

// RelatedVehicleSKUs returns SKUs sharing at least one fitted vehicle with
// sku, mapped to the number of shared vehicles.
func (idx *Index) RelatedVehicleSKUs(sku string) map[string]int {
	sku = idx.graph.Resolve(sku).SKU
	keys := append([]vehicles.Key(nil), idx.skuFits[sku]...)
	for _, prev := range idx.graph.Predecessors(sku) {
		keys = append(keys, idx.skuFits[prev]...)
	}
	seen := make(map[vehicles.Key]struct{}, len(keys))
	shared := make(map[string]int)
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		mi := idx.models[key]
		for _, other := range mi.skus {
			final := idx.graph.Resolve(other).SKU
			if final == sku {
				continue
			}
			shared[final]++
		}
	}
	return shared
}
