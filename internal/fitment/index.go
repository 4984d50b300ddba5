package fitment

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/chassis"
)

// Options tunes index behavior.
type Options struct {
	SuggestionLimit      int
	SupersessionMaxDepth int
}

func (o Options) withDefaults() Options {
	if o.SuggestionLimit <= 0 {
		o.SuggestionLimit = 5
	}
	if o.SupersessionMaxDepth <= 0 {
		o.SupersessionMaxDepth = 32
	}
	return o
}

type entry struct {
	sku      string
	info     string
	interval chassis.Interval
}

// modelIndex holds one make/model pair's fitment, with bounded entries
// sorted by chassis start so containment is a binary search plus a short
// backward walk.
type modelIndex struct {
	key   vehicles.Key
	make  string
	model string

	spans []vehicles.Model // catalog production spans, by start year
	built []int            // distinct production years across spans

	bounded   []entry
	maxEnd    []*string // running max of End over bounded[:i+1]; nil once any end is open
	universal []entry

	skus   []string          // every SKU fitted to the model, sorted
	values []string          // distinct bounded chassis values, natural order
	years  map[int]yearRange // per-year chassis index
}

type yearRange struct {
	first    string
	last     string
	count    int
	explicit bool
}

// Index is an immutable fitment snapshot. All methods are safe for
// concurrent use.
type Index struct {
	opts    Options
	catalog *vehicles.Catalog
	graph   *supersession.Graph
	models  map[vehicles.Key]*modelIndex
	ordered []*modelIndex // by make, model
	skuFits map[string][]vehicles.Key
	builtAt time.Time
	report  Report
}

// Build indexes the source. Records with an inverted chassis range are
// excluded and reported.
func Build(src Source, opts Options) *Index {
	opts = opts.withDefaults()
	catalog := src.Catalog
	if catalog == nil {
		catalog, _ = vehicles.NewCatalog(nil)
	}

	idx := &Index{
		opts:    opts,
		catalog: catalog,
		graph:   supersession.NewGraph(src.Supersession, opts.SupersessionMaxDepth),
		models:  make(map[vehicles.Key]*modelIndex),
		skuFits: make(map[string][]vehicles.Key),
		builtAt: time.Now().UTC(),
	}
	idx.report.Records = len(src.Records)
	idx.report.Links = idx.graph.Len()

	skuSeen := make(map[vehicles.Key]map[string]struct{})
	for _, rec := range src.Records {
		sku := strings.ToUpper(strings.TrimSpace(rec.SKU))
		if sku == "" || strings.TrimSpace(rec.Make) == "" || strings.TrimSpace(rec.Model) == "" {
			idx.report.Skipped++
			continue
		}
		iv := rec.Interval()
		if err := iv.Validate(); err != nil {
			idx.report.Skipped++
			idx.report.Issues = append(idx.report.Issues, Issue{
				Kind:   IssueInvertedRange,
				SKU:    sku,
				Make:   rec.Make,
				Model:  rec.Model,
				Detail: err.Error(),
			})
			continue
		}

		key := vehicles.KeyOf(rec.Make, rec.Model)
		mi := idx.modelFor(key, rec.Make, rec.Model)
		e := entry{sku: sku, interval: iv}
		if rec.AdditionalInfo != nil {
			e.info = strings.TrimSpace(*rec.AdditionalInfo)
		}
		if iv.Universal() {
			mi.universal = append(mi.universal, e)
		} else {
			mi.bounded = append(mi.bounded, e)
		}

		if skuSeen[key] == nil {
			skuSeen[key] = make(map[string]struct{})
		}
		if _, ok := skuSeen[key][sku]; !ok {
			skuSeen[key][sku] = struct{}{}
			mi.skus = append(mi.skus, sku)
			idx.skuFits[sku] = append(idx.skuFits[sku], key)
		}
	}

	boundaries := make(map[vehicles.Key][]Boundary)
	for _, b := range src.Boundaries {
		first, last := chassis.Normalize(b.ChassisFirst), chassis.Normalize(b.ChassisLast)
		if first == "" || last == "" || chassis.Compare(first, last) > 0 {
			idx.report.Issues = append(idx.report.Issues, Issue{
				Kind:   IssueInvertedBoundary,
				Make:   b.Make,
				Model:  b.Model,
				Detail: fmt.Sprintf("year %d boundary %q..%q rejected", b.Year, b.ChassisFirst, b.ChassisLast),
			})
			continue
		}
		b.ChassisFirst, b.ChassisLast = first, last
		key := vehicles.KeyOf(b.Make, b.Model)
		idx.modelFor(key, b.Make, b.Model)
		boundaries[key] = append(boundaries[key], b)
		idx.report.Boundaries++
	}

	for key, mi := range idx.models {
		mi.key = key
		mi.finalize()
		idx.ordered = append(idx.ordered, mi)
	}
	sort.Slice(idx.ordered, func(i, j int) bool {
		a, b := idx.ordered[i], idx.ordered[j]
		if a.make != b.make {
			return a.make < b.make
		}
		return a.model < b.model
	})
	for _, mi := range idx.ordered {
		for _, b := range mi.buildYears(boundaries[mi.key]) {
			idx.report.Boundaries--
			idx.report.Issues = append(idx.report.Issues, Issue{
				Kind:   IssueBoundaryOutsideSpan,
				Make:   b.Make,
				Model:  b.Model,
				Detail: fmt.Sprintf("year %d is outside every production span", b.Year),
			})
		}
	}
	for sku := range idx.skuFits {
		keys := idx.skuFits[sku]
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Make != keys[j].Make {
				return keys[i].Make < keys[j].Make
			}
			return keys[i].Model < keys[j].Model
		})
	}
	idx.report.Models = len(idx.models)

	for _, sku := range idx.graph.Cycles() {
		idx.report.Issues = append(idx.report.Issues, Issue{
			Kind:   IssueSupersessionCycle,
			SKU:    sku,
			Detail: "supersession chain revisits a SKU",
		})
	}
	return idx
}

func (idx *Index) modelFor(key vehicles.Key, mk, model string) *modelIndex {
	if mi, ok := idx.models[key]; ok {
		return mi
	}
	mi := &modelIndex{make: strings.TrimSpace(mk), model: strings.TrimSpace(model)}
	if canon, ok := idx.catalog.Canonical(mk, model); ok {
		mi.make, mi.model = canon.Make, canon.Model
	}
	mi.spans = idx.catalog.Spans(mk, model)
	mi.built = productionYears(mi.spans)
	idx.models[key] = mi
	return mi
}

func (mi *modelIndex) finalize() {
	sort.SliceStable(mi.bounded, func(i, j int) bool {
		return startLess(mi.bounded[i].interval.Start, mi.bounded[j].interval.Start)
	})
	mi.maxEnd = make([]*string, len(mi.bounded))
	var running *string
	open := false
	for i, e := range mi.bounded {
		switch {
		case open:
		case e.interval.End == nil:
			open = true
			running = nil
		case running == nil || chassis.Compare(*e.interval.End, *running) > 0:
			end := *e.interval.End
			running = &end
		}
		if !open {
			mi.maxEnd[i] = running
		}
	}
	sort.Strings(mi.skus)

	seen := make(map[string]struct{})
	for _, e := range mi.bounded {
		for _, bound := range []*string{e.interval.Start, e.interval.End} {
			if bound == nil {
				continue
			}
			if _, ok := seen[*bound]; ok {
				continue
			}
			seen[*bound] = struct{}{}
			mi.values = append(mi.values, *bound)
		}
	}
	sort.Slice(mi.values, func(i, j int) bool { return chassis.Less(mi.values[i], mi.values[j]) })
}

// startLess orders open starts first.
func startLess(a, b *string) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	}
	return chassis.Less(*a, *b)
}

// containing returns the bounded entries whose interval holds code.
func (mi *modelIndex) containing(code string) []entry {
	upper := sort.Search(len(mi.bounded), func(i int) bool {
		start := mi.bounded[i].interval.Start
		return start != nil && chassis.Compare(*start, code) > 0
	})
	var out []entry
	for j := upper - 1; j >= 0; j-- {
		if end := mi.maxEnd[j]; end != nil && chassis.Compare(*end, code) < 0 {
			break
		}
		if mi.bounded[j].interval.Contains(code) {
			out = append(out, mi.bounded[j])
		}
	}
	return out
}

// Catalog returns the vehicle catalog the index was built with.
func (idx *Index) Catalog() *vehicles.Catalog {
	return idx.catalog
}

// Supersessions returns the supersession graph.
func (idx *Index) Supersessions() *supersession.Graph {
	return idx.graph
}

// Report returns the build summary.
func (idx *Index) Report() Report {
	return idx.report
}

// BuiltAt is the snapshot time.
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// Vehicle describes a make/model pair and its production span.
type Vehicle struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	YearStart int    `json:"yearStart,omitempty"`
	YearEnd   int    `json:"yearEnd,omitempty"`
	Year      *int   `json:"year,omitempty"`
}

// vehicle reports the model with the outer bounds of its production spans.
func (mi *modelIndex) vehicle() Vehicle {
	v := Vehicle{Make: mi.make, Model: mi.model}
	for i, s := range mi.spans {
		if i == 0 || s.YearStart < v.YearStart {
			v.YearStart = s.YearStart
		}
		if s.YearEnd > v.YearEnd {
			v.YearEnd = s.YearEnd
		}
	}
	return v
}

// vehicleFor narrows the vehicle to the production span the code was built
// in. Codes the per-year index cannot place keep the outer bounds.
func (mi *modelIndex) vehicleFor(code string) Vehicle {
	v := mi.vehicle()
	v.Year = mi.explicitYear(code)
	if len(mi.spans) < 2 {
		return v
	}
	year, ok := mi.yearOf(code)
	if !ok {
		return v
	}
	for _, s := range mi.spans {
		if year >= s.YearStart && year <= s.YearEnd {
			v.YearStart, v.YearEnd = s.YearStart, s.YearEnd
			break
		}
	}
	return v
}

func productionYears(spans []vehicles.Model) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, s := range spans {
		for y := s.YearStart; y <= s.YearEnd; y++ {
			if _, ok := seen[y]; ok {
				continue
			}
			seen[y] = struct{}{}
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func vehicleLess(a, b Vehicle) bool {
	if a.Make != b.Make {
		return a.Make < b.Make
	}
	if a.Model != b.Model {
		return a.Model < b.Model
	}
	return a.YearStart < b.YearStart
}

// FittedModels returns the display names of every model of a make that has
// fitment records, sorted.
func (idx *Index) FittedModels(mk string) []string {
	want := vehicles.KeyOf(mk, "").Make
	var out []string
	for _, mi := range idx.ordered {
		if mi.key.Make == want {
			out = append(out, mi.model)
		}
	}
	return out
}

// FitsOf returns the vehicles a SKU is fitted to.
func (idx *Index) FitsOf(sku string) []Vehicle {
	keys := idx.skuFits[strings.ToUpper(strings.TrimSpace(sku))]
	out := make([]Vehicle, 0, len(keys))
	for _, key := range keys {
		out = append(out, idx.models[key].vehicle())
	}
	sort.Slice(out, func(i, j int) bool { return vehicleLess(out[i], out[j]) })
	return out
}
