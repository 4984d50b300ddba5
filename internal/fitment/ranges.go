package fitment

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/chassis"
)

// ChassisRange is the chassis span built in one production year.
type ChassisRange struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	ChassisFirst string `json:"chassisFirst"`
	ChassisLast  string `json:"chassisLast"`
	Count        int    `json:"count"`
	// SinglePoint marks a one-vehicle range, displayed as "Chassis: X".
	SinglePoint bool `json:"singlePoint"`
	// Explicit is set when the span comes from stored per-year boundaries
	// rather than being derived from fitment records.
	Explicit bool `json:"explicit"`
}

// Label renders the range for display.
func (r ChassisRange) Label() string {
	if r.SinglePoint {
		return "Chassis: " + r.ChassisFirst
	}
	return fmt.Sprintf("Chassis: %s–%s", r.ChassisFirst, r.ChassisLast)
}

// ResolveChassisRange returns the chassis span for the year. ok is false when
// no boundary data covers it.
func (idx *Index) ResolveChassisRange(ctx context.Context, mk, model string, year int) (ChassisRange, bool, error) {
	if err := ctx.Err(); err != nil {
		return ChassisRange{}, false, lookupFailed(err)
	}
	mi, ok := idx.models[vehicles.KeyOf(mk, model)]
	if !ok {
		return ChassisRange{}, false, nil
	}
	yr, ok := mi.years[year]
	if !ok {
		return ChassisRange{}, false, nil
	}
	return ChassisRange{
		Make:         mi.make,
		Model:        mi.model,
		Year:         year,
		ChassisFirst: yr.first,
		ChassisLast:  yr.last,
		Count:        yr.count,
		SinglePoint:  yr.first == yr.last,
		Explicit:     yr.explicit,
	}, true, nil
}

// buildYears fills the per-year chassis index. Explicit boundaries win;
// remaining production years are derived by splitting the model's observed
// chassis values proportionally across the years the catalog says it was
// built, so gaps between spans get no chassis. Boundaries for years outside
// every span are returned unused.
func (mi *modelIndex) buildYears(explicit []Boundary) (outside []Boundary) {
	mi.years = make(map[int]yearRange)
	for _, b := range explicit {
		if len(mi.built) > 0 && !mi.builtIn(b.Year) {
			outside = append(outside, b)
			continue
		}
		count := 0
		if b.VehicleCount != nil && *b.VehicleCount > 0 {
			count = *b.VehicleCount
		} else {
			count = mi.countBetween(b.ChassisFirst, b.ChassisLast)
		}
		mi.years[b.Year] = yearRange{first: b.ChassisFirst, last: b.ChassisLast, count: count, explicit: true}
	}
	if len(mi.values) == 0 {
		return outside
	}
	span := int64(len(mi.built))
	for pos, year := range mi.built {
		if _, ok := mi.years[year]; ok {
			continue
		}
		if yr, ok := mi.deriveYear(int64(pos), span); ok {
			mi.years[year] = yr
		}
	}
	return outside
}

func (mi *modelIndex) builtIn(year int) bool {
	i := sort.SearchInts(mi.built, year)
	return i < len(mi.built) && mi.built[i] == year
}

// yearOf returns the earliest year whose chassis range holds code, with
// stored boundaries taking precedence.
func (mi *modelIndex) yearOf(code string) (int, bool) {
	if y := mi.explicitYear(code); y != nil {
		return *y, true
	}
	best, ok := 0, false
	for year, yr := range mi.years {
		if chassis.Compare(code, yr.first) < 0 || chassis.Compare(code, yr.last) > 0 {
			continue
		}
		if !ok || year < best {
			best, ok = year, true
		}
	}
	return best, ok
}

// deriveYear computes bucket pos of span over the observed chassis values.
func (mi *modelIndex) deriveYear(pos, span int64) (yearRange, bool) {
	if prefix, width, lo, hi, ok := numericSpan(mi.values); ok {
		total := new(big.Int).Sub(hi, lo)
		total.Add(total, big.NewInt(1))
		first := bucketEdge(lo, total, pos, span)
		last := bucketEdge(lo, total, pos+1, span)
		last.Sub(last, big.NewInt(1))
		if last.Cmp(first) < 0 {
			return yearRange{}, false
		}
		count := new(big.Int).Sub(last, first)
		count.Add(count, big.NewInt(1))
		return yearRange{
			first: formatChassis(prefix, width, first),
			last:  formatChassis(prefix, width, last),
			count: int(count.Int64()),
		}, true
	}

	n := int64(len(mi.values))
	loIdx := pos * n / span
	hiIdx := (pos+1)*n/span - 1
	if hiIdx < loIdx {
		return yearRange{}, false
	}
	return yearRange{
		first: mi.values[loIdx],
		last:  mi.values[hiIdx],
		count: int(hiIdx - loIdx + 1),
	}, true
}

// bucketEdge is lo + total*pos/span.
func bucketEdge(lo, total *big.Int, pos, span int64) *big.Int {
	edge := new(big.Int).Mul(total, big.NewInt(pos))
	edge.Quo(edge, big.NewInt(span))
	return edge.Add(edge, lo)
}

// numericSpan reports whether every value is prefix+digits with one shared
// prefix, returning the numeric extremes.
func numericSpan(values []string) (prefix string, width int, lo, hi *big.Int, ok bool) {
	for i, v := range values {
		p, digits, rest, hasDigits := chassis.Parts(v)
		if !hasDigits || rest != "" {
			return "", 0, nil, nil, false
		}
		if i == 0 {
			prefix = p
		} else if p != prefix {
			return "", 0, nil, nil, false
		}
		n, good := new(big.Int).SetString(digits, 10)
		if !good {
			return "", 0, nil, nil, false
		}
		if lo == nil || n.Cmp(lo) < 0 {
			lo = n
			width = 0
			if len(digits) > 1 && strings.HasPrefix(digits, "0") {
				width = len(digits)
			}
		}
		if hi == nil || n.Cmp(hi) > 0 {
			hi = n
		}
	}
	return prefix, width, lo, hi, lo != nil
}

func formatChassis(prefix string, width int, n *big.Int) string {
	digits := n.String()
	if pad := width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return prefix + digits
}

// countBetween counts chassis numbers between two codes of one numeric
// family, falling back to the distinct observed values in range.
func (mi *modelIndex) countBetween(first, last string) int {
	pf, df, rf, okF := chassis.Parts(first)
	pl, dl, rl, okL := chassis.Parts(last)
	if okF && okL && pf == pl && rf == "" && rl == "" {
		a, _ := new(big.Int).SetString(df, 10)
		b, _ := new(big.Int).SetString(dl, 10)
		if a != nil && b != nil {
			diff := new(big.Int).Sub(b, a)
			if diff.IsInt64() {
				return int(diff.Int64()) + 1
			}
		}
	}
	count := 0
	for _, v := range mi.values {
		if chassis.Compare(v, first) >= 0 && chassis.Compare(v, last) <= 0 {
			count++
		}
	}
	return count
}
