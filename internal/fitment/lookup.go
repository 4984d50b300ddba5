package fitment

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/chassis"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

// LookupKind tags the variant of a LookupResult.
type LookupKind string

const (
	LookupFound     LookupKind = "found"
	LookupAmbiguous LookupKind = "ambiguous"
	LookupNotFound  LookupKind = "not_found"
	LookupFailed    LookupKind = "failed"
)

const (
	msgChassisRequired = "chassis code required"
	msgChassisNotFound = "chassis not found"
	msgNotInRange      = "chassis not in range for this model"
	msgUnknownVehicle  = "unknown vehicle"
	msgLookupFailed    = "lookup failed"
)

// LookupRequest asks which vehicle a chassis code belongs to. When Make and
// Model are both set the code is validated against that model only.
type LookupRequest struct {
	Chassis string
	Make    string
	Model   string
}

// Validating reports whether the request targets one model.
func (r LookupRequest) Validating() bool {
	return strings.TrimSpace(r.Make) != "" && strings.TrimSpace(r.Model) != ""
}

// LookupResult is a tagged union: exactly one of Match (found), Matches
// (ambiguous) or Message (not found / failed) is meaningful per Kind.
type LookupResult struct {
	Kind        LookupKind
	Chassis     string
	Match       Vehicle
	Matches     []Vehicle
	Suggestions []Vehicle
	Message     string
}

func found(code string, v Vehicle) LookupResult {
	return LookupResult{Kind: LookupFound, Chassis: code, Match: v}
}

func ambiguous(code string, vs []Vehicle) LookupResult {
	return LookupResult{Kind: LookupAmbiguous, Chassis: code, Matches: vs}
}

func notFound(code, msg string, suggestions []Vehicle) LookupResult {
	return LookupResult{Kind: LookupNotFound, Chassis: code, Message: msg, Suggestions: suggestions}
}

// Failed is returned when the deadline expires mid-lookup.
func Failed(code string) LookupResult {
	return LookupResult{Kind: LookupFailed, Chassis: code, Message: msgLookupFailed}
}

// MarshalJSON renders the wire shape consumed by storefront clients.
func (r LookupResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case LookupFound:
		return json.Marshal(struct {
			Found           bool   `json:"found"`
			MultipleMatches bool   `json:"multipleMatches"`
			Chassis         string `json:"chassis"`
			Make            string `json:"make"`
			Model           string `json:"model"`
			YearStart       int    `json:"yearStart"`
			YearEnd         int    `json:"yearEnd"`
			Year            *int   `json:"year,omitempty"`
		}{true, false, r.Chassis, r.Match.Make, r.Match.Model, r.Match.YearStart, r.Match.YearEnd, r.Match.Year})
	case LookupAmbiguous:
		return json.Marshal(struct {
			Found           bool      `json:"found"`
			MultipleMatches bool      `json:"multipleMatches"`
			Chassis         string    `json:"chassis"`
			Matches         []Vehicle `json:"matches"`
		}{true, true, r.Chassis, r.Matches})
	default:
		return json.Marshal(struct {
			Found       bool      `json:"found"`
			Chassis     string    `json:"chassis,omitempty"`
			Message     string    `json:"message"`
			Suggestions []Vehicle `json:"suggestions,omitempty"`
			Retryable   bool      `json:"retryable,omitempty"`
		}{false, r.Chassis, r.Message, r.Suggestions, r.Kind == LookupFailed})
	}
}

// LookupChassis identifies the vehicle(s) a chassis code belongs to.
// Ambiguity is returned as a variant, never resolved by picking one.
func (idx *Index) LookupChassis(ctx context.Context, req LookupRequest) LookupResult {
	code := chassis.Normalize(req.Chassis)
	if code == "" {
		return notFound(code, msgChassisRequired, nil)
	}
	if ctx.Err() != nil {
		return Failed(code)
	}

	if req.Validating() {
		return idx.validate(ctx, code, req.Make, req.Model)
	}

	matches, err := idx.matchAll(ctx, code, req.Make, req.Model, vehicles.Key{})
	if err != nil {
		return Failed(code)
	}
	switch len(matches) {
	case 0:
		return notFound(code, msgChassisNotFound, nil)
	case 1:
		return found(code, matches[0])
	default:
		return ambiguous(code, matches)
	}
}

func (idx *Index) validate(ctx context.Context, code, mk, model string) LookupResult {
	key := vehicles.KeyOf(mk, model)
	mi, ok := idx.models[key]
	if !ok {
		if _, known := idx.catalog.Canonical(mk, model); !known {
			return notFound(code, msgUnknownVehicle, nil)
		}
	}
	// universal fitment covers every chassis of the model
	if ok && (len(mi.universal) > 0 || len(mi.containing(code)) > 0) {
		return found(code, mi.vehicleFor(code))
	}

	suggestions, err := idx.matchAll(ctx, code, "", "", key)
	if err != nil {
		return Failed(code)
	}
	if len(suggestions) > idx.opts.SuggestionLimit {
		suggestions = suggestions[:idx.opts.SuggestionLimit]
	}
	return notFound(code, msgNotInRange, suggestions)
}

// matchAll scans every model, optionally restricted to a make or model and
// excluding one key, and returns the sorted vehicles containing code.
func (idx *Index) matchAll(ctx context.Context, code, mk, model string, exclude vehicles.Key) ([]Vehicle, error) {
	makeFilter := strings.ToLower(strings.TrimSpace(mk))
	modelFilter := strings.ToLower(strings.TrimSpace(model))

	var out []Vehicle
	for i, mi := range idx.ordered {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, lookupFailed(err)
			}
		}
		key := vehicles.KeyOf(mi.make, mi.model)
		if key == exclude {
			continue
		}
		if makeFilter != "" && key.Make != makeFilter {
			continue
		}
		if modelFilter != "" && key.Model != modelFilter {
			continue
		}
		if len(mi.containing(code)) == 0 {
			continue
		}
		out = append(out, mi.vehicleFor(code))
	}
	sort.SliceStable(out, func(i, j int) bool { return vehicleLess(out[i], out[j]) })
	return out, nil
}

// explicitYear places the code in a stored per-year boundary, if any.
func (mi *modelIndex) explicitYear(code string) *int {
	var best *int
	for year, yr := range mi.years {
		if !yr.explicit {
			continue
		}
		if chassis.Compare(code, yr.first) < 0 || chassis.Compare(code, yr.last) > 0 {
			continue
		}
		if best == nil || year < *best {
			y := year
			best = &y
		}
	}
	return best
}

func lookupFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeLookupFailed, err, msgLookupFailed)
}
