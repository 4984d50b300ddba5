// Package fitment resolves chassis codes and vehicles to the parts that fit
// them. The Index is an immutable snapshot built from fitment records, the
// vehicle catalog and the supersession graph; a Holder swaps snapshots on
// reload so readers never lock.
package fitment

import (
	"strings"

	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/chassis"
	"github.com/introcar/introcar-backend/pkg/db/models"
)

// Record is the domain form of a fitment row.
type Record struct {
	ID             uuid.UUID
	SKU            string
	Make           string
	Model          string
	ChassisStart   *string
	ChassisEnd     *string
	AdditionalInfo *string
}

// Interval returns the normalized chassis interval of the record.
func (r Record) Interval() chassis.Interval {
	return chassis.NewInterval(r.ChassisStart, r.ChassisEnd)
}

// RecordFromModel converts a persisted row.
func RecordFromModel(m models.FitmentRecord) Record {
	return Record{
		ID:             m.ID,
		SKU:            strings.ToUpper(strings.TrimSpace(m.SKU)),
		Make:           strings.TrimSpace(m.Make),
		Model:          strings.TrimSpace(m.Model),
		ChassisStart:   m.ChassisStart,
		ChassisEnd:     m.ChassisEnd,
		AdditionalInfo: m.AdditionalInfo,
	}
}

// Boundary is an explicit chassis span for one production year.
type Boundary struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	ChassisFirst string `json:"chassisFirst"`
	ChassisLast  string `json:"chassisLast"`
	VehicleCount *int   `json:"vehicleCount,omitempty"`
}

// BoundaryFromModel converts a persisted row.
func BoundaryFromModel(m models.ChassisYearBoundary) Boundary {
	return Boundary{
		Make:         m.Make,
		Model:        m.Model,
		Year:         m.Year,
		ChassisFirst: m.ChassisFirst,
		ChassisLast:  m.ChassisLast,
		VehicleCount: m.VehicleCount,
	}
}

// Source is everything an Index is built from.
type Source struct {
	Catalog      *vehicles.Catalog
	Records      []Record
	Boundaries   []Boundary
	Supersession []supersession.Link
}

// IssueKind classifies a data integrity problem found while building.
type IssueKind string

const (
	IssueInvertedRange       IssueKind = "inverted_range"
	IssueSupersessionCycle   IssueKind = "supersession_cycle"
	IssueSupersessionDepth   IssueKind = "supersession_depth"
	IssueInvertedBoundary    IssueKind = "inverted_boundary"
	IssueBoundaryOutsideSpan IssueKind = "boundary_outside_span"
)

// Issue is one excluded record or broken chain.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	SKU    string    `json:"sku,omitempty"`
	Make   string    `json:"make,omitempty"`
	Model  string    `json:"model,omitempty"`
	Detail string    `json:"detail"`
}

// Report summarizes a build.
type Report struct {
	Records    int     `json:"records"`
	Skipped    int     `json:"skipped"`
	Models     int     `json:"models"`
	Boundaries int     `json:"boundaries"`
	Links      int     `json:"supersessions"`
	Issues     []Issue `json:"issues,omitempty"`
}
