package fitment

import (
	"time"

	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/pkg/db/models"
)

// RecordDTO is the admin view of a fitment row.
type RecordDTO struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	ChassisStart   *string   `json:"chassisStart"`
	ChassisEnd     *string   `json:"chassisEnd"`
	AdditionalInfo *string   `json:"additionalInfo"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func RecordDTOFromModel(m models.FitmentRecord) RecordDTO {
	return RecordDTO{
		ID:             m.ID,
		SKU:            m.SKU,
		Make:           m.Make,
		Model:          m.Model,
		ChassisStart:   m.ChassisStart,
		ChassisEnd:     m.ChassisEnd,
		AdditionalInfo: m.AdditionalInfo,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// RecordInput is an admin create or update.
type RecordInput struct {
	SKU            string  `json:"sku" validate:"required,max=64"`
	Make           string  `json:"make" validate:"required,max=100"`
	Model          string  `json:"model" validate:"required,max=100"`
	ChassisStart   *string `json:"chassisStart,omitempty" validate:"omitempty,max=32"`
	ChassisEnd     *string `json:"chassisEnd,omitempty" validate:"omitempty,max=32"`
	AdditionalInfo *string `json:"additionalInfo,omitempty" validate:"omitempty,max=500"`
}

// BoundaryInput sets an explicit per-year chassis span.
type BoundaryInput struct {
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Year         int    `json:"year" validate:"required,min=1900,max=2100"`
	ChassisFirst string `json:"chassisFirst" validate:"required,max=32"`
	ChassisLast  string `json:"chassisLast" validate:"required,max=32"`
	VehicleCount *int   `json:"vehicleCount,omitempty" validate:"omitempty,min=1"`
}

// ImportInput is a bulk paste from a spreadsheet or CSV file.
type ImportInput struct {
	Data         string `json:"data" validate:"required"`
	Replace      bool   `json:"replace"`
	DefaultMake  string `json:"defaultMake,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

// ImportResult reports what a bulk import did.
type ImportResult struct {
	Created   int    `json:"created"`
	Replaced  bool   `json:"replaced"`
	Delimiter string `json:"delimiter"`
}
