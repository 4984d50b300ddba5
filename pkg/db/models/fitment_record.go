package models

import (
	"time"

	"github.com/google/uuid"
)

// FitmentRecord declares that a SKU fits a make/model within a chassis range.
// Nil bounds are open.
type FitmentRecord struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string    `gorm:"column:sku;not null;index:idx_fitment_records_sku"`
	Make           string    `gorm:"column:make;not null;index:idx_fitment_records_make_model,priority:1"`
	Model          string    `gorm:"column:model;not null;index:idx_fitment_records_make_model,priority:2"`
	ChassisStart   *string   `gorm:"column:chassis_start"`
	ChassisEnd     *string   `gorm:"column:chassis_end"`
	AdditionalInfo *string   `gorm:"column:additional_info"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (FitmentRecord) TableName() string { return "fitment_records" }

// ChassisYearBoundary stores an explicit chassis span for one production year.
type ChassisYearBoundary struct {
	Make         string `gorm:"column:make;primaryKey"`
	Model        string `gorm:"column:model;primaryKey"`
	Year         int    `gorm:"column:year;primaryKey"`
	ChassisFirst string `gorm:"column:chassis_first;not null"`
	ChassisLast  string `gorm:"column:chassis_last;not null"`
	VehicleCount *int   `gorm:"column:vehicle_count"`
}

func (ChassisYearBoundary) TableName() string { return "chassis_year_boundaries" }

// Supersession maps a retired SKU to its replacement.
type Supersession struct {
	OldSKU    string    `gorm:"column:old_sku;primaryKey"`
	NewSKU    string    `gorm:"column:new_sku;not null;index:idx_supersessions_new_sku"`
	Note      *string   `gorm:"column:note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Supersession) TableName() string { return "supersessions" }
