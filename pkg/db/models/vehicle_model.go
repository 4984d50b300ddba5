package models

import "github.com/google/uuid"

// VehicleModel is one make/model production span in the reference catalog.
type VehicleModel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Make      string    `gorm:"column:make;not null"`
	Model     string    `gorm:"column:model;not null"`
	YearStart int       `gorm:"column:year_start;not null"`
	YearEnd   int       `gorm:"column:year_end;not null"`
}

func (VehicleModel) TableName() string { return "vehicle_models" }
