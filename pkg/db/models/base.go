package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a v4 id when the caller left it empty, so inserts do not
// depend on a database-side uuid default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (v *VehicleModel) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

func (f *FitmentRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (p *CMSPage) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (v *CMSVideo) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
