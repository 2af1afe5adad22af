package model

import (
	"time"

	"gorm.io/gorm"
)

// Country is the root of the location hierarchy
type Country struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (Country) TableName() string {
	return "countries"
}

// Division sits between Country and District. The UI never exposes it; districts
// added straight under a country get a synthetic "Default Division - <country>".
type Division struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CountryID   uint           `gorm:"not null;uniqueIndex:idx_divisions_parent_name" json:"country_id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_divisions_parent_name" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (Division) TableName() string {
	return "divisions"
}

type District struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	DivisionID  uint           `gorm:"not null;uniqueIndex:idx_districts_parent_name" json:"division_id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_districts_parent_name" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (District) TableName() string {
	return "districts"
}

type Upazila struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	DistrictID  uint           `gorm:"not null;uniqueIndex:idx_upazilas_parent_name" json:"district_id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_upazilas_parent_name" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (Upazila) TableName() string {
	return "upazilas"
}

type Village struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UpazilaID   uint           `gorm:"not null;uniqueIndex:idx_villages_parent_name" json:"upazila_id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_villages_parent_name" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (Village) TableName() string {
	return "villages"
}

// Home is the leaf of the location hierarchy (a household)
type Home struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	VillageID   uint           `gorm:"not null;uniqueIndex:idx_homes_parent_name" json:"village_id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_homes_parent_name" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (Home) TableName() string {
	return "homes"
}

// LocationNode is the level-agnostic view of a row from any of the six location tables
type LocationNode struct {
	ID        uint          `json:"id"`
	Level     LocationLevel `gorm:"-" json:"level"`
	Name      string        `json:"name"`
	ParentID  *uint         `json:"parent_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}
