package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Member is a person in the family tree. FatherID, MotherID and SpouseID are weak
// references into the same table; Level is the generation depth (1 = earliest).
type Member struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	FullName    string          `gorm:"type:varchar(255);not null;index" json:"full_name"`
	Gender      string          `gorm:"type:varchar(20)" json:"gender"`
	BloodGroup  string          `gorm:"type:varchar(5)" json:"blood_group"`
	Occupation  string          `gorm:"type:varchar(255)" json:"occupation"`
	Education   string          `gorm:"type:varchar(255)" json:"education"`
	Phone       string          `gorm:"type:varchar(30)" json:"phone"`
	Email       string          `gorm:"type:varchar(255)" json:"email"`
	DateOfBirth *datatypes.Date `json:"date_of_birth,omitempty"`
	DateOfDeath *datatypes.Date `json:"date_of_death,omitempty"`
	IsAlive     bool            `gorm:"not null" json:"is_alive"`
	Level       *int            `gorm:"index" json:"level"`

	FatherID *uint `gorm:"index" json:"father_id"`
	MotherID *uint `gorm:"index" json:"mother_id"`
	SpouseID *uint `gorm:"index" json:"spouse_id"`

	CountryID  *uint `gorm:"index" json:"country_id"`
	DivisionID *uint `gorm:"index" json:"division_id"`
	DistrictID *uint `gorm:"index" json:"district_id"`
	UpazilaID  *uint `gorm:"index" json:"upazila_id"`
	VillageID  *uint `gorm:"index" json:"village_id"`
	HomeID     *uint `gorm:"index" json:"home_id"`

	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	DeleteBatch *string        `gorm:"type:varchar(36);index" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

// LocationID returns the member's FK at the given level
func (m *Member) LocationID(level LocationLevel) *uint {
	switch level {
	case LevelCountry:
		return m.CountryID
	case LevelDivision:
		return m.DivisionID
	case LevelDistrict:
		return m.DistrictID
	case LevelUpazila:
		return m.UpazilaID
	case LevelVillage:
		return m.VillageID
	case LevelHome:
		return m.HomeID
	}
	return nil
}

// SetLocationID sets the member's FK at the given level
func (m *Member) SetLocationID(level LocationLevel, id *uint) {
	switch level {
	case LevelCountry:
		m.CountryID = id
	case LevelDivision:
		m.DivisionID = id
	case LevelDistrict:
		m.DistrictID = id
	case LevelUpazila:
		m.UpazilaID = id
	case LevelVillage:
		m.VillageID = id
	case LevelHome:
		m.HomeID = id
	}
}

// HouseholdMember is a member row joined with the names of its home and village
type HouseholdMember struct {
	Member
	HomeName    string `json:"home_name"`
	VillageName string `json:"village_name"`
}
