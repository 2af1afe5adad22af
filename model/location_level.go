package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownLevel = errors.New("unknown location level")
	ErrUnknownTable = errors.New("table is not restorable")
)

// LocationLevel tags one of the six tables of the location hierarchy. It is the
// only source of table and column identifiers used in dynamically built SQL.
type LocationLevel string

const (
	LevelCountry  LocationLevel = "country"
	LevelDivision LocationLevel = "division"
	LevelDistrict LocationLevel = "district"
	LevelUpazila  LocationLevel = "upazila"
	LevelVillage  LocationLevel = "village"
	LevelHome     LocationLevel = "home"
)

// LocationLevels lists the hierarchy top-down.
var LocationLevels = []LocationLevel{
	LevelCountry,
	LevelDivision,
	LevelDistrict,
	LevelUpazila,
	LevelVillage,
	LevelHome,
}

type levelInfo struct {
	table        string
	parentColumn string
	memberColumn string
	depth        int
}

var levelInfos = map[LocationLevel]levelInfo{
	LevelCountry:  {table: "countries", parentColumn: "", memberColumn: "country_id", depth: 0},
	LevelDivision: {table: "divisions", parentColumn: "country_id", memberColumn: "division_id", depth: 1},
	LevelDistrict: {table: "districts", parentColumn: "division_id", memberColumn: "district_id", depth: 2},
	LevelUpazila:  {table: "upazilas", parentColumn: "district_id", memberColumn: "upazila_id", depth: 3},
	LevelVillage:  {table: "villages", parentColumn: "upazila_id", memberColumn: "village_id", depth: 4},
	LevelHome:     {table: "homes", parentColumn: "village_id", memberColumn: "home_id", depth: 5},
}

// ParseLocationLevel maps user input onto the closed set of levels
func ParseLocationLevel(raw string) (LocationLevel, error) {
	level := LocationLevel(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := levelInfos[level]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, raw)
	}
	return level, nil
}

func (l LocationLevel) Valid() bool {
	_, ok := levelInfos[l]
	return ok
}

func (l LocationLevel) Table() string {
	return levelInfos[l].table
}

// ParentColumn is empty for countries.
func (l LocationLevel) ParentColumn() string {
	return levelInfos[l].parentColumn
}

// MemberColumn is the members FK column pointing at this level
func (l LocationLevel) MemberColumn() string {
	return levelInfos[l].memberColumn
}

// Parent returns the next level up; ok is false for countries.
func (l LocationLevel) Parent() (LocationLevel, bool) {
	depth := levelInfos[l].depth
	if depth == 0 || !l.Valid() {
		return "", false
	}
	return LocationLevels[depth-1], true
}

// Child returns the next level down; ok is false for homes.
func (l LocationLevel) Child() (LocationLevel, bool) {
	if !l.Valid() {
		return "", false
	}
	depth := levelInfos[l].depth
	if depth == len(LocationLevels)-1 {
		return "", false
	}
	return LocationLevels[depth+1], true
}

// Below returns every level strictly under l, top-down.
func (l LocationLevel) Below() []LocationLevel {
	if !l.Valid() {
		return nil
	}
	return LocationLevels[levelInfos[l].depth+1:]
}

// Table is an allow-listed restorable table name
type Table string

const TableMembers Table = "members"

// ParseTable accepts only members and the six location tables
func ParseTable(raw string) (Table, error) {
	if raw == string(TableMembers) {
		return TableMembers, nil
	}
	for _, level := range LocationLevels {
		if raw == level.Table() {
			return Table(raw), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, raw)
}

// Level returns the location level behind a table; ok is false for members.
func (t Table) Level() (LocationLevel, bool) {
	for _, level := range LocationLevels {
		if string(t) == level.Table() {
			return level, true
		}
	}
	return "", false
}
