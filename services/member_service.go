package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/projenitor/projenitor-api/model"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// MemberInput is the create/update payload. Locations are given by name and
// resolved top-down; a name that does not resolve leaves that level and every
// deeper level empty.
type MemberInput struct {
	FullName    string `json:"full_name" validate:"required,max=255"`
	Gender      string `json:"gender" validate:"omitempty,max=20"`
	BloodGroup  string `json:"blood_group" validate:"omitempty,max=5"`
	Occupation  string `json:"occupation" validate:"omitempty,max=255"`
	Education   string `json:"education" validate:"omitempty,max=255"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	Email       string `json:"email" validate:"omitempty,email"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	DateOfDeath string `json:"date_of_death" validate:"omitempty,datetime=2006-01-02"`
	IsAlive     *bool  `json:"is_alive"`

	Level  *int `json:"level" validate:"omitempty,gte=1"`
	IsRoot bool `json:"is_root"`

	FatherID *uint `json:"father_id"`
	MotherID *uint `json:"mother_id"`
	SpouseID *uint `json:"spouse_id"`

	Country  string `json:"country"`
	Division string `json:"division"`
	District string `json:"district"`
	Upazila  string `json:"upazila"`
	Village  string `json:"village"`
	Home     string `json:"home"`
}

// LocationName returns the name given for level
func (in MemberInput) LocationName(level model.LocationLevel) string {
	switch level {
	case model.LevelCountry:
		return in.Country
	case model.LevelDivision:
		return in.Division
	case model.LevelDistrict:
		return in.District
	case model.LevelUpazila:
		return in.Upazila
	case model.LevelVillage:
		return in.Village
	case model.LevelHome:
		return in.Home
	}
	return ""
}

// Relatives is a member with its immediate family
type Relatives struct {
	Self     *model.Member  `json:"self"`
	Parents  []model.Member `json:"parents"`
	Spouse   *model.Member  `json:"spouse"`
	Children []model.Member `json:"children"`
}

// MemberService manages family tree members and their place in the location hierarchy
type MemberService struct {
	db      *gorm.DB
	cascade *CascadeService
}

// NewMemberService creates a new member service
func NewMemberService(db *gorm.DB, cascade *CascadeService) *MemberService {
	return &MemberService{
		db:      db,
		cascade: cascade,
	}
}

// CreateMember stores a new member. Unless the member is flagged as a root,
// a member with a father that has a level lands one generation below him.
func (s *MemberService) CreateMember(ctx context.Context, in MemberInput) (*model.Member, error) {
	var member model.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyMemberInput(&member, in); err != nil {
			return err
		}
		if err := checkMemberRefs(tx, 0, in); err != nil {
			return err
		}
		if err := resolveMemberLocations(tx, &member, in); err != nil {
			return err
		}

		level, err := memberLevel(tx, in)
		if err != nil {
			return err
		}
		member.Level = level

		if err := tx.Create(&member).Error; err != nil {
			return classifyWriteError(err, "create member %q", member.FullName)
		}

		if member.SpouseID != nil {
			if err := linkSpouses(tx, member.ID, *member.SpouseID); err != nil {
				return err
			}
		}

		return tx.First(&member, member.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMember replaces a member's fields. Changing the father does not
// recompute the level; an explicit level change is shifted through the
// member's descendants.
func (s *MemberService) UpdateMember(ctx context.Context, id uint, in MemberInput) (*model.Member, error) {
	var member model.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&member, id).Error; err != nil {
			return classifyWriteError(err, "member %d", id)
		}
		previousSpouse := member.SpouseID
		previousLevel := member.Level

		if err := checkMemberRefs(tx, id, in); err != nil {
			return err
		}
		if err := applyMemberInput(&member, in); err != nil {
			return err
		}
		if err := resolveMemberLocations(tx, &member, in); err != nil {
			return err
		}

		if in.Level != nil {
			if previousLevel != nil && *in.Level != *previousLevel {
				if _, err := s.cascade.shiftLevels(tx, id, *in.Level-*previousLevel); err != nil {
					return err
				}
			}
			member.Level = in.Level
		}

		if err := tx.Save(&member).Error; err != nil {
			return classifyWriteError(err, "update member %d", id)
		}

		if !sameRef(previousSpouse, member.SpouseID) {
			if previousSpouse != nil {
				err := tx.Exec("UPDATE members SET spouse_id = NULL WHERE id = ? AND spouse_id = ?", *previousSpouse, id).Error
				if err != nil {
					return fmt.Errorf("failed to unlink spouse %d: %w", *previousSpouse, err)
				}
			}
			if member.SpouseID != nil {
				if err := linkSpouses(tx, id, *member.SpouseID); err != nil {
					return err
				}
			}
		}

		return tx.First(&member, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMember returns an active member
func (s *MemberService) GetMember(ctx context.Context, id uint) (*model.Member, error) {
	var member model.Member
	if err := s.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return nil, classifyWriteError(err, "member %d", id)
	}
	return &member, nil
}

// GetRelatives loads a member's parents, spouse and children concurrently
func (s *MemberService) GetRelatives(ctx context.Context, id uint) (*Relatives, error) {
	self, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	relatives := &Relatives{
		Self:     self,
		Parents:  []model.Member{},
		Children: []model.Member{},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		parentIDs := make([]uint, 0, 2)
		for _, ref := range []*uint{self.FatherID, self.MotherID} {
			if ref != nil {
				parentIDs = append(parentIDs, *ref)
			}
		}
		if len(parentIDs) == 0 {
			return nil
		}
		return s.db.WithContext(gctx).Where("id IN ?", parentIDs).Order("id").Find(&relatives.Parents).Error
	})

	g.Go(func() error {
		if self.SpouseID == nil {
			return nil
		}
		var spouse []model.Member
		if err := s.db.WithContext(gctx).Where("id = ?", *self.SpouseID).Limit(1).Find(&spouse).Error; err != nil {
			return err
		}
		if len(spouse) > 0 {
			relatives.Spouse = &spouse[0]
		}
		return nil
	})

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("father_id = ? OR mother_id = ?", id, id).
			Order("id").
			Find(&relatives.Children).Error
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load relatives of member %d: %w", id, err)
	}
	return relatives, nil
}

// ListHousehold returns the active members living in the named home, optionally
// narrowed to a village.
func (s *MemberService) ListHousehold(ctx context.Context, homeName, villageName string) ([]model.HouseholdMember, error) {
	homeName = strings.TrimSpace(homeName)
	villageName = strings.TrimSpace(villageName)
	if homeName == "" {
		return nil, fmt.Errorf("%w: home_name is required", ErrInvalidInput)
	}

	query := `SELECT m.*, h.name AS home_name, v.name AS village_name
		FROM members m
		JOIN homes h ON h.id = m.home_id
		LEFT JOIN villages v ON v.id = h.village_id
		WHERE m.deleted_at IS NULL AND h.deleted_at IS NULL AND h.name = ?`
	args := []interface{}{homeName}
	if villageName != "" {
		query += " AND v.name = ?"
		args = append(args, villageName)
	}
	query += " ORDER BY m.level, m.id"

	household := []model.HouseholdMember{}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&household).Error; err != nil {
		return nil, fmt.Errorf("failed to list household %q: %w", homeName, err)
	}
	return household, nil
}

// DeleteMember soft deletes a member together with all descendants
func (s *MemberService) DeleteMember(ctx context.Context, id uint) (*CascadeResult, error) {
	return s.cascade.SoftDeleteMemberSubtree(ctx, id)
}

// ListDescendants returns the ids of every transitive child
func (s *MemberService) ListDescendants(ctx context.Context, id uint) ([]uint, error) {
	return s.cascade.FindDescendants(ctx, id)
}

// ShiftLevels moves a member and its descendants delta generations
func (s *MemberService) ShiftLevels(ctx context.Context, id uint, delta int) (*CascadeResult, error) {
	return s.cascade.ShiftLevels(ctx, id, delta)
}

// CompareMembers relates member b to member a
func (s *MemberService) CompareMembers(ctx context.Context, aID, bID uint) (*Relationship, error) {
	a, err := s.GetMember(ctx, aID)
	if err != nil {
		return nil, err
	}
	b, err := s.GetMember(ctx, bID)
	if err != nil {
		return nil, err
	}

	rel, err := Compare(*a, *b)
	if err != nil {
		return nil, err
	}
	if aID == bID {
		return &rel, nil
	}

	tx := s.db.WithContext(ctx)
	lineal, err := isDescendant(tx, aID, bID)
	if err == nil && !lineal {
		lineal, err = isDescendant(tx, bID, aID)
	}
	if err != nil {
		return nil, err
	}
	rel.Lineal = lineal
	return &rel, nil
}

func isDescendant(tx *gorm.DB, ancestorID, memberID uint) (bool, error) {
	var count int64
	err := tx.Raw(descendantsCTE+"SELECT COUNT(*) FROM descendants WHERE id = @member", map[string]interface{}{
		"root":   ancestorID,
		"member": memberID,
	}).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check lineage of member %d: %w", memberID, err)
	}
	return count > 0, nil
}

func applyMemberInput(member *model.Member, in MemberInput) error {
	member.FullName = strings.TrimSpace(in.FullName)
	if member.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	member.Gender = strings.TrimSpace(in.Gender)
	member.BloodGroup = strings.TrimSpace(in.BloodGroup)
	member.Occupation = strings.TrimSpace(in.Occupation)
	member.Education = strings.TrimSpace(in.Education)
	member.Phone = strings.TrimSpace(in.Phone)
	member.Email = strings.TrimSpace(in.Email)

	var err error
	if member.DateOfBirth, err = parseDate("date_of_birth", in.DateOfBirth); err != nil {
		return err
	}
	if member.DateOfDeath, err = parseDate("date_of_death", in.DateOfDeath); err != nil {
		return err
	}

	member.IsAlive = member.DateOfDeath == nil
	if in.IsAlive != nil {
		member.IsAlive = *in.IsAlive
	}

	if in.Level != nil && *in.Level < 1 {
		return fmt.Errorf("%w: level must be at least 1", ErrInvalidInput)
	}

	member.FatherID = in.FatherID
	member.MotherID = in.MotherID
	member.SpouseID = in.SpouseID
	return nil
}

func parseDate(field, raw string) (*datatypes.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be formatted as %s", ErrInvalidInput, field, dateLayout)
	}
	date := datatypes.Date(t)
	return &date, nil
}

// checkMemberRefs verifies father, mother and spouse exist. For an existing
// member (self != 0) it also rejects references that would close a cycle.
func checkMemberRefs(tx *gorm.DB, self uint, in MemberInput) error {
	refs := []struct {
		name string
		id   *uint
	}{
		{"father_id", in.FatherID},
		{"mother_id", in.MotherID},
		{"spouse_id", in.SpouseID},
	}

	var descendants []uint
	if self != 0 && (in.FatherID != nil || in.MotherID != nil) {
		var err error
		if descendants, err = findDescendants(tx, self); err != nil {
			return err
		}
	}

	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if self != 0 && *ref.id == self {
			return fmt.Errorf("%w: %s cannot point at the member itself", ErrInvalidInput, ref.name)
		}
		if ref.name != "spouse_id" {
			for _, d := range descendants {
				if d == *ref.id {
					return fmt.Errorf("%w: %s %d is a descendant of member %d", ErrInvalidInput, ref.name, *ref.id, self)
				}
			}
		}
		if err := memberExists(tx, *ref.id, false); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: %s %d does not exist", ErrInvalidInput, ref.name, *ref.id)
			}
			return err
		}
	}
	return nil
}

func memberLevel(tx *gorm.DB, in MemberInput) (*int, error) {
	if in.IsRoot || in.FatherID == nil {
		return in.Level, nil
	}

	var father model.Member
	if err := tx.Select("id", "level").First(&father, *in.FatherID).Error; err != nil {
		return nil, classifyWriteError(err, "father %d", *in.FatherID)
	}
	if father.Level == nil {
		return in.Level, nil
	}
	level := *father.Level + 1
	return &level, nil
}

// resolveMemberLocations fills the six location ids from names. A blank
// division resolves the district through the country and adopts its division.
func resolveMemberLocations(tx *gorm.DB, member *model.Member, in MemberInput) error {
	for _, level := range model.LocationLevels {
		member.SetLocationID(level, nil)
	}

	// miss reports whether resolution stops here
	miss := func(err error) (bool, error) {
		if err == nil {
			return false, nil
		}
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return true, err
	}

	countryID, err := resolveLocation(tx, model.LevelCountry, in.Country, nil)
	if stop, err := miss(err); stop {
		return err
	}
	member.CountryID = &countryID

	var districtID uint
	if strings.TrimSpace(in.Division) == "" {
		var divisionID uint
		districtID, divisionID, err = resolveDistrictInCountry(tx, in.District, countryID)
		if stop, err := miss(err); stop {
			return err
		}
		member.DivisionID = &divisionID
	} else {
		divisionID, err := resolveLocation(tx, model.LevelDivision, in.Division, &countryID)
		if stop, err := miss(err); stop {
			return err
		}
		member.DivisionID = &divisionID

		districtID, err = resolveLocation(tx, model.LevelDistrict, in.District, &divisionID)
		if stop, err := miss(err); stop {
			return err
		}
	}
	member.DistrictID = &districtID

	parentID := districtID
	for _, level := range []model.LocationLevel{model.LevelUpazila, model.LevelVillage, model.LevelHome} {
		id, err := resolveLocation(tx, level, in.LocationName(level), &parentID)
		if stop, err := miss(err); stop {
			return err
		}
		member.SetLocationID(level, &id)
		parentID = id
	}
	return nil
}

// linkSpouses pairs a and b, clearing whatever either of them was paired with before
func linkSpouses(tx *gorm.DB, a, b uint) error {
	if a == b {
		return fmt.Errorf("%w: a member cannot be their own spouse", ErrInvalidInput)
	}

	pair := []uint{a, b}
	if err := tx.Exec("UPDATE members SET spouse_id = NULL WHERE spouse_id IN ? AND id NOT IN ?", pair, pair).Error; err != nil {
		return fmt.Errorf("failed to clear previous spouses of %d and %d: %w", a, b, err)
	}
	if err := tx.Exec("UPDATE members SET spouse_id = ? WHERE id = ?", b, a).Error; err != nil {
		return fmt.Errorf("failed to link spouse %d: %w", a, err)
	}
	if err := tx.Exec("UPDATE members SET spouse_id = ? WHERE id = ?", a, b).Error; err != nil {
		return fmt.Errorf("failed to link spouse %d: %w", b, err)
	}
	return nil
}

func sameRef(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
