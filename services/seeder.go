package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/projenitor/projenitor-api/model"
	"gorm.io/gorm"
)

type seedLocation struct {
	level  model.LocationLevel
	name   string
	parent string
}

// demo hierarchy, top-down so every parent exists before its children
var seedLocations = []seedLocation{
	{model.LevelCountry, "Bangladesh", ""},
	{model.LevelDistrict, "Barisal", "Bangladesh"},
	{model.LevelUpazila, "Agailjhara", "Barisal"},
	{model.LevelVillage, "Gaila", "Agailjhara"},
	{model.LevelHome, "Dutta Bari", "Gaila"},
}

// RunSeeds loads the demo hierarchy and a two-generation family. Running it
// again leaves existing rows untouched.
func RunSeeds(ctx context.Context, db *gorm.DB) error {
	cascade := NewCascadeService(db)
	locations := NewLocationService(db, cascade)
	members := NewMemberService(db, cascade)

	log.Println("🌱 Seeding location hierarchy...")
	for _, loc := range seedLocations {
		_, err := locations.AddLocation(ctx, string(loc.level), loc.name, loc.parent)
		switch {
		case err == nil:
			log.Printf("  ✓ %s %q", loc.level, loc.name)
		case errors.Is(err, ErrConflict):
			log.Printf("  • %s %q already exists", loc.level, loc.name)
		default:
			return fmt.Errorf("failed to seed %s %q: %w", loc.level, loc.name, err)
		}
	}

	log.Println("🌱 Seeding family...")
	rootLevel := 1
	ratan, err := seedMember(ctx, db, members, MemberInput{
		FullName: "Ratan",
		Gender:   "male",
		Level:    &rootLevel,
		IsRoot:   true,
		Country:  "Bangladesh",
		District: "Barisal",
		Upazila:  "Agailjhara",
		Village:  "Gaila",
		Home:     "Dutta Bari",
	})
	if err != nil {
		return err
	}

	_, err = seedMember(ctx, db, members, MemberInput{
		FullName: "Shyam",
		Gender:   "male",
		FatherID: &ratan.ID,
		Country:  "Bangladesh",
		District: "Barisal",
		Upazila:  "Agailjhara",
		Village:  "Gaila",
		Home:     "Dutta Bari",
	})
	return err
}

func seedMember(ctx context.Context, db *gorm.DB, members *MemberService, in MemberInput) (*model.Member, error) {
	var existing []model.Member
	if err := db.WithContext(ctx).Where("full_name = ?", in.FullName).Order("id").Limit(1).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to look up member %q: %w", in.FullName, err)
	}
	if len(existing) > 0 {
		log.Printf("  • member %q already exists", in.FullName)
		return &existing[0], nil
	}

	member, err := members.CreateMember(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to seed member %q: %w", in.FullName, err)
	}
	log.Printf("  ✓ member %q (level %d)", member.FullName, derefLevel(member.Level))
	return member, nil
}

func derefLevel(level *int) int {
	if level == nil {
		return 0
	}
	return *level
}
