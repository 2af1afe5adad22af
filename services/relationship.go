package services

import (
	"fmt"

	"github.com/projenitor/projenitor-api/model"
)

const (
	LabelSamePerson     = "same person"
	LabelSameGeneration = "same generation"
)

// Relationship is the generation-depth proximity between two members. It does
// not distinguish kinship (a cousin and a sibling share a generation).
type Relationship struct {
	Distance int    `json:"distance"`
	Label    string `json:"label"`
	// Lineal is set by MemberService.CompareMembers when one member descends from the other
	Lineal bool `json:"lineal"`
}

// Compare describes b as seen from a, using diff = a.level - b.level. A negative
// diff means b sits further down the tree: Compare(father, son) is "one
// generation down".
func Compare(a, b model.Member) (Relationship, error) {
	if a.ID == b.ID {
		return Relationship{Distance: 0, Label: LabelSamePerson}, nil
	}
	if a.Level == nil || b.Level == nil {
		return Relationship{}, fmt.Errorf("%w: both members need a level to be compared", ErrInvalidInput)
	}

	diff := *a.Level - *b.Level
	distance := diff
	if distance < 0 {
		distance = -distance
	}

	return Relationship{Distance: distance, Label: generationLabel(diff)}, nil
}

func generationLabel(diff int) string {
	switch diff {
	case 0:
		return LabelSameGeneration
	case -1:
		return "one generation down"
	case 1:
		return "one generation up"
	case -2:
		return "two generations down"
	case 2:
		return "two generations up"
	}

	if diff < 0 {
		return fmt.Sprintf("%d generations down", -diff)
	}
	return fmt.Sprintf("%d generations up", diff)
}
