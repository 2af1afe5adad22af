package services

import (
	"testing"

	"github.com/projenitor/projenitor-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leveled(id uint, level int) model.Member {
	return model.Member{ID: id, Level: &level}
}

func TestCompareLabels(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int
		distance int
		label    string
	}{
		{"same generation", 3, 3, 0, LabelSameGeneration},
		{"child", 1, 2, 1, "one generation down"},
		{"parent", 2, 1, 1, "one generation up"},
		{"grandchild", 1, 3, 2, "two generations down"},
		{"grandparent", 3, 1, 2, "two generations up"},
		{"deep descendant", 1, 6, 5, "5 generations down"},
		{"deep ancestor", 7, 2, 5, "5 generations up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := Compare(leveled(1, tt.a), leveled(2, tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.distance, rel.Distance)
			assert.Equal(t, tt.label, rel.Label)
			assert.False(t, rel.Lineal)
		})
	}
}

func TestCompareDistanceIsSymmetric(t *testing.T) {
	for a := 1; a <= 5; a++ {
		for b := 1; b <= 5; b++ {
			ab, err := Compare(leveled(1, a), leveled(2, b))
			require.NoError(t, err)
			ba, err := Compare(leveled(2, b), leveled(1, a))
			require.NoError(t, err)
			assert.Equal(t, ab.Distance, ba.Distance)
		}
	}
}

func TestCompareSamePerson(t *testing.T) {
	rel, err := Compare(leveled(7, 2), leveled(7, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, rel.Distance)
	assert.Equal(t, LabelSamePerson, rel.Label)

	// identity wins even when the level is unknown
	rel, err = Compare(model.Member{ID: 7}, model.Member{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, LabelSamePerson, rel.Label)
}

func TestCompareRequiresLevels(t *testing.T) {
	_, err := Compare(leveled(1, 1), model.Member{ID: 2})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Compare(model.Member{ID: 1}, leveled(2, 1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
