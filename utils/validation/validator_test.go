package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type levelRequest struct {
	Level string `json:"level" validate:"required,location_level"`
	Name  string `json:"name" validate:"required,max=5"`
	Born  string `json:"born" validate:"omitempty,datetime=2006-01-02"`
}

func TestLocationLevelTag(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"country", "division", "district", "upazila", "village", "home", " Village "} {
		assert.NoError(t, v.ValidateStruct(levelRequest{Level: level, Name: "x"}), level)
	}

	err := v.ValidateStruct(levelRequest{Level: "planet", Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Level must be one of country, division, district, upazila, village, home")
	assert.True(t, FailedOn(err, "location_level"))
	assert.False(t, FailedOn(err, "required"))

	err = v.ValidateStruct(levelRequest{Level: "village"})
	require.Error(t, err)
	assert.False(t, FailedOn(err, "location_level"))
	assert.True(t, FailedOn(err, "required"))
}

func TestValidateStructMessages(t *testing.T) {
	v := NewValidator()

	err := v.ValidateStruct(levelRequest{Name: "too long", Born: "01/02/2003"})
	require.Error(t, err)
	assert.Equal(t,
		"Born must be formatted as 2006-01-02; Level is required; Name must be at most 5 characters",
		err.Error())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Gaila", SanitizeString("  Ga\x00ila \n"))
}
