package services

import (
	"testing"

	"github.com/projenitor/projenitor-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)

	father := env.addRoot(t, "Ratan", 1)
	son := env.addChild(t, "Shyam", father)
	env.addChild(t, "Hari", son)
	env.addMember(t, MemberInput{FullName: "Elder", Level: intPtr(1), DateOfDeath: "1990-01-01"})
	loner := env.addRoot(t, "Loner", 1)

	_, err := env.members.DeleteMember(env.ctx, loner.ID)
	require.NoError(t, err)
	_, err = env.locations.SoftDelete(env.ctx, "village", nodes[model.LevelVillage].ID)
	require.NoError(t, err)

	stats, err := NewStatsService(env.db).GetDashboardStats(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalMembers)
	assert.Equal(t, int64(3), stats.LivingMembers)
	assert.Equal(t, int64(2), stats.RootMembers)
	assert.Equal(t, int64(3), stats.Generations)
	assert.Equal(t, int64(1), stats.DeletedMembers)
	// village and its home
	assert.Equal(t, int64(2), stats.DeletedLocations)

	assert.Equal(t, int64(1), stats.Locations["countries"])
	assert.Equal(t, int64(1), stats.Locations["divisions"])
	assert.Equal(t, int64(1), stats.Locations["districts"])
	assert.Equal(t, int64(1), stats.Locations["upazilas"])
	assert.Equal(t, int64(0), stats.Locations["villages"])
	assert.Equal(t, int64(0), stats.Locations["homes"])
}

func TestGetDashboardStatsEmpty(t *testing.T) {
	env := newTestEnv(t)

	stats, err := NewStatsService(env.db).GetDashboardStats(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalMembers)
	assert.Zero(t, stats.Generations)
	assert.Len(t, stats.Locations, len(model.LocationLevels))
}
