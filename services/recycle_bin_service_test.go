package services

import (
	"testing"

	"github.com/projenitor/projenitor-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeIDs(nodes []model.LocationNode) []uint {
	ids := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func memberIDs(members []model.Member) []uint {
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestRecycleBinListsRootCausesOnly(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)

	// village first, then its upazila: only the upazila is a root cause
	_, err := env.locations.SoftDelete(env.ctx, "village", nodes[model.LevelVillage].ID)
	require.NoError(t, err)
	_, err = env.locations.SoftDelete(env.ctx, "upazila", nodes[model.LevelUpazila].ID)
	require.NoError(t, err)

	bin, err := env.recycleBin.ListDeleted(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{nodes[model.LevelUpazila].ID}, nodeIDs(bin.Upazilas))
	assert.Empty(t, bin.Villages)
	assert.Empty(t, bin.Homes)
	assert.Empty(t, bin.Countries)
	assert.Empty(t, bin.Members)
	for _, n := range bin.Upazilas {
		assert.Equal(t, model.LevelUpazila, n.Level)
	}
}

func TestRecycleBinMemberExclusions(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)

	father := env.addRoot(t, "Ratan", 1)
	son := env.addChild(t, "Shyam", father)
	villager := env.addMember(t, MemberInput{
		FullName: "Villager",
		Country:  "Bangladesh",
		District: "Barisal",
		Upazila:  "Agailjhara",
		Village:  "Gaila",
	})
	loner := env.addRoot(t, "Loner", 1)

	_, err := env.members.DeleteMember(env.ctx, father.ID)
	require.NoError(t, err)
	_, err = env.members.DeleteMember(env.ctx, loner.ID)
	require.NoError(t, err)
	_, err = env.locations.SoftDelete(env.ctx, "village", nodes[model.LevelVillage].ID)
	require.NoError(t, err)

	assert.True(t, env.isDeleted(t, "members", son.ID))
	assert.True(t, env.isDeleted(t, "members", villager.ID))

	bin, err := env.recycleBin.ListDeleted(env.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{father.ID, loner.ID}, memberIDs(bin.Members))
	assert.Equal(t, []uint{nodes[model.LevelVillage].ID}, nodeIDs(bin.Villages))
}

func TestRecycleBinListsIndependentlyDeletedChild(t *testing.T) {
	env := newTestEnv(t)
	father := env.addRoot(t, "Ratan", 1)
	son := env.addChild(t, "Shyam", father)

	_, err := env.members.DeleteMember(env.ctx, son.ID)
	require.NoError(t, err)
	_, err = env.members.DeleteMember(env.ctx, father.ID)
	require.NoError(t, err)

	bin, err := env.recycleBin.ListDeleted(env.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{father.ID, son.ID}, memberIDs(bin.Members))
}

func TestRecycleBinRestore(t *testing.T) {
	env := newTestEnv(t)
	cache := newMemoryCache()
	env.locations.WithCache(cache, 0)
	nodes := env.addChain(t)

	_, err := env.locations.SoftDelete(env.ctx, "village", nodes[model.LevelVillage].ID)
	require.NoError(t, err)

	names, err := env.locations.ListChildren(env.ctx, "village", "Agailjhara")
	require.NoError(t, err)
	assert.Empty(t, names)
	require.NotEmpty(t, cache.entries)

	result, err := env.recycleBin.Restore(env.ctx, "villages", nodes[model.LevelVillage].ID)
	require.NoError(t, err)
	assert.Equal(t, "villages", result.Table)
	row, ok := result.Row.(*model.LocationNode)
	require.True(t, ok)
	assert.Equal(t, "Gaila", row.Name)
	assert.Empty(t, cache.entries)

	bin, err := env.recycleBin.ListDeleted(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, bin.Villages)
	assert.Empty(t, bin.Homes)

	_, err = env.recycleBin.Restore(env.ctx, "users", 1)
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = env.recycleBin.Restore(env.ctx, "villages", nodes[model.LevelVillage].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
