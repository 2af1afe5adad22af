package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/projenitor/projenitor-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func TestResolveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)

	first, err := env.locations.Resolve(env.ctx, model.LevelVillage, "Gaila", &nodes[model.LevelUpazila].ID)
	require.NoError(t, err)
	second, err := env.locations.Resolve(env.ctx, model.LevelVillage, "Gaila", &nodes[model.LevelUpazila].ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, nodes[model.LevelVillage].ID, first)

	_, err = env.locations.Resolve(env.ctx, model.LevelVillage, "Nowhere", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.locations.Resolve(env.ctx, model.LevelVillage, "  ", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.locations.Resolve(env.ctx, model.LocationLevel("street"), "Gaila", nil)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestResolveIgnoresDeletedNodes(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)

	_, err := env.locations.SoftDelete(env.ctx, "home", nodes[model.LevelHome].ID)
	require.NoError(t, err)

	_, err = env.locations.Resolve(env.ctx, model.LevelHome, "Dutta Bari", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddLocationSiblingUniqueness(t *testing.T) {
	env := newTestEnv(t)
	env.addChain(t)
	_, err := env.locations.AddLocation(env.ctx, "upazila", "Gournadi", "Barisal")
	require.NoError(t, err)

	_, err = env.locations.AddLocation(env.ctx, "village", "A", "Agailjhara")
	require.NoError(t, err)

	_, err = env.locations.AddLocation(env.ctx, "village", "A", "Agailjhara")
	assert.ErrorIs(t, err, ErrConflict)

	node, err := env.locations.AddLocation(env.ctx, "village", "A", "Gournadi")
	require.NoError(t, err)
	assert.Equal(t, "A", node.Name)
	assert.Equal(t, model.LevelVillage, node.Level)
}

func TestAddLocationValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addChain(t)

	_, err := env.locations.AddLocation(env.ctx, "continent", "Asia", "")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = env.locations.AddLocation(env.ctx, "village", "", "Agailjhara")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.locations.AddLocation(env.ctx, "village", "Orphan", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.locations.AddLocation(env.ctx, "village", "Orphan", "No Such Upazila")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.locations.AddLocation(env.ctx, "district", "Dhaka", "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.locations.AddLocation(env.ctx, "country", "Bangladesh", "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAddDistrictReusesSyntheticDivision(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.locations.AddLocation(env.ctx, "country", "CountryA", "")
	require.NoError(t, err)

	d1, err := env.locations.AddLocation(env.ctx, "district", "D1", "CountryA")
	require.NoError(t, err)
	d2, err := env.locations.AddLocation(env.ctx, "district", "D2", "CountryA")
	require.NoError(t, err)

	var divisions []model.Division
	require.NoError(t, env.db.Find(&divisions).Error)
	require.Len(t, divisions, 1)
	assert.Equal(t, "Default Division - CountryA", divisions[0].Name)

	require.NotNil(t, d1.ParentID)
	require.NotNil(t, d2.ParentID)
	assert.Equal(t, divisions[0].ID, *d1.ParentID)
	assert.Equal(t, divisions[0].ID, *d2.ParentID)

	id, err := env.locations.ResolveOrCreateDefaultDivision(env.ctx, divisions[0].CountryID, "CountryA")
	require.NoError(t, err)
	assert.Equal(t, divisions[0].ID, id)

	districtID, err := env.locations.ResolveDistrictInCountry(env.ctx, "D2", divisions[0].CountryID)
	require.NoError(t, err)
	assert.Equal(t, d2.ID, districtID)
}

func TestAddDistrictRevivesDeletedSyntheticDivision(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.locations.AddLocation(env.ctx, "country", "CountryA", "")
	require.NoError(t, err)
	d1, err := env.locations.AddLocation(env.ctx, "district", "D1", "CountryA")
	require.NoError(t, err)
	require.NotNil(t, d1.ParentID)
	divisionID := *d1.ParentID

	_, err = env.cascade.SoftDeleteLocation(env.ctx, model.LevelDivision, divisionID)
	require.NoError(t, err)

	d2, err := env.locations.AddLocation(env.ctx, "district", "D2", "CountryA")
	require.NoError(t, err)
	require.NotNil(t, d2.ParentID)
	assert.Equal(t, divisionID, *d2.ParentID)

	var count int64
	require.NoError(t, env.db.Unscoped().Model(&model.Division{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.False(t, env.isDeleted(t, "divisions", divisionID))
	assert.True(t, env.isDeleted(t, "districts", d1.ID), "districts of the earlier delete stay in the recycle bin")
}

func TestRenameCountryRenamesSyntheticDivision(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.locations.AddLocation(env.ctx, "country", "CountryA", "")
	require.NoError(t, err)
	d1, err := env.locations.AddLocation(env.ctx, "district", "D1", "CountryA")
	require.NoError(t, err)

	_, err = env.locations.RenameLocation(env.ctx, "country", "CountryA", "CountryB", "")
	require.NoError(t, err)

	d2, err := env.locations.AddLocation(env.ctx, "district", "D2", "CountryB")
	require.NoError(t, err)
	assert.Equal(t, *d1.ParentID, *d2.ParentID)

	var divisions []model.Division
	require.NoError(t, env.db.Find(&divisions).Error)
	require.Len(t, divisions, 1)
	assert.Equal(t, DefaultDivisionName("CountryB"), divisions[0].Name)
}

func TestRenameLocationIsParentScoped(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)
	_, err := env.locations.AddLocation(env.ctx, "upazila", "Gournadi", "Barisal")
	require.NoError(t, err)
	twin, err := env.locations.AddLocation(env.ctx, "village", "Gaila", "Gournadi")
	require.NoError(t, err)

	renamed, err := env.locations.RenameLocation(env.ctx, "village", "Gaila", "Gaila North", "Agailjhara")
	require.NoError(t, err)
	assert.Equal(t, nodes[model.LevelVillage].ID, renamed.ID)
	assert.Equal(t, "Gaila North", renamed.Name)

	untouched, err := env.locations.GetLocation(env.ctx, "village", twin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gaila", untouched.Name)

	_, err = env.locations.RenameLocation(env.ctx, "village", "Missing", "X", "Agailjhara")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.locations.AddLocation(env.ctx, "village", "Batajore", "Agailjhara")
	require.NoError(t, err)
	_, err = env.locations.RenameLocation(env.ctx, "village", "Batajore", "Gaila North", "Agailjhara")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRenameDistrictScopesThroughCountry(t *testing.T) {
	env := newTestEnv(t)
	env.addChain(t)
	_, err := env.locations.AddLocation(env.ctx, "country", "India", "")
	require.NoError(t, err)
	indian, err := env.locations.AddLocation(env.ctx, "district", "Barisal", "India")
	require.NoError(t, err)

	renamed, err := env.locations.RenameLocation(env.ctx, "district", "Barisal", "Barishal", "Bangladesh")
	require.NoError(t, err)
	assert.Equal(t, "Barishal", renamed.Name)

	other, err := env.locations.GetLocation(env.ctx, "district", indian.ID)
	require.NoError(t, err)
	assert.Equal(t, "Barisal", other.Name)
}

func TestRenameWithoutParentIsGlobal(t *testing.T) {
	env := newTestEnv(t)
	env.addChain(t)
	_, err := env.locations.AddLocation(env.ctx, "upazila", "Gournadi", "Barisal")
	require.NoError(t, err)
	twin, err := env.locations.AddLocation(env.ctx, "village", "Gaila", "Gournadi")
	require.NoError(t, err)

	_, err = env.locations.RenameLocation(env.ctx, "village", "Gaila", "Renamed", "")
	require.NoError(t, err)

	node, err := env.locations.GetLocation(env.ctx, "village", twin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", node.Name)
}

func TestListChildren(t *testing.T) {
	env := newTestEnv(t)
	env.addChain(t)
	for _, name := range []string{"Uzirpur", "Babuganj"} {
		_, err := env.locations.AddLocation(env.ctx, "upazila", name, "Barisal")
		require.NoError(t, err)
	}
	_, err := env.locations.AddLocation(env.ctx, "district", "Bhola", "Bangladesh")
	require.NoError(t, err)

	names, err := env.locations.ListChildren(env.ctx, "upazila", "Barisal")
	require.NoError(t, err)
	assert.Equal(t, []string{"Agailjhara", "Babuganj", "Uzirpur"}, names)

	names, err = env.locations.ListChildren(env.ctx, "district", "Bangladesh")
	require.NoError(t, err)
	assert.Equal(t, []string{"Barisal", "Bhola"}, names)

	names, err = env.locations.ListChildren(env.ctx, "country", "ignored")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bangladesh"}, names)

	names, err = env.locations.ListChildren(env.ctx, "village", "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)

	_, err = env.locations.ListChildren(env.ctx, "galaxy", "")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestListChildrenCacheIsInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t)
	cache := newMemoryCache()
	env.locations.WithCache(cache, time.Minute)
	env.addChain(t)

	names, err := env.locations.ListChildren(env.ctx, "village", "Agailjhara")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaila"}, names)
	require.Contains(t, cache.entries, "hierarchy:village:Agailjhara")

	// served from the cache, not the table
	cache.entries["hierarchy:village:Agailjhara"] = []byte(`["Cached"]`)
	names, err = env.locations.ListChildren(env.ctx, "village", "Agailjhara")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cached"}, names)

	_, err = env.locations.AddLocation(env.ctx, "village", "Rajihar", "Agailjhara")
	require.NoError(t, err)
	assert.Empty(t, cache.entries)

	names, err = env.locations.ListChildren(env.ctx, "village", "Agailjhara")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaila", "Rajihar"}, names)
}

func TestLocationSoftDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	nodes := env.addChain(t)

	_, err := env.locations.SoftDelete(env.ctx, "upazila", nodes[model.LevelUpazila].ID)
	require.NoError(t, err)

	_, err = env.locations.GetLocation(env.ctx, "village", nodes[model.LevelVillage].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := env.locations.ListChildren(env.ctx, "upazila", "Barisal")
	require.NoError(t, err)
	assert.Empty(t, names)

	restored, err := env.locations.Restore(env.ctx, "upazila", nodes[model.LevelUpazila].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), restored.Affected["villages"])
	assert.Equal(t, int64(1), restored.Affected["homes"])

	home, err := env.locations.GetLocation(env.ctx, "home", nodes[model.LevelHome].ID)
	require.NoError(t, err)
	assert.Equal(t, "Dutta Bari", home.Name)
}
