package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	ctx        context.Context
	db         *gorm.DB
	cascade    *CascadeService
	locations  *LocationService
	members    *MemberService
	recycleBin *RecycleBinService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "projenitor_test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })

	db := store.GetDB()
	cascade := NewCascadeService(db)
	locations := NewLocationService(db, cascade)
	return &testEnv{
		ctx:        context.Background(),
		db:         db,
		cascade:    cascade,
		locations:  locations,
		members:    NewMemberService(db, cascade),
		recycleBin: NewRecycleBinService(db, cascade, locations),
	}
}

// addChain creates Bangladesh > Barisal > Agailjhara > Gaila > Dutta Bari
func (e *testEnv) addChain(t *testing.T) map[model.LocationLevel]*model.LocationNode {
	t.Helper()

	nodes := map[model.LocationLevel]*model.LocationNode{}
	for _, step := range []struct {
		level  model.LocationLevel
		name   string
		parent string
	}{
		{model.LevelCountry, "Bangladesh", ""},
		{model.LevelDistrict, "Barisal", "Bangladesh"},
		{model.LevelUpazila, "Agailjhara", "Barisal"},
		{model.LevelVillage, "Gaila", "Agailjhara"},
		{model.LevelHome, "Dutta Bari", "Gaila"},
	} {
		node, err := e.locations.AddLocation(e.ctx, string(step.level), step.name, step.parent)
		require.NoError(t, err)
		nodes[step.level] = node
	}
	return nodes
}

func (e *testEnv) addMember(t *testing.T, in MemberInput) *model.Member {
	t.Helper()
	member, err := e.members.CreateMember(e.ctx, in)
	require.NoError(t, err)
	return member
}

// addRoot creates a root member at the given level
func (e *testEnv) addRoot(t *testing.T, name string, level int) *model.Member {
	t.Helper()
	return e.addMember(t, MemberInput{FullName: name, Level: &level, IsRoot: true})
}

func (e *testEnv) addChild(t *testing.T, name string, father *model.Member) *model.Member {
	t.Helper()
	return e.addMember(t, MemberInput{FullName: name, FatherID: &father.ID})
}

func (e *testEnv) reload(t *testing.T, id uint) model.Member {
	t.Helper()
	var member model.Member
	require.NoError(t, e.db.Unscoped().First(&member, id).Error)
	return member
}

func (e *testEnv) isDeleted(t *testing.T, table string, id uint) bool {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Table(table).Where("id = ? AND deleted_at IS NOT NULL", id).Count(&count).Error)
	return count == 1
}

func intPtr(v int) *int { return &v }
