package cron

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/model"
	"github.com/projenitor/projenitor-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupManager(t *testing.T, retentionDays int) (*CronManager, *gorm.DB) {
	t.Helper()

	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "cron_test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })

	db := store.GetDB()
	return NewCronManager(db, services.NewCascadeService(db), retentionDays), db
}

func TestPurgeRecycleBin(t *testing.T) {
	m, db := setupManager(t, 30)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	members := services.NewMemberService(db, services.NewCascadeService(db))
	ctx := context.Background()
	level := 1
	stale, err := members.CreateMember(ctx, services.MemberInput{FullName: "Stale", Level: &level, IsRoot: true})
	require.NoError(t, err)
	recent, err := members.CreateMember(ctx, services.MemberInput{FullName: "Recent", Level: &level, IsRoot: true})
	require.NoError(t, err)

	require.NoError(t, db.Exec("UPDATE members SET deleted_at = ? WHERE id = ?", now.AddDate(0, 0, -45), stale.ID).Error)
	require.NoError(t, db.Exec("UPDATE members SET deleted_at = ? WHERE id = ?", now.AddDate(0, 0, -5), recent.ID).Error)

	m.PurgeRecycleBin()

	var remaining []uint
	require.NoError(t, db.Unscoped().Model(&model.Member{}).Order("id").Pluck("id", &remaining).Error)
	assert.Equal(t, []uint{recent.ID}, remaining)

	var logs []model.CronJobLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, jobPurgeRecycleBin, logs[0].JobName)
	assert.Equal(t, "completed", logs[0].Status)
	assert.Contains(t, logs[0].Message, "Purged 1 rows")
	assert.NotNil(t, logs[0].CompletedAt)
}

func TestRegisterJobsRespectsRetention(t *testing.T) {
	disabled, _ := setupManager(t, 0)
	require.NoError(t, disabled.registerJobs())
	assert.Empty(t, disabled.cron.Entries())

	enabled, _ := setupManager(t, 30)
	require.NoError(t, enabled.registerJobs())
	assert.Len(t, enabled.cron.Entries(), 1)
}
