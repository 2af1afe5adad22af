package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/projenitor/projenitor-api/model"
)

// PurgeRecycleBin hard-deletes rows that have sat in the recycle bin longer
// than the retention period. Runs daily.
func (m *CronManager) PurgeRecycleBin() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cronLog := m.logJobStart(jobPurgeRecycleBin)

	cutoff := m.now().AddDate(0, 0, -m.retentionDays)
	result, err := m.cascade.Purge(ctx, cutoff)
	if err != nil {
		m.logJobError(cronLog, fmt.Errorf("failed to purge rows deleted before %s: %w", cutoff.Format(time.RFC3339), err))
		return
	}

	var total int64
	for _, rows := range result.Affected {
		total += rows
	}

	message := fmt.Sprintf("Purged %d rows deleted before %s (members: %d, homes: %d, villages: %d)",
		total, cutoff.Format("2006-01-02"),
		result.Affected[string(model.TableMembers)],
		result.Affected[model.LevelHome.Table()],
		result.Affected[model.LevelVillage.Table()])
	m.logJobComplete(cronLog, message)
}
