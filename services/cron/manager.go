package cron

import (
	"log"
	"time"

	"github.com/projenitor/projenitor-api/model"
	"github.com/projenitor/projenitor-api/services"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	jobPurgeRecycleBin      = "purge_recycle_bin"
	purgeRecycleBinSchedule = "0 0 3 * * *" // daily at 3 AM
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	cascade       *services.CascadeService
	retentionDays int
	now           func() time.Time
}

// NewCronManager creates a new cron manager. retentionDays <= 0 disables the
// recycle bin purge.
func NewCronManager(db *gorm.DB, cascade *services.CascadeService, retentionDays int) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:          c,
		db:            db,
		cascade:       cascade,
		retentionDays: retentionDays,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	// Register all jobs
	if err := m.registerJobs(); err != nil {
		return err
	}

	// Start the cron scheduler
	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	if m.retentionDays <= 0 {
		log.Println("Recycle bin retention is not set, purge job disabled")
		return nil
	}

	_, err := m.cron.AddFunc(purgeRecycleBinSchedule, func() {
		m.PurgeRecycleBin()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	log.Printf("[CRON] Starting job: %s at %s", jobName, m.now().Format(time.RFC3339))

	// Log to database
	cronLog := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now(),
	}
	if err := m.db.Create(cronLog).Error; err != nil {
		log.Printf("[CRON] Failed to record start of %s: %v", jobName, err)
	}
	return cronLog
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(cronLog *model.CronJobLog, message string) {
	log.Printf("[CRON] Completed job: %s - %s", cronLog.JobName, message)
	m.finishJob(cronLog, map[string]interface{}{
		"status":  "completed",
		"message": message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(cronLog *model.CronJobLog, err error) {
	log.Printf("[CRON] Error in job: %s - %v", cronLog.JobName, err)
	m.finishJob(cronLog, map[string]interface{}{
		"status":    "failed",
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finishJob(cronLog *model.CronJobLog, updates map[string]interface{}) {
	if cronLog.ID == 0 {
		return
	}

	completedAt := m.now()
	updates["completed_at"] = completedAt
	updates["duration"] = int(completedAt.Sub(cronLog.StartedAt).Milliseconds())

	// Update database log
	if err := m.db.Model(cronLog).Updates(updates).Error; err != nil {
		log.Printf("[CRON] Failed to record end of %s: %v", cronLog.JobName, err)
	}
}
