package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/projenitor/projenitor-api/config"
	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/model"
	"gorm.io/gorm"
)

const recentLimit = 20

func main() {
	// Load .env
	if err := config.LoadENV(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	db := store.GetDB()

	fmt.Println("========================================")
	fmt.Println("CRON JOBS STATUS CHECK")
	fmt.Println("========================================")
	printCronJobs(db)

	fmt.Println("\n========================================")
	fmt.Println("RECENT CASCADES")
	fmt.Println("========================================")
	printCascades(db)

	fmt.Println("\n========================================")
	fmt.Println("RECYCLE BIN")
	fmt.Println("========================================")
	printRecycleBin(db)

	fmt.Println("\n========================================")
}

func printCronJobs(db *gorm.DB) {
	var jobs []model.CronJobLog
	if err := db.Order("started_at DESC").Limit(recentLimit).Find(&jobs).Error; err != nil {
		log.Fatalf("Failed to fetch cron job logs: %v", err)
	}

	if len(jobs) == 0 {
		fmt.Println("\n❌ No cron runs recorded")
		return
	}

	fmt.Printf("\n📋 Last %d cron runs:\n\n", len(jobs))
	for _, job := range jobs {
		statusIcon := "⏳"
		switch job.Status {
		case "completed":
			statusIcon = "✅"
		case "failed":
			statusIcon = "❌"
		case "running":
			statusIcon = "🔄"
		}

		fmt.Printf("─────────────────────────────────────\n")
		fmt.Printf("%s Run ID: %d\n", statusIcon, job.ID)
		fmt.Printf("   Job: %s\n", job.JobName)
		fmt.Printf("   Status: %s\n", job.Status)
		fmt.Printf("   Started: %s\n", job.StartedAt.Format("2006-01-02 15:04:05"))
		if job.CompletedAt != nil {
			fmt.Printf("   Completed: %s (%d ms)\n", job.CompletedAt.Format("2006-01-02 15:04:05"), job.Duration)
		}
		if job.Message != "" {
			fmt.Printf("   Result: %s\n", job.Message)
		}
		if job.ErrorMsg != "" {
			fmt.Printf("   Error: %s\n", job.ErrorMsg)
		}
	}

	// A run stuck in "running" usually means the process died mid-job
	var stuck int64
	db.Model(&model.CronJobLog{}).Where("status = ?", "running").Count(&stuck)
	if stuck > 0 {
		fmt.Printf("\n⚠️  %d run(s) never finished\n", stuck)
	}
}

func printCascades(db *gorm.DB) {
	var entries []model.CascadeLog
	if err := db.Order("created_at DESC").Limit(recentLimit).Find(&entries).Error; err != nil {
		log.Fatalf("Failed to fetch cascade logs: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No cascades recorded")
		return
	}

	for _, entry := range entries {
		target := entry.TargetTable
		if entry.TargetID != 0 {
			target = fmt.Sprintf("%s/%d", entry.TargetTable, entry.TargetID)
		}
		fmt.Printf("%s %-12s %-20s batch:%s %s\n",
			entry.CreatedAt.Format("2006-01-02 15:04"), entry.Action, target,
			truncate(entry.BatchID, 8), formatAffected(entry.Affected))
	}
}

func printRecycleBin(db *gorm.DB) {
	var members int64
	db.Unscoped().Model(&model.Member{}).Where("deleted_at IS NOT NULL").Count(&members)
	fmt.Printf("members: %d\n", members)

	for _, level := range model.LocationLevels {
		var count int64
		db.Raw(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NOT NULL", level.Table())).Scan(&count)
		fmt.Printf("%s: %d\n", level.Table(), count)
	}
}

func formatAffected(raw []byte) string {
	var affected map[string]int64
	if err := json.Unmarshal(raw, &affected); err != nil || len(affected) == 0 {
		return ""
	}

	tables := make([]string, 0, len(affected))
	for table := range affected {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	parts := make([]string, 0, len(tables))
	for _, table := range tables {
		if affected[table] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", table, affected[table]))
		}
	}
	return strings.Join(parts, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
