package app

import (
	"fmt"

	"github.com/projenitor/projenitor-api/api"
	"github.com/projenitor/projenitor-api/config"
	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/router"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/services/cron"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err

	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("To run without Postgres, set:\n")
		print("  DB_DRIVER=sqlite SQLITE_PATH=projenitor.db\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED { // Default to enabled
		db := store.GetDB()
		cronManager = cron.NewCronManager(db, services.NewCascadeService(db), getEnv.RECYCLE_BIN_RETENTION_DAYS)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes (middleware included)
	router.SetupRoutes(app, store, getEnv)

	// Get the PORT & Start the Server
	return server.Run()

}
