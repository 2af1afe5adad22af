package database

import (
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/projenitor/projenitor-api/config"
	"github.com/projenitor/projenitor-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GORM DB access
	GetDB() *gorm.DB
}

type GORMStore struct {
	db *gorm.DB
}

// StartGORM initializes a GORM connection to PostgreSQL, or to a SQLite file
// when DB_DRIVER=sqlite. DB_DRIVER=pq runs the postgres dialect on lib/pq
// instead of pgx.
func StartGORM() (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	if getEnv.DB_DRIVER == "sqlite" {
		return OpenSQLite(getEnv.SQLITE_PATH)
	}

	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getEnv.DB_HOST,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_PORT,
		getEnv.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if getEnv.GO_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(PostgresDialector(getEnv.DB_DRIVER, dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: false,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		log.Println("Unable to connect to PostgreSQL with GORM:", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Printf("Successfully connected to PostgreSQL Database with GORM (driver: %s).", getEnv.DB_DRIVER)

	return NewGORMStore(db), nil
}

// PostgresDialector picks the database/sql driver under the postgres dialect:
// "pq" selects lib/pq, anything else the default pgx stdlib driver.
func PostgresDialector(driver, dsn string) gorm.Dialector {
	if driver == "pq" {
		return postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        dsn,
		})
	}
	return postgres.Open(dsn)
}

// OpenSQLite opens a file-backed store on the pure-Go SQLite driver
func OpenSQLite(path string) (*GORMStore, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=busy_timeout(5000)",
	}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Println("Unable to open SQLite database:", err)
		return nil, err
	}

	log.Printf("Using SQLite database at %s", path)
	return NewGORMStore(db), nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	log.Println("Running GORM AutoMigrate for all models...")

	if err := Migrate(s.db); err != nil {
		log.Println("Error running AutoMigrate:", err)
		return err
	}

	log.Println("GORM AutoMigrate completed successfully!")
	return nil
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Location hierarchy, top-down
		&model.Country{},
		&model.Division{},
		&model.District{},
		&model.Upazila{},
		&model.Village{},
		&model.Home{},

		// Family tree
		&model.Member{},

		// Audit & logging models
		&model.CascadeLog{},
		&model.CronJobLog{},
	)
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Println("Closing GORM connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services/handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
