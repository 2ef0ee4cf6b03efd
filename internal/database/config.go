package database

import (
	"fmt"
	"strings"
	"time"

	"remindly/internal/config"
	"remindly/internal/models"
	"remindly/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// pendingOffsetsQuery is the sweeper's polling query; it is kept out of the SQL log.
const pendingOffsetsQuery = `FROM "scheduled_offset" WHERE sent =`

// Open initializes the configured store
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return NewMemoryStore(), nil
	case "", "postgres":
		db, err := InitDB(cfg, log)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// InitDB opens the postgres connection, sizes the pool and migrates the schema
func InitDB(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger: utils.NewGormLogger(log.With().Str("component", "gorm").Logger(), level, pendingOffsetsQuery),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   false,
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	var (
		db  *gorm.DB
		err error
	)
	maxRetries := 5
	retryDelay := time.Second * 5

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database connection attempt failed")
		if i < maxRetries-1 {
			log.Info().Dur("delay", retryDelay).Msg("retrying database connection")
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("database connection established and migrations completed")
	return db, nil
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.ReminderTemplate{},
		&models.OffsetTemplate{},
		&models.Appointment{},
		&models.ScheduledOffset{},
		&models.ReminderSent{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
