package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/huddle-api/internal/models"
)

const (
	sqlitePrefix       = "sqlite:"
	slowQueryThreshold = 200 * time.Millisecond
)

// Connect opens the database described by url. URLs prefixed with "sqlite:"
// open a local SQLite file; anything else is treated as a PostgreSQL DSN.
// Slow queries and failures are logged through log; missing rows are not.
func Connect(url string, log zerolog.Logger) (*gorm.DB, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("database url must not be empty")
	}

	queryLog := gormlogger.New(queryLogWriter{log: log.With().Str("component", "gorm").Logger()}, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	cfg := &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
		Logger:         queryLog,
	}

	if strings.HasPrefix(url, sqlitePrefix) {
		db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(url, sqlitePrefix)), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		// SQLite serialises writers; one connection keeps transactions from failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(url), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table used by the API.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type queryLogWriter struct {
	log zerolog.Logger
}

func (w queryLogWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}
