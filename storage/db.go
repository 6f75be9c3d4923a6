package storage

import (
	"errors"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database url is not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return conn, nil
}

// Migrate runs GORM auto-migrations for the tables this service owns.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db connection is nil")
	}
	if err := conn.AutoMigrate(&ChatSettings{}, &SessionSnapshot{}, &WordPair{}); err != nil {
		return err
	}
	log.Println("[storage] database migration complete")
	return nil
}
