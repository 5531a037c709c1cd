package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"poll-service/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db    *gorm.DB
	dbMux sync.RWMutex
)

// InitPostgres initializes the PostgreSQL connection. A failure is
// returned to the caller instead of aborting the process so the pod
// can come up and retry in the background.
func InitPostgres(dsn, env string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database URL is not set")
	}

	logLevel := logger.Silent
	if env == "dev" {
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	var conn *gorm.DB

	done := make(chan bool, 1)
	go func() {
		conn, err = gorm.Open(postgres.Open(dsn), gormConfig)
		done <- true
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("database connection timeout")
	case <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbMux.Lock()
	db = conn
	dbMux.Unlock()

	return conn, nil
}

// InitPostgresAsync retries the connection in the background without
// blocking startup.
func InitPostgresAsync(dsn, env string, retryInterval time.Duration) {
	go func() {
		for {
			if GetDB() != nil {
				return
			}

			_, err := InitPostgres(dsn, env)
			if err != nil {
				log.Printf("DB connection failed, retrying in %v: %v\n", retryInterval, err)
				time.Sleep(retryInterval)
				continue
			}
			return
		}
	}()
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Profile{},
		&domain.Poll{},
		&domain.Choice{},
		&domain.Vote{},
	)
}

// GetDB returns the database instance (nil if not connected)
func GetDB() *gorm.DB {
	dbMux.RLock()
	defer dbMux.RUnlock()
	return db
}
