package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gameroom-backend/internal/logger"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log := logger.Get()
	log.WithField("host", dbHost(dbURL)).Info("🔌 Connecting to database")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.WithError(err).Error("❌ sqlx.Connect() failed")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.WithError(err).Error("❌ database Ping() failed")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Info("✅ Database connection successful")
	return db, nil
}

// dbHost returns the host part of a connection URL without credentials
func dbHost(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
