package main

import (
	"flag"

	"gameroom-backend/internal/config"
	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	flag.Parse()

	cfg, _, err := config.Load()
	if err != nil {
		logger.Get().WithError(err).Fatal("Invalid configuration")
	}
	log := logger.Init(cfg.LogLevel, "text")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if *down > 0 {
		if err := database.MigrateDown(db, *down); err != nil {
			log.WithError(err).Fatal("Rollback failed")
		}
		log.WithField("steps", *down).Info("Rollback completed successfully!")
		return
	}

	if err := database.Migrate(db, log); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	log.Info("Migration completed successfully!")
}
