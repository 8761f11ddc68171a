package main

import (
	"context"
	"os"

	"gameroom-backend/internal/config"
	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
)

func main() {
	a := &app{
		out:  os.Stdout,
		log:  logger.New("warn", "text", os.Stderr),
		open: openStore,
	}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore connects to the configured database and returns the store with its cleanup
func openStore(context.Context) (database.Repository, *config.Config, func(), error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return database.NewStore(db), cfg, func() { db.Close() }, nil
}
