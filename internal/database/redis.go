package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis dials Redis and pings it with a short bounded retry
func ConnectRedis(ctx context.Context, addr, password string, log *logrus.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		PoolSize: 20,
	})

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			log.WithFields(logrus.Fields{"addr": addr, "attempt": attempt}).Info("✅ Connected to redis")
			return rdb, nil
		}
		sleep := time.Second * time.Duration(1<<attempt)
		log.WithError(err).WithFields(logrus.Fields{"addr": addr, "attempt": attempt}).Warn("redis ping failed, retrying in " + sleep.String())
		select {
		case <-ctx.Done():
			rdb.Close()
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
}
