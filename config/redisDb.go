package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedis connects the shared Redis client used for distributed locks.
// Redis is optional: without REDIS_URL the lock helpers fall back to
// in-process mutexes, which is safe for single-instance deployments.
func ConnectRedis() {
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		log.Printf("REDIS_URL not set; distributed locks disabled")
		return
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL: %v; distributed locks disabled", err)
		return
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("failed to connect redis: %v; distributed locks disabled", err)
		return
	}

	rdb = client
	locker = redislock.New(client)
	log.Printf("connected to redis")
}
