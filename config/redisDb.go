package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// Sessions and report caching read Redis on the request path; a slow Redis must not stall the floor.
const redisOpTimeout = 2 * time.Second

// GetRedisDB returns nil until ConnectRedisWithRetry succeeded.
func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns nil until ConnectRedisWithRetry succeeded.
func GetRedisLock() *redislock.Client {
	return locker
}

func redisCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

// GetRedisObject decodes the JSON stored at key into dest. Reports false on a miss or without Redis.
func GetRedisObject(key string, dest interface{}) (bool, error) {
	val, ok, err := GetRedisValue(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func GetRedisValue(key string) (string, bool, error) {
	if rdb == nil {
		return "", false, nil
	}
	ctx, cancel := redisCtx()
	defer cancel()
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return SetRedisValue(key, string(data), exp)
}

func SetRedisValue(key string, value string, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	ctx, cancel := redisCtx()
	defer cancel()
	return rdb.Set(ctx, key, value, exp).Err()
}

func RemoveRedisKey(keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	ctx, cancel := redisCtx()
	defer cancel()
	return rdb.Del(ctx, keys...).Err()
}

func redisOptions() *redis.Options {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if addr == "" {
		addr = "localhost:6379"
	}
	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intFromEnv("REDIS_DB", 0),
		PoolSize: intFromEnv("REDIS_POOL_SIZE", 20),
	}
}

// ConnectRedis makes a single connection attempt and sets the global Redis client and lock client.
func ConnectRedis() error {
	opts := redisOptions()
	client := redis.NewClient(opts)
	ctx, cancel := redisCtx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	rdb = client
	locker = redislock.New(rdb)
	return nil
}

// ConnectRedisWithRetry keeps calling ConnectRedis until it succeeds.
// Call this from main() AFTER the HTTP server is listening.
func ConnectRedisWithRetry() {
	addr := redisOptions().Addr
	for attempt := 1; ; attempt++ {
		err := ConnectRedis()
		if err == nil {
			GetLogger().WithFields(logrus.Fields{"addr": addr, "attempt": attempt}).Info("connected to redis")
			return
		}
		sleep := retryBackoff(attempt)
		GetLogger().WithFields(logrus.Fields{
			"addr":    addr,
			"attempt": attempt,
			"retry":   sleep.String(),
		}).WithError(err).Warn("redis connect failed")
		time.Sleep(sleep)
	}
}

// CloseRedis releases the global client. Safe to call when Redis never connected.
func CloseRedis() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb, locker = nil, nil
	return err
}
