// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"harold/config"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

var (
	// ContextClient backs the conversation store (state, entities, history, locks).
	ContextClient *redis.Client
)

// InitContextCache initializes the Redis client used for conversation context.
func InitContextCache() {
	ContextClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisContextDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ContextClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Context): %v", err)
	}
}

// GetContextClient returns the conversation context client.
func GetContextClient() *redis.Client {
	if ContextClient == nil {
		InitContextCache()
	}
	return ContextClient
}

// QueueRedisOpt is the asynq connection for background tasks. It shares the
// redis server with the context store but uses its own DB.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}
