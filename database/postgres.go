package database

import (
	"context"
	"log"
	"time"

	"harold/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool is set when STORAGE_DRIVER=postgres.
var PostgresPool *pgxpool.Pool

// InitPostgres opens the reservation pool.
func InitPostgres() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, config.AppConfig.PostgresURL)
	if err != nil {
		log.Fatalf("failed to open postgres pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	PostgresPool = pool
	log.Println("Connected to Postgres successfully!")
}
