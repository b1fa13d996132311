package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const jobsTableDDL = `
CREATE TABLE IF NOT EXISTS download_jobs (
	id           text PRIMARY KEY,
	search_term  text NOT NULL,
	metadata     jsonb,
	status       text NOT NULL,
	video_path   text NOT NULL DEFAULT '',
	error        text NOT NULL DEFAULT '',
	attempts     integer NOT NULL DEFAULT 0,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now(),
	retrieved_at timestamptz
)`

// Connect opens a pgx pool against dbURL and bootstraps the download_jobs
// table. The container orchestration may bring the database up after us, so
// the initial connection is retried.
func Connect(dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL is not set")
	}

	var pool *pgxpool.Pool
	var err error
	maxRetries := 10
	retryDelay := time.Second * 10

	for i := 0; i < maxRetries; i++ {
		config, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			return nil, fmt.Errorf("unable to parse database URL: %v", err)
		}

		pool, err = pgxpool.NewWithConfig(context.Background(), config)
		if err == nil {
			err = pool.Ping(context.Background())
			if err == nil {
				log.Println("Successfully connected to the database")
				break
			}
		}

		log.Printf("Failed to connect to the database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database after %d attempts: %v", maxRetries, err)
	}

	if _, err = pool.Exec(context.Background(), jobsTableDDL); err != nil {
		return nil, fmt.Errorf("unable to create download_jobs table: %v", err)
	}

	return pool, nil
}
