package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/resort-quote/internal/app"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// seeder publishes a reference data fixture to Postgres and drops the shared snapshot cache so API
// replicas pick the new data up on their next refresh.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	file := flag.String("file", os.Getenv("REFDATA_FIXTURE"), "reference data fixture (JSON) to publish")
	runMigrations := flag.Bool("migrate", true, "apply the reference data schema before seeding")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if *file == "" {
		log.Fatal("no fixture given: pass -file or set REFDATA_FIXTURE")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *runMigrations {
		if err := refdata.Migrate(dbURL); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	}

	records, err := refdata.FileSource{Path: *file}.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to read fixture: %v", err)
	}
	if _, err := refdata.NewSnapshot(records); err != nil {
		log.Fatalf("Fixture is inconsistent: %v", err)
	}

	pool, err := app.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := (refdata.PostgresSource{DB: pool}).Store(ctx, records); err != nil {
		log.Fatalf("Failed to store reference data: %v", err)
	}
	log.Printf("Stored %d resorts, %d room types, %d rates", len(records.Resorts), len(records.RoomTypes), len(records.Rates))

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		rdb, err := app.NewRedis(ctx, redisURL, false, zerolog.Nop())
		if err != nil {
			log.Printf("Skipping cache invalidation: %v", err)
		} else {
			if err := refdata.NewCache(rdb, 0).Invalidate(ctx); err != nil {
				log.Printf("Failed to invalidate snapshot cache: %v", err)
			}
			_ = rdb.Close()
		}
	}

	log.Println("Seeding completed successfully!")
}
