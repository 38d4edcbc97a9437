package main

import (
	"context"
	"log"
	"os"

	"github.com/Stephi-25/Odjassa/internal/config"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := migrations.Direction(os.Args[1])
	if direction != migrations.Up && direction != migrations.Down {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	applied, err := migrations.Apply(ctx, db, direction)
	if err != nil {
		log.Fatalf("Run migrations: %v", err)
	}

	for _, name := range applied {
		log.Printf("Ran migration: %s", name)
	}
	log.Printf("Successfully ran %d migration(s) %s", len(applied), direction)
}
