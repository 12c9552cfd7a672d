package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/karpanel/api/internal/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dbURL := flag.String("db", "", "Database URL")
	steps := flag.Int("steps", 1, "Number of migrations to roll back (down only)")
	flag.Parse()

	if *dbURL == "" {
		*dbURL = os.Getenv("DATABASE_URL")
	}
	if *dbURL == "" {
		log.Fatal("database URL is required: use -db flag or DATABASE_URL env var")
	}

	switch *direction {
	case "up":
		if err := database.Migrate(*dbURL); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		fmt.Println("migrations applied successfully")
	case "down":
		if err := database.MigrateDown(*dbURL, *steps); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		fmt.Printf("rolled back %d migration(s)\n", *steps)
	default:
		log.Fatalf("unknown direction: %s (use 'up' or 'down')", *direction)
	}
}
