package main

import (
	"flag"

	"github.com/joho/godotenv"

	"github.com/voxcore/voxcore/internal/config"
	"github.com/voxcore/voxcore/internal/database"
	"github.com/voxcore/voxcore/internal/logger"
)

func main() {
	seedAll := flag.Bool("all", true, "Seed all fixtures (default agent)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		// Not an error - we might be using system env vars
	}

	cfg := config.Load()
	logger.Init(cfg.IsDevelopment())
	log := logger.WithComponent("seed")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	log.Info().Msg("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if *seedAll {
		database.SeedAll(db)
	}

	log.Info().Msg("Database seeding completed successfully")
}
