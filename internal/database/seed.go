package database

import (
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
)

// SeedDefaultAgent ensures at least one active agent exists so a fresh
// database can accept a call without any CRUD setup step.
func SeedDefaultAgent(db *gorm.DB) {
	log := logger.WithComponent("database")

	var count int64
	db.Model(&models.Agent{}).Count(&count)
	if count > 0 {
		return
	}

	agent := models.DefaultAgent()
	if err := db.Create(agent).Error; err != nil {
		log.Error().Err(err).Msg("Failed to seed default agent")
		return
	}
	log.Info().Str("agent_id", agent.ID.String()).Msg("Seeded default agent")
}

// SeedAll runs all seed functions. Useful for initializing a fresh
// database with the minimum fixtures needed to answer a call.
func SeedAll(db *gorm.DB) {
	log := logger.WithComponent("database")
	log.Info().Msg("Starting database seeding...")

	SeedDefaultAgent(db)

	log.Info().Msg("Database seeding completed")
}
