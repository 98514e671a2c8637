package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/models"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Create(agent *models.Agent) error {
	return r.db.Create(agent).Error
}

func (r *AgentRepository) GetByID(id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&agent)
	return &agent, nil
}

func (r *AgentRepository) loadRelations(agent *models.Agent) {
	if agent.KnowledgeBaseID != nil {
		r.db.First(&agent.KnowledgeBase, "id = ?", *agent.KnowledgeBaseID)
	}
}

func (r *AgentRepository) Update(agent *models.Agent) error {
	return r.db.Save(agent).Error
}

func (r *AgentRepository) Delete(id uuid.UUID) error {
	var agent models.Agent
	if err := r.db.First(&agent, "id = ?", id).Error; err != nil {
		return err
	}
	return r.db.Delete(&agent).Error
}

func (r *AgentRepository) List() ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.Order("created_at DESC").Find(&agents).Error
	return agents, err
}

// FirstActive returns the first active agent, used as the callout
// fallback when no phone number mapping resolves one.
func (r *AgentRepository) FirstActive() (*models.Agent, error) {
	var agent models.Agent
	err := r.db.Where("is_active = ?", true).Order("created_at ASC").First(&agent).Error
	if err != nil {
		return nil, err
	}
	r.loadRelations(&agent)
	return &agent, nil
}

// ResolveForCalledNumber resolves the agent that should answer a call to
// the given number: an active PhoneNumber mapping first, falling back to
// the first active agent. Supplements the distilled spec from
// original_source's twilio_webhooks.incoming_call.
func (r *AgentRepository) ResolveForCalledNumber(number string) (*models.Agent, error) {
	var phone models.PhoneNumber
	err := r.db.Where("number = ? AND is_active = ?", number, true).First(&phone).Error
	if err == nil {
		return r.GetByID(phone.AgentID)
	}
	return r.FirstActive()
}
