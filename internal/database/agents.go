package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"realestate/server/internal/models"
)

// ListAgents returns all agents ordered by initials
func (d *Database) ListAgents(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	if err := d.db.WithContext(ctx).Order("initials ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	return agents, nil
}

func (d *Database) GetAgent(ctx context.Context, id uint) (*models.Agent, error) {
	var agent models.Agent
	if err := d.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &agent, nil
}

// UpsertAgent creates an agent or updates the profile that already holds the
// same initials. The boolean reports whether a new agent was created.
func (d *Database) UpsertAgent(ctx context.Context, agent models.Agent) (*models.Agent, bool, error) {
	var created bool
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Agent
		err := tx.Where("initials = ?", agent.Initials).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&agent).Error; err != nil {
				return err
			}
			created = true
			return nil
		case err != nil:
			return err
		}

		agent.ID = existing.ID
		return tx.Model(&existing).Updates(map[string]interface{}{
			"name":   agent.Name,
			"email":  agent.Email,
			"phone":  agent.Phone,
			"office": agent.Office,
		}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with another create for the same initials
			return d.UpsertAgent(ctx, agent)
		}
		return nil, false, fmt.Errorf("failed to upsert agent %s: %w", agent.Initials, err)
	}
	return &agent, created, nil
}

// DeleteAgent removes an agent that has no listings assigned
func (d *Database) DeleteAgent(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agent models.Agent
		if err := tx.First(&agent, id).Error; err != nil {
			return notFound(err)
		}

		var listingCount int64
		if err := tx.Model(&models.Listing{}).Where("agent_id = ?", id).Count(&listingCount).Error; err != nil {
			return fmt.Errorf("failed to count agent listings: %w", err)
		}
		if listingCount > 0 {
			return ErrAgentHasListings
		}

		if err := tx.Delete(&agent).Error; err != nil {
			return fmt.Errorf("failed to delete agent: %w", err)
		}
		return nil
	})
}
